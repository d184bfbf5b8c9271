package sink

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Forwarder queues rows and mirrors them to every configured sink from
// a background goroutine, so a slow or failing sink never stalls the
// poll cycle.
type Forwarder struct {
	sinks         []Sink
	logger        zerolog.Logger
	rowChan       chan Row
	appendTimeout time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup

	// Stats
	mu            sync.RWMutex
	totalQueued   int64
	totalMirrored int64
	totalDropped  int64
	totalErrors   int64
	lastForward   time.Time
	lastError     string
}

// ForwarderConfig holds configuration for the async forwarder
type ForwarderConfig struct {
	QueueSize     int           // Number of rows buffered before Enqueue starts dropping (default: 64)
	AppendTimeout time.Duration // Per-sink deadline for one append (default: 30s)
}

// DefaultForwarderConfig returns sensible defaults
func DefaultForwarderConfig() ForwarderConfig {
	return ForwarderConfig{
		QueueSize:     64,
		AppendTimeout: 30 * time.Second,
	}
}

// ForwarderStats contains statistics about the forwarder
type ForwarderStats struct {
	TotalQueued   int64     `json:"total_queued"`
	TotalMirrored int64     `json:"total_mirrored"`
	TotalDropped  int64     `json:"total_dropped"`
	TotalErrors   int64     `json:"total_errors"`
	LastForward   time.Time `json:"last_forward,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	QueueLength   int       `json:"queue_length"`
	Sinks         []string  `json:"sinks"`
}

// NewForwarder creates and starts a new async forwarder
func NewForwarder(sinks []Sink, config ForwarderConfig, logger zerolog.Logger) *Forwarder {
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	if config.AppendTimeout <= 0 {
		config.AppendTimeout = 30 * time.Second
	}

	f := &Forwarder{
		sinks:         sinks,
		logger:        logger,
		rowChan:       make(chan Row, config.QueueSize),
		appendTimeout: config.AppendTimeout,
		stopChan:      make(chan struct{}),
	}

	f.wg.Add(1)
	go f.forwardLoop()

	names := make([]string, len(sinks))
	for i, s := range sinks {
		names[i] = s.Name()
	}
	logger.Info().
		Strs("sinks", names).
		Int("queue_size", config.QueueSize).
		Msg("Forwarder started")

	return f
}

// HasSinks reports whether any sink is configured. The poller skips
// the forwarding step entirely when there is nowhere to forward to.
func (f *Forwarder) HasSinks() bool {
	return len(f.sinks) > 0
}

// Enqueue queues a row for mirroring. Returns false when the queue is
// full and the row was dropped; the local history already holds the
// reading, so a drop costs only the mirror copy.
func (f *Forwarder) Enqueue(row Row) bool {
	select {
	case f.rowChan <- row:
		f.mu.Lock()
		f.totalQueued++
		f.mu.Unlock()
		return true
	default:
		f.mu.Lock()
		f.totalDropped++
		f.mu.Unlock()
		f.logger.Warn().Msg("Forwarder queue full, dropping row")
		return false
	}
}

// forwardLoop is the background goroutine that drains the queue
func (f *Forwarder) forwardLoop() {
	defer f.wg.Done()

	for {
		select {
		case row := <-f.rowChan:
			f.forward(row)

		case <-f.stopChan:
			// Drain remaining rows from channel
			draining := true
			for draining {
				select {
				case row := <-f.rowChan:
					f.forward(row)
				default:
					draining = false
				}
			}
			f.logger.Info().Msg("Forwarder stopped")
			return
		}
	}
}

// forward mirrors one row to every sink. Failures are counted and
// logged per sink; one sink failing never blocks the others.
func (f *Forwarder) forward(row Row) {
	for _, s := range f.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), f.appendTimeout)
		err := s.Append(ctx, row)
		cancel()

		f.mu.Lock()
		if err != nil {
			f.totalErrors++
			f.lastError = err.Error()
			f.mu.Unlock()
			f.logger.Error().Err(err).Str("sink", s.Name()).Msg("Failed to mirror row")
			continue
		}
		f.totalMirrored++
		f.lastForward = time.Now()
		f.mu.Unlock()
		f.logger.Debug().Str("sink", s.Name()).Msg("Row mirrored")
	}
}

// Stop gracefully stops the forwarder, flushing queued rows and
// closing the sinks.
func (f *Forwarder) Stop() {
	f.stopOnce.Do(func() {
		close(f.stopChan)
		f.wg.Wait()
		for _, s := range f.sinks {
			if err := s.Close(); err != nil {
				f.logger.Warn().Err(err).Str("sink", s.Name()).Msg("Failed to close sink")
			}
		}
	})
}

// Stats returns current forwarder statistics
func (f *Forwarder) Stats() ForwarderStats {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		names[i] = s.Name()
	}

	return ForwarderStats{
		TotalQueued:   f.totalQueued,
		TotalMirrored: f.totalMirrored,
		TotalDropped:  f.totalDropped,
		TotalErrors:   f.totalErrors,
		LastForward:   f.lastForward,
		LastError:     f.lastError,
		QueueLength:   len(f.rowChan),
		Sinks:         names,
	}
}
