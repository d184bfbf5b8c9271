// Package poller drives the fetch → normalize → reconcile → forward →
// window cycle that feeds the history and the dashboard.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/hydro-monitor/internal/edenic"
	"github.com/afroash/hydro-monitor/internal/history"
	"github.com/afroash/hydro-monitor/internal/sink"
	"github.com/afroash/hydro-monitor/internal/telemetry"
)

// Fetcher is the transport collaborator. edenic.Client implements it.
type Fetcher interface {
	LatestTelemetry(ctx context.Context) (map[string]json.RawMessage, error)
}

// Publisher receives the outcome of every completed cycle. The
// dashboard hub implements it; a nil publisher is allowed.
type Publisher interface {
	PublishReading(r *telemetry.Reading, appended bool)
	PublishWindow(w history.Window)
	PublishStatus(status CycleStatus)
}

// ErrorKind categorizes why a cycle failed. Both kinds are transient
// and retried on the next tick; they differ only in the user-facing
// message.
type ErrorKind string

const (
	ErrorKindTransport ErrorKind = "transport"
	ErrorKindStatus    ErrorKind = "status"
)

// CycleStatus summarizes one completed poll cycle.
type CycleStatus struct {
	CompletedAt time.Time `json:"completed_at"`
	Appended    bool      `json:"appended"`
	WindowRows  int       `json:"window_rows"`
	ErrorKind   ErrorKind `json:"error_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Config holds poller settings
type Config struct {
	Interval time.Duration // default 60s, the minimum the upstream service allows
	Lookback time.Duration // display window, default 24h
}

// Stats contains statistics about the poller
type Stats struct {
	StartTime     time.Time `json:"start_time"`
	Cycles        int64     `json:"cycles"`
	Failures      int64     `json:"failures"`
	LastSuccess   time.Time `json:"last_success,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	LastErrorKind ErrorKind `json:"last_error_kind,omitempty"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}

// Poller runs the poll cycle once per tick. Cycles are strictly
// sequential: a tick never starts before the previous cycle finished,
// so the history is only ever mutated by one cycle at a time.
type Poller struct {
	fetcher   Fetcher
	store     *history.Store
	forwarder *sink.Forwarder
	publisher Publisher
	interval  time.Duration
	lookback  time.Duration
	logger    zerolog.Logger
	now       func() time.Time

	mu    sync.RWMutex
	stats Stats
}

// New creates a poller. forwarder and publisher may be nil.
func New(fetcher Fetcher, store *history.Store, forwarder *sink.Forwarder, publisher Publisher, config Config, logger zerolog.Logger) *Poller {
	interval := config.Interval
	if interval == 0 {
		interval = 60 * time.Second
	}
	lookback := config.Lookback
	if lookback == 0 {
		lookback = 24 * time.Hour
	}

	clock := time.Now
	return &Poller{
		fetcher:   fetcher,
		store:     store,
		forwarder: forwarder,
		publisher: publisher,
		interval:  interval,
		lookback:  lookback,
		logger:    logger,
		now:       clock,
		stats:     Stats{StartTime: clock()},
	}
}

// Run polls once immediately and then on every tick until the context
// is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info().
		Dur("interval", p.interval).
		Dur("lookback", p.lookback).
		Msg("Poller started")

	p.PollOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce runs one full cycle. A failed fetch aborts the cycle before
// any history mutation; every other step runs to completion, so the
// append is all-or-nothing per cycle.
func (p *Poller) PollOnce(ctx context.Context) CycleStatus {
	payload, err := p.fetcher.LatestTelemetry(ctx)
	if err != nil {
		status := CycleStatus{
			CompletedAt: p.now(),
			ErrorKind:   classify(err),
			Error:       err.Error(),
		}
		p.recordFailure(status)
		p.logger.Warn().
			Err(err).
			Str("kind", string(status.ErrorKind)).
			Msg("Poll cycle failed")
		if p.publisher != nil {
			p.publisher.PublishStatus(status)
		}
		return status
	}

	reading := telemetry.Normalize(payload)
	appended := p.store.AppendIfNew(reading)

	// Mirror only freshly appended, complete readings. Re-forwarding
	// a duplicate poll would double up rows in the spreadsheet log.
	if appended && reading.IsComplete() && p.forwarder != nil && p.forwarder.HasSinks() {
		p.forwarder.Enqueue(sink.RowFor(reading))
	}

	window := p.store.Window(p.now(), p.lookback)

	status := CycleStatus{
		CompletedAt: p.now(),
		Appended:    appended,
		WindowRows:  len(window),
	}
	p.recordSuccess()

	if p.publisher != nil {
		p.publisher.PublishReading(reading, appended)
		p.publisher.PublishWindow(window)
		p.publisher.PublishStatus(status)
	}

	p.logger.Info().
		Bool("appended", appended).
		Int("window_rows", len(window)).
		Int("history_len", p.store.Len()).
		Msg("Poll cycle completed")

	return status
}

// Lookback returns the configured display window duration.
func (p *Poller) Lookback() time.Duration {
	return p.lookback
}

// Stats returns current poller statistics
func (p *Poller) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := p.stats
	stats.UptimeSeconds = int64(time.Since(stats.StartTime).Seconds())
	return stats
}

func (p *Poller) recordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Cycles++
	p.stats.LastSuccess = p.now()
	p.stats.LastError = ""
	p.stats.LastErrorKind = ""
}

func (p *Poller) recordFailure(status CycleStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Cycles++
	p.stats.Failures++
	p.stats.LastError = status.Error
	p.stats.LastErrorKind = status.ErrorKind
}

// classify maps a fetch error to its user-facing category.
func classify(err error) ErrorKind {
	var statusErr *edenic.StatusError
	if errors.As(err, &statusErr) {
		return ErrorKindStatus
	}
	return ErrorKindTransport
}
