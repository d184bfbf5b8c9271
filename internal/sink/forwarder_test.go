package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// captureSink records appended rows for assertions
type captureSink struct {
	mu   sync.Mutex
	rows []Row
	fail bool
}

func (c *captureSink) Name() string { return "capture" }

func (c *captureSink) Append(ctx context.Context, row Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("sink unavailable")
	}
	c.rows = append(c.rows, row)
	return nil
}

func (c *captureSink) Close() error { return nil }

func (c *captureSink) captured() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Row, len(c.rows))
	copy(out, c.rows)
	return out
}

func TestForwarder_EnqueueAndStop(t *testing.T) {
	capture := &captureSink{}
	f := NewForwarder([]Sink{capture}, DefaultForwarderConfig(), zerolog.Nop())

	row := Row{Timestamp: time.Now().UTC(), PH: ptr(6.5)}
	if !f.Enqueue(row) {
		t.Fatal("Enqueue failed on empty queue")
	}

	// Stop drains the queue before returning.
	f.Stop()

	rows := capture.captured()
	if len(rows) != 1 {
		t.Fatalf("captured %d rows, want 1", len(rows))
	}
	if !rows[0].Timestamp.Equal(row.Timestamp) {
		t.Errorf("captured row timestamp = %v, want %v", rows[0].Timestamp, row.Timestamp)
	}

	stats := f.Stats()
	if stats.TotalQueued != 1 || stats.TotalMirrored != 1 {
		t.Errorf("stats = %+v, want 1 queued and 1 mirrored", stats)
	}
}

func TestForwarder_SinkFailureIsCountedNotFatal(t *testing.T) {
	failing := &captureSink{fail: true}
	working := &captureSink{}
	f := NewForwarder([]Sink{failing, working}, DefaultForwarderConfig(), zerolog.Nop())

	f.Enqueue(Row{Timestamp: time.Now().UTC()})
	f.Stop()

	// The failing sink must not prevent the working one from
	// receiving the row.
	if len(working.captured()) != 1 {
		t.Errorf("working sink captured %d rows, want 1", len(working.captured()))
	}

	stats := f.Stats()
	if stats.TotalErrors != 1 {
		t.Errorf("TotalErrors = %d, want 1", stats.TotalErrors)
	}
	if stats.LastError == "" {
		t.Error("LastError should be recorded")
	}
	if stats.TotalMirrored != 1 {
		t.Errorf("TotalMirrored = %d, want 1", stats.TotalMirrored)
	}
}

func TestForwarder_DropsWhenQueueFull(t *testing.T) {
	// A sink that blocks until released, so the queue fills up.
	release := make(chan struct{})
	blocking := &blockingSink{release: release}
	f := NewForwarder([]Sink{blocking}, ForwarderConfig{QueueSize: 1, AppendTimeout: 5 * time.Second}, zerolog.Nop())

	// First row goes to the in-flight append, second fills the queue,
	// third must be dropped.
	f.Enqueue(Row{})
	blocking.waitForAppend()
	f.Enqueue(Row{})

	dropped := false
	for i := 0; i < 3; i++ {
		if !f.Enqueue(Row{}) {
			dropped = true
			break
		}
	}
	if !dropped {
		t.Error("expected Enqueue to report a drop with a full queue")
	}

	close(release)
	f.Stop()

	if stats := f.Stats(); stats.TotalDropped == 0 {
		t.Error("TotalDropped should be non-zero")
	}
}

func TestForwarder_HasSinks(t *testing.T) {
	f := NewForwarder(nil, DefaultForwarderConfig(), zerolog.Nop())
	defer f.Stop()
	if f.HasSinks() {
		t.Error("forwarder without sinks should report HasSinks false")
	}

	f2 := NewForwarder([]Sink{&captureSink{}}, DefaultForwarderConfig(), zerolog.Nop())
	defer f2.Stop()
	if !f2.HasSinks() {
		t.Error("forwarder with a sink should report HasSinks true")
	}
}

func TestForwarder_StopIsIdempotent(t *testing.T) {
	f := NewForwarder([]Sink{&captureSink{}}, DefaultForwarderConfig(), zerolog.Nop())
	f.Stop()
	f.Stop() // must not panic or deadlock
}

// blockingSink blocks the first Append until release is closed
type blockingSink struct {
	release  chan struct{}
	started  chan struct{}
	initOnce sync.Once
}

func (b *blockingSink) init() {
	b.initOnce.Do(func() { b.started = make(chan struct{}, 8) })
}

func (b *blockingSink) Name() string { return "blocking" }

func (b *blockingSink) Append(ctx context.Context, row Row) error {
	b.init()
	select {
	case b.started <- struct{}{}:
	default:
	}
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *blockingSink) Close() error { return nil }

func (b *blockingSink) waitForAppend() {
	b.init()
	<-b.started
}
