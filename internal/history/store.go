// Package history keeps the in-session sequence of canonical readings.
package history

import (
	"sync"
	"time"

	"github.com/afroash/hydro-monitor/internal/telemetry"
)

// Store is the append-only, timestamp-ascending history for the
// current session. Readings are assumed to arrive in time order: the
// upstream endpoint reports latest samples and the poll loop is
// strictly sequential, so the store never re-sorts. The only guard is
// against the common case of a repeated poll returning the same
// sample, which is rejected by comparing against the last stored
// timestamp. An out-of-order reading is accepted as-is; that is a
// documented precondition on the caller, not something the store
// re-verifies.
//
// The store is never truncated. Windowing for display is a read-only
// projection; unbounded growth over one session is accepted.
type Store struct {
	mutex    sync.RWMutex
	readings []*telemetry.Reading

	appended         int64
	duplicateSkips   int64
	noTimestampSkips int64
}

// StoreStats contains statistics about the history store
type StoreStats struct {
	Appended         int64     `json:"appended"`
	DuplicateSkips   int64     `json:"duplicate_skips"`
	NoTimestampSkips int64     `json:"no_timestamp_skips"`
	Len              int       `json:"len"`
	OldestReading    time.Time `json:"oldest_reading,omitempty"`
	NewestReading    time.Time `json:"newest_reading,omitempty"`
}

// NewStore creates an empty history store
func NewStore() *Store {
	return &Store{
		readings: make([]*telemetry.Reading, 0, 64),
	}
}

// AppendIfNew appends the reading unless it has no timestamp or
// repeats the last stored timestamp. Returns true when the reading was
// stored. The reading is copied on the way in; callers keep no handle
// to stored state.
func (s *Store) AppendIfNew(r *telemetry.Reading) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if r == nil || !r.HasTimestamp() {
		s.noTimestampSkips++
		return false
	}
	if n := len(s.readings); n > 0 && s.readings[n-1].Timestamp.Equal(r.Timestamp) {
		s.duplicateSkips++
		return false
	}

	s.readings = append(s.readings, r.Copy())
	s.appended++
	return true
}

// Latest returns the most recent reading, or nil when nothing has been
// stored yet.
func (s *Store) Latest() *telemetry.Reading {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.readings) == 0 {
		return nil
	}
	return s.readings[len(s.readings)-1].Copy()
}

// Len returns the number of stored readings.
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.readings)
}

// All returns a copy of the full history, oldest first.
func (s *Store) All() []*telemetry.Reading {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return copyReadings(s.readings)
}

// Window returns the readings whose timestamp falls within
// [now-lookback, now] as a read-only projection, oldest first. A
// non-positive lookback means unbounded and returns the full history.
// The filter is a predicate scan, not an index jump: sampling density
// is not uniform when polls fail.
func (s *Store) Window(now time.Time, lookback time.Duration) Window {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if lookback <= 0 {
		return copyReadings(s.readings)
	}

	cutoff := now.Add(-lookback)
	out := make([]*telemetry.Reading, 0, len(s.readings))
	for _, r := range s.readings {
		if !r.Timestamp.Before(cutoff) {
			out = append(out, r.Copy())
		}
	}
	return out
}

// Stats returns statistics about the store
func (s *Store) Stats() StoreStats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stats := StoreStats{
		Appended:         s.appended,
		DuplicateSkips:   s.duplicateSkips,
		NoTimestampSkips: s.noTimestampSkips,
		Len:              len(s.readings),
	}
	if len(s.readings) > 0 {
		stats.OldestReading = s.readings[0].Timestamp
		stats.NewestReading = s.readings[len(s.readings)-1].Timestamp
	}
	return stats
}

func copyReadings(readings []*telemetry.Reading) []*telemetry.Reading {
	out := make([]*telemetry.Reading, len(readings))
	for i, r := range readings {
		out[i] = r.Copy()
	}
	return out
}

// Window is a time-bounded, read-only projection of the history used
// for charting.
type Window []*telemetry.Reading

// IsEmpty reports a window with no rows. Not an error; the lookback
// just predates the data.
func (w Window) IsEmpty() bool {
	return len(w) == 0
}

// HasSingle reports a one-row window, which is not enough to chart a
// trend. The presentation layer branches on this.
func (w Window) HasSingle() bool {
	return len(w) == 1
}
