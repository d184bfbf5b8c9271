// Package sink mirrors finalized readings to external logs. Sinks are
// strictly downstream: the in-memory history stays authoritative and a
// failed mirror write is reported, never rolled back.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/afroash/hydro-monitor/internal/telemetry"
)

// rowTimeFormat is the fixed local-time representation every sink
// writes, matching the spreadsheet log's existing columns.
const rowTimeFormat = "2006-01-02 15:04:05"

// Row is the flat record every sink receives: a timestamp plus the
// three measurements, blank when absent.
type Row struct {
	Timestamp    time.Time
	PH           *float64
	EC           *float64
	TemperatureF *float64
}

// RowFor builds the sink row for a finalized reading.
func RowFor(r *telemetry.Reading) Row {
	return Row{
		Timestamp:    r.Timestamp,
		PH:           r.PH,
		EC:           r.EC,
		TemperatureF: r.TemperatureF,
	}
}

// Strings renders the row for spreadsheet-style sinks: the timestamp
// in the given zone as "2006-01-02 15:04:05", numbers to two decimals,
// empty string for missing values.
func (r Row) Strings(loc *time.Location) []string {
	return []string{
		r.Timestamp.In(loc).Format(rowTimeFormat),
		formatCell(r.PH),
		formatCell(r.EC),
		formatCell(r.TemperatureF),
	}
}

func formatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

// Sink is one destination for mirrored rows.
type Sink interface {
	// Name identifies the sink in logs and stats.
	Name() string

	// Append writes one row to the destination.
	Append(ctx context.Context, row Row) error

	// Close releases any resources held by the sink.
	Close() error
}
