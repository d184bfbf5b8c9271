package sink

import (
	"reflect"
	"testing"
	"time"

	"github.com/afroash/hydro-monitor/internal/telemetry"
)

func ptr(v float64) *float64 { return &v }

func TestRow_Strings(t *testing.T) {
	eastern := time.FixedZone("EST", -5*60*60)
	ts := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

	tests := []struct {
		name     string
		row      Row
		expected []string
	}{
		{
			name: "complete row",
			row: Row{
				Timestamp:    ts,
				PH:           ptr(6.5),
				EC:           ptr(1.8),
				TemperatureF: ptr(71.6),
			},
			expected: []string{"2023-11-14 17:13:20", "6.50", "1.80", "71.60"},
		},
		{
			name: "partial row leaves blanks",
			row: Row{
				Timestamp: ts,
				PH:        ptr(7.015),
			},
			expected: []string{"2023-11-14 17:13:20", "7.01", "", ""},
		},
		{
			name:     "all measurements absent",
			row:      Row{Timestamp: ts},
			expected: []string{"2023-11-14 17:13:20", "", "", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.row.Strings(eastern)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Strings() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRow_Strings_UTC(t *testing.T) {
	ts := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	row := Row{Timestamp: ts, PH: ptr(6.5)}

	got := row.Strings(time.UTC)
	if got[0] != "2023-11-14 22:13:20" {
		t.Errorf("timestamp cell = %q, want UTC rendering", got[0])
	}
}

func TestRowFor(t *testing.T) {
	r := &telemetry.Reading{
		Timestamp:    time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC),
		PH:           ptr(6.5),
		EC:           ptr(1.8),
		TemperatureF: ptr(71.6),
	}

	row := RowFor(r)
	if !row.Timestamp.Equal(r.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", row.Timestamp, r.Timestamp)
	}
	if row.PH != r.PH || row.EC != r.EC || row.TemperatureF != r.TemperatureF {
		t.Error("RowFor should carry the reading's values through")
	}
}
