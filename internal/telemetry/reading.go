package telemetry

import (
	"fmt"
	"time"
)

// Reading is one canonical snapshot of the probe values. The
// measurement fields are pointers because the upstream API routinely
// omits individual measurements; a partial reading is still valid and
// worth keeping. Temperature is always Fahrenheit by the time a
// Reading exists.
type Reading struct {
	Timestamp    time.Time `json:"timestamp"`
	PH           *float64  `json:"ph"`
	EC           *float64  `json:"ec"`
	TemperatureF *float64  `json:"temperature_f"`
}

// HasTimestamp reports whether the reading carries a usable timestamp.
// Readings without one must never enter the history.
func (r *Reading) HasTimestamp() bool {
	return !r.Timestamp.IsZero()
}

// IsComplete reports whether all three measurements are present. Only
// complete readings are mirrored to external sinks.
func (r *Reading) IsComplete() bool {
	return r.PH != nil && r.EC != nil && r.TemperatureF != nil
}

// Copy returns a deep copy of the Reading
func (r *Reading) Copy() *Reading {
	if r == nil {
		return nil
	}
	c := &Reading{Timestamp: r.Timestamp}
	if r.PH != nil {
		v := *r.PH
		c.PH = &v
	}
	if r.EC != nil {
		v := *r.EC
		c.EC = &v
	}
	if r.TemperatureF != nil {
		v := *r.TemperatureF
		c.TemperatureF = &v
	}
	return c
}

// get the reading as a string
func (r *Reading) String() string {
	return fmt.Sprintf("Timestamp: %s, pH: %s, EC: %s, Temperature: %s°F",
		r.Timestamp.Format(time.RFC3339),
		formatOptional(r.PH),
		formatOptional(r.EC),
		formatOptional(r.TemperatureF),
	)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
