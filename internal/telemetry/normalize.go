package telemetry

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/afroash/hydro-monitor/internal/units"
)

// Measurement keys as the Edenic API reports them. The order of
// timestampPriority matters: the first key that carries a ts decides
// the reading's timestamp, later keys never override it. Co-reported
// metrics from one poll can disagree by a few milliseconds and the
// history only wants one instant per poll.
const (
	KeyPH          = "ph"
	KeyEC          = "electrical_conductivity"
	KeyTemperature = "temperature"
)

var timestampPriority = []string{KeyPH, KeyEC, KeyTemperature}

// sample is one {value, ts} entry from the API. Depending on the
// endpoint version a key maps to either one of these or to a
// most-recent-first list of them.
type sample struct {
	Value sampleValue `json:"value"`
	Ts    *int64      `json:"ts"`
}

// sampleValue tolerates the value arriving as a JSON number, a numeric
// string, or null. Anything unparseable counts as absent rather than
// as an error.
type sampleValue struct {
	val   float64
	valid bool
}

func (v *sampleValue) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		v.val = n
		v.valid = true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			v.val = f
			v.valid = true
		}
		return nil
	}
	return nil
}

// samplesFor accepts both payload shapes for a key and returns the
// samples most-recent-first. A shape that matches neither yields nil.
func samplesFor(raw json.RawMessage) []sample {
	var list []sample
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var one sample
	if err := json.Unmarshal(raw, &one); err == nil {
		return []sample{one}
	}
	return nil
}

// Normalize flattens a raw telemetry payload into a canonical Reading.
// Missing or malformed keys leave the corresponding field nil; the
// function never fails. Temperature is converted Celsius to Fahrenheit
// here and nowhere else. A payload that yields no ts at all produces a
// reading with a zero Timestamp, which the poller must not store.
func Normalize(payload map[string]json.RawMessage) *Reading {
	r := &Reading{}
	for _, key := range timestampPriority {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		samples := samplesFor(raw)
		if len(samples) == 0 {
			continue
		}
		latest := samples[0]

		if latest.Value.valid {
			v := latest.Value.val
			switch key {
			case KeyPH:
				r.PH = &v
			case KeyEC:
				r.EC = &v
			case KeyTemperature:
				f := units.CelsiusToFahrenheit(v)
				r.TemperatureF = &f
			}
		}

		if r.Timestamp.IsZero() && latest.Ts != nil {
			r.Timestamp = time.UnixMilli(*latest.Ts).UTC()
		}
	}
	return r
}
