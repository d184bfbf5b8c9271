// Package units holds the measurement unit conversions used by the
// telemetry pipeline.
package units

// CelsiusToFahrenheit converts a Celsius temperature to Fahrenheit.
// The pipeline applies this exactly once, when a raw Celsius value is
// normalized; canonical readings never carry Celsius.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}
