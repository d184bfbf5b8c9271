// Package edenic is a minimal client for the Edenic telemetry API.
package edenic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the production API endpoint.
	DefaultBaseURL = "https://api.edenic.io/api/v1"

	// telemetryKeys selects the three measurements the pipeline cares
	// about. The API silently drops keys the device does not report.
	telemetryKeys = "ph,electrical_conductivity,temperature"
)

// StatusError is returned when the API answers with a non-2xx status.
// Callers distinguish it from transport failures for user-facing
// messages only; both are retried on the next tick.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("edenic: unexpected response status %s", e.Status)
}

// ClientConfig holds connection settings for the API client
type ClientConfig struct {
	BaseURL  string
	APIKey   string
	DeviceID string
	Timeout  time.Duration
}

// Client fetches the latest telemetry for a single device.
type Client struct {
	baseURL  string
	apiKey   string
	deviceID string
	http     *http.Client
	logger   zerolog.Logger
}

// NewClient creates a new API client
func NewClient(config ClientConfig, logger zerolog.Logger) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:  baseURL,
		apiKey:   config.APIKey,
		deviceID: config.DeviceID,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// LatestTelemetry fetches the most recent samples for the configured
// device. The returned mapping is the raw per-key payload; shape
// normalization happens in the telemetry package. A response body that
// is not valid JSON is a client error, everything past decoding is the
// normalizer's problem.
func (c *Client) LatestTelemetry(ctx context.Context) (map[string]json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/telemetry/%s?keys=%s",
		c.baseURL,
		url.PathEscape(c.deviceID),
		url.QueryEscape(telemetryKeys),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("edenic: build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("edenic: fetch telemetry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("edenic: decode response: %w", err)
	}

	c.logger.Debug().
		Dur("elapsed", time.Since(start)).
		Int("keys", len(payload)).
		Msg("Telemetry fetched")

	return payload, nil
}
