package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
device:
  id: "2d9b5760-afe9-11ee-a8fb-b92f34d9b31d"
  api_key: "ed_test_key_12345"
  poll_interval: 90s
  request_timeout: 10s

display:
  lookback: 12h
  timezone: "America/New_York"

server:
  host: "0.0.0.0"
  port: 9090

sheets:
  enabled: true
  credentials_file: "gcreds.json"
  spreadsheet_id: "1AbCdEfGh"
  worksheet: "Telemetry"

mirror:
  enabled: true
  db_path: "./data/test.db"

logging:
  level: "debug"
  format: "console"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Device.ID != "2d9b5760-afe9-11ee-a8fb-b92f34d9b31d" {
		t.Errorf("Device.ID = %v", cfg.Device.ID)
	}
	if cfg.Device.PollInterval != 90*time.Second {
		t.Errorf("PollInterval = %v, want 90s", cfg.Device.PollInterval)
	}
	if cfg.Display.Lookback != 12*time.Hour {
		t.Errorf("Lookback = %v, want 12h", cfg.Display.Lookback)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %v, want 9090", cfg.Server.Port)
	}
	if !cfg.Sheets.Enabled || cfg.Sheets.Worksheet != "Telemetry" {
		t.Errorf("Sheets = %+v", cfg.Sheets)
	}
	if !cfg.Mirror.Enabled {
		t.Error("Mirror.Enabled should be true")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
device:
  id: "device-01"
  api_key: "ed_test_key"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Device.BaseURL != "https://api.edenic.io/api/v1" {
		t.Errorf("BaseURL default = %v", cfg.Device.BaseURL)
	}
	if cfg.Device.PollInterval != 60*time.Second {
		t.Errorf("PollInterval default = %v, want 60s", cfg.Device.PollInterval)
	}
	if cfg.Device.RequestTimeout != 15*time.Second {
		t.Errorf("RequestTimeout default = %v, want 15s", cfg.Device.RequestTimeout)
	}
	if cfg.Display.Lookback != 24*time.Hour {
		t.Errorf("Lookback default = %v, want 24h", cfg.Display.Lookback)
	}
	if cfg.Display.Timezone != "America/New_York" {
		t.Errorf("Timezone default = %v", cfg.Display.Timezone)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port default = %v, want 8080", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging defaults = %+v", cfg.Logging)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
device:
  id: "from-file"
  api_key: "file-key"
`)

	t.Setenv("EDENIC_DEVICE_ID", "from-env")
	t.Setenv("EDENIC_API_KEY", "env-key")
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Device.ID != "from-env" {
		t.Errorf("Device.ID = %v, want env override", cfg.Device.ID)
	}
	if cfg.Device.APIKey != "env-key" {
		t.Errorf("Device.APIKey = %v, want env override", cfg.Device.APIKey)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %v, want 7070", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %v, want warn", cfg.Logging.Level)
	}
}

func TestLoadConfig_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing device id",
			content: "device:\n  api_key: k\n",
			wantErr: "device ID",
		},
		{
			name:    "missing api key",
			content: "device:\n  id: d\n",
			wantErr: "API key",
		},
		{
			name:    "poll interval too fast",
			content: "device:\n  id: d\n  api_key: k\n  poll_interval: 10s\n",
			wantErr: "poll interval",
		},
		{
			name:    "bad timezone",
			content: "device:\n  id: d\n  api_key: k\ndisplay:\n  timezone: Mars/Olympus\n",
			wantErr: "timezone",
		},
		{
			name:    "sheets enabled without credentials",
			content: "device:\n  id: d\n  api_key: k\nsheets:\n  enabled: true\n  spreadsheet_id: s\n",
			wantErr: "credentials",
		},
		{
			name:    "sheets enabled without spreadsheet",
			content: "device:\n  id: d\n  api_key: k\nsheets:\n  enabled: true\n  credentials_file: c.json\n",
			wantErr: "spreadsheet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConfig_StringMasksAPIKey(t *testing.T) {
	cfg := &Config{}
	cfg.Device.ID = "device-01"
	cfg.Device.APIKey = "ed_supersecretkey"
	cfg.ApplyDefaults()

	s := cfg.String()
	if strings.Contains(s, "supersecretkey") {
		t.Error("String() leaked the API key")
	}
	if !strings.Contains(s, "ed_s****") {
		t.Errorf("String() = %q, want masked key prefix", s)
	}
}

func TestConfig_Location(t *testing.T) {
	cfg := &Config{}
	cfg.Display.Timezone = "America/New_York"

	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location failed: %v", err)
	}
	if loc.String() != "America/New_York" {
		t.Errorf("Location = %v", loc)
	}
}
