package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the monitor
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Display DisplayConfig `yaml:"display"`
	Server  ServerConfig  `yaml:"server"`
	Sheets  SheetsConfig  `yaml:"sheets"`
	Mirror  MirrorConfig  `yaml:"mirror"`
	Logging LoggingConfig `yaml:"logging"`
}

// DeviceConfig contains the Edenic device and API settings
type DeviceConfig struct {
	ID             string        `yaml:"id"`
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DisplayConfig contains settings for the trend window and timestamps
type DisplayConfig struct {
	Lookback time.Duration `yaml:"lookback"`
	Timezone string        `yaml:"timezone"`
}

// ServerConfig contains HTTP server configuration for the dashboard
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// SheetsConfig contains the Google Sheets mirror settings
type SheetsConfig struct {
	Enabled         bool   `yaml:"enabled"`
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	Worksheet       string `yaml:"worksheet"`
}

// MirrorConfig contains the local SQLite mirror settings
type MirrorConfig struct {
	Enabled   bool   `yaml:"enabled"`
	DBPath    string `yaml:"db_path"`
	QueueSize int    `yaml:"queue_size"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	yamlData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(yamlData, &config); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	config.ApplyDefaults()
	config.OverrideFromEnv()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &config, nil
}

// ApplyDefaults sets default values for any unset fields
func (c *Config) ApplyDefaults() {
	if c.Device.BaseURL == "" {
		c.Device.BaseURL = "https://api.edenic.io/api/v1"
	}
	if c.Device.PollInterval == 0 {
		c.Device.PollInterval = 60 * time.Second
	}
	if c.Device.RequestTimeout == 0 {
		c.Device.RequestTimeout = 15 * time.Second
	}
	if c.Display.Lookback == 0 {
		c.Display.Lookback = 24 * time.Hour
	}
	if c.Display.Timezone == "" {
		c.Display.Timezone = "America/New_York"
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 60 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Sheets.Worksheet == "" {
		c.Sheets.Worksheet = "Sheet1"
	}
	if c.Mirror.DBPath == "" {
		c.Mirror.DBPath = "./data/telemetry.db"
	}
	if c.Mirror.QueueSize == 0 {
		c.Mirror.QueueSize = 64
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// OverrideFromEnv overrides config values from environment variables
func (c *Config) OverrideFromEnv() {
	if v := os.Getenv("EDENIC_DEVICE_ID"); v != "" {
		c.Device.ID = v
	}
	if v := os.Getenv("EDENIC_API_KEY"); v != "" {
		c.Device.APIKey = v
	}
	if v := os.Getenv("SHEETS_CREDENTIALS_FILE"); v != "" {
		c.Sheets.CredentialsFile = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Device.ID == "" {
		return fmt.Errorf("device ID is required")
	}
	if c.Device.APIKey == "" {
		return fmt.Errorf("device API key is required")
	}
	// The upstream service rejects polling faster than once a minute.
	if c.Device.PollInterval < 60*time.Second {
		return fmt.Errorf("poll interval must be at least 60 seconds")
	}
	if c.Device.RequestTimeout < time.Second {
		return fmt.Errorf("request timeout must be at least 1 second")
	}
	if c.Display.Lookback <= 0 {
		return fmt.Errorf("display lookback must be positive")
	}
	if _, err := time.LoadLocation(c.Display.Timezone); err != nil {
		return fmt.Errorf("invalid display timezone %q: %w", c.Display.Timezone, err)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.Sheets.Enabled {
		if c.Sheets.CredentialsFile == "" {
			return fmt.Errorf("sheets credentials file is required when sheets mirroring is enabled")
		}
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("sheets spreadsheet ID is required when sheets mirroring is enabled")
		}
	}
	return nil
}

// Location resolves the configured display timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Display.Timezone)
}

// String returns a safe string representation (hides the API key)
func (c *Config) String() string {
	return fmt.Sprintf("Config{Device: [ID=%s, Key=%s, URL=%s, Interval=%s], Display: %+v, Server: %+v, Sheets: [Enabled=%t, Spreadsheet=%s], Mirror: %+v, Logging: %+v}",
		c.Device.ID,
		maskKey(c.Device.APIKey),
		c.Device.BaseURL,
		c.Device.PollInterval,
		c.Display,
		c.Server,
		c.Sheets.Enabled,
		c.Sheets.SpreadsheetID,
		c.Mirror,
		c.Logging,
	)
}

// maskKey masks all but the first 4 characters of a credential
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
