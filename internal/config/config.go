package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/yegors/flightwatch/internal/avinor"
	"github.com/yegors/flightwatch/internal/tracker"
)

const (
	DefaultHomeAirport      = tracker.DefaultHomeAirport
	DefaultUpdateIntervalMs = int(tracker.DefaultUpdateInterval / time.Millisecond)
	DefaultFeedBaseURL      = avinor.DefaultBaseURL
	DefaultRequestTimeout   = int(tracker.DefaultRequestTimeout / time.Second)
	DefaultNATSSubject      = "flightwatch.%s.snapshot"
)

var airportCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server  ServerConfig  `toml:"server"`  // HTTP server settings
	Logging LoggingConfig `toml:"logging"` // Application logging settings
	Tracker TrackerConfig `toml:"tracker"` // Feed polling and watchlist settings
	NATS    NATSConfig    `toml:"nats"`    // Optional snapshot publishing over NATS
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Enabled          bool   `toml:"enabled"`            // Serve the HTTP API and websocket push channel
	Host             string `toml:"host"`               // Host address to bind to
	Port             int    `toml:"port"`               // HTTP port
	ReadTimeoutSecs  int    `toml:"read_timeout_secs"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs int    `toml:"write_timeout_secs"` // Maximum duration before timing out writes of the response
	IdleTimeoutSecs  int    `toml:"idle_timeout_secs"`  // Maximum time to wait for the next request with keep-alives
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// TrackerConfig contains the feed and watchlist configuration
type TrackerConfig struct {
	HomeAirport           string         `toml:"home_airport"`            // IATA code of the polled airport
	UpdateIntervalMs      int            `toml:"update_interval_ms"`      // Polling interval in milliseconds
	FeedBaseURL           string         `toml:"feed_base_url"`           // Flight feed endpoint
	RequestTimeoutSeconds int            `toml:"request_timeout_seconds"` // Upper bound for one fetch cycle
	Timezone              string         `toml:"timezone"`                // IANA zone defining "today" and displayed times; empty means local
	ReportMissing         bool           `toml:"report_missing"`          // Show unmatched flights as "Not found" instead of hiding them
	WatchlistFile         string         `toml:"watchlist_file"`          // Optional YAML file with additional flights
	Flights               []FlightConfig `toml:"flights"`                 // Watchlist
}

// FlightConfig is one watchlist entry
type FlightConfig struct {
	FlightNumber string `toml:"flight_number" yaml:"flightNumber"`
	Label        string `toml:"label" yaml:"label"`
	Date         string `toml:"date" yaml:"date"` // YYYY-MM-DD, optional
}

// NATSConfig contains the optional NATS publisher settings
type NATSConfig struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
	Subject string `toml:"subject"` // defaults to flightwatch.<airport>.snapshot
}

// watchlistFile is the YAML watchlist format
type watchlistFile struct {
	Flights []FlightConfig `yaml:"flights"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	cfg.Server.Enabled = true
	return cfg
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	config := Config{Server: ServerConfig{Enabled: true}}

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.ApplyDefaults()

	if config.Tracker.WatchlistFile != "" {
		watchlistPath := config.Tracker.WatchlistFile
		if !filepath.IsAbs(watchlistPath) {
			watchlistPath = filepath.Join(filepath.Dir(path), watchlistPath)
		}
		flights, err := LoadWatchlist(watchlistPath)
		if err != nil {
			return nil, err
		}
		config.Tracker.Flights = append(config.Tracker.Flights, flights...)
	}

	return &config, nil
}

// LoadWatchlist reads watchlist entries from a YAML file
func LoadWatchlist(path string) ([]FlightConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read watchlist file: %w", err)
	}

	var file watchlistFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to decode watchlist file %s: %w", path, err)
	}

	return file.Flights, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// ApplyDefaults fills unset values
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeoutSecs == 0 {
		c.Server.ReadTimeoutSecs = 15
	}
	if c.Server.WriteTimeoutSecs == 0 {
		c.Server.WriteTimeoutSecs = 15
	}
	if c.Server.IdleTimeoutSecs == 0 {
		c.Server.IdleTimeoutSecs = 60
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}

	if c.Tracker.HomeAirport == "" {
		c.Tracker.HomeAirport = DefaultHomeAirport
	}
	c.Tracker.HomeAirport = strings.ToUpper(strings.TrimSpace(c.Tracker.HomeAirport))
	if c.Tracker.UpdateIntervalMs == 0 {
		c.Tracker.UpdateIntervalMs = DefaultUpdateIntervalMs
	}
	if c.Tracker.FeedBaseURL == "" {
		c.Tracker.FeedBaseURL = DefaultFeedBaseURL
	}
	if c.Tracker.RequestTimeoutSeconds == 0 {
		c.Tracker.RequestTimeoutSeconds = DefaultRequestTimeout
	}

	if c.NATS.Subject == "" {
		c.NATS.Subject = fmt.Sprintf(DefaultNATSSubject, strings.ToLower(c.Tracker.HomeAirport))
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Validate logging config
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid log level
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console":
		// Valid log format
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if err := c.ValidateTracker(); err != nil {
		return err
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("nats url is required when nats is enabled")
	}

	return nil
}

// ValidateTracker validates the tracker configuration and watchlist
func (c *Config) ValidateTracker() error {
	if !airportCodePattern.MatchString(c.Tracker.HomeAirport) {
		return fmt.Errorf("tracker home_airport must be a 3-letter IATA code: %q", c.Tracker.HomeAirport)
	}

	if c.Tracker.UpdateIntervalMs < 1000 {
		return fmt.Errorf("tracker update_interval_ms must be at least 1000: %d", c.Tracker.UpdateIntervalMs)
	}

	if c.Tracker.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("tracker request_timeout_seconds must be greater than 0: %d", c.Tracker.RequestTimeoutSeconds)
	}

	if c.Tracker.FeedBaseURL == "" {
		return fmt.Errorf("tracker feed_base_url cannot be empty")
	}

	if _, err := c.Tracker.Location(); err != nil {
		return err
	}

	for i, f := range c.Tracker.Flights {
		if strings.TrimSpace(f.FlightNumber) == "" {
			return fmt.Errorf("tracker flight %d: flight_number is required", i)
		}
		if f.Date != "" {
			if _, err := time.Parse(tracker.DateLayout, f.Date); err != nil {
				return fmt.Errorf("tracker flight %s: date must be YYYY-MM-DD: %q", f.FlightNumber, f.Date)
			}
		}
	}

	return nil
}

// UpdateInterval returns the polling interval as a duration
func (t TrackerConfig) UpdateInterval() time.Duration {
	return time.Duration(t.UpdateIntervalMs) * time.Millisecond
}

// RequestTimeout returns the per-cycle timeout as a duration
func (t TrackerConfig) RequestTimeout() time.Duration {
	return time.Duration(t.RequestTimeoutSeconds) * time.Second
}

// Location resolves the configured time zone
func (t TrackerConfig) Location() (*time.Location, error) {
	if t.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return nil, fmt.Errorf("tracker timezone %q: %w", t.Timezone, err)
	}
	return loc, nil
}
