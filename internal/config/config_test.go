package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/flightwatch/internal/tracker"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", `
[tracker]
home_airport = "bgo"

[[tracker.flights]]
flight_number = "SK4167"
label = "Trip"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "BGO", cfg.Tracker.HomeAirport)
	assert.Equal(t, 3*time.Minute, cfg.Tracker.UpdateInterval())
	assert.Equal(t, 20*time.Second, cfg.Tracker.RequestTimeout())
	assert.Equal(t, DefaultFeedBaseURL, cfg.Tracker.FeedBaseURL)
	assert.False(t, cfg.Tracker.ReportMissing)
	assert.Equal(t, "flightwatch.bgo.snapshot", cfg.NATS.Subject)
	require.Len(t, cfg.Tracker.Flights, 1)
	assert.Equal(t, FlightConfig{FlightNumber: "SK4167", Label: "Trip"}, cfg.Tracker.Flights[0])
}

func TestLoadMergesWatchlistFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "watchlist.yaml", `
flights:
  - flightNumber: DY600
    label: Work
    date: "2024-01-05"
  - flightNumber: WF123
`)
	path := writeFile(t, dir, "config.toml", `
[tracker]
watchlist_file = "watchlist.yaml"

[[tracker.flights]]
flight_number = "SK4167"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Tracker.Flights, 3)
	assert.Equal(t, "SK4167", cfg.Tracker.Flights[0].FlightNumber)
	assert.Equal(t, FlightConfig{FlightNumber: "DY600", Label: "Work", Date: "2024-01-05"}, cfg.Tracker.Flights[1])
	assert.Equal(t, "WF123", cfg.Tracker.Flights[2].FlightNumber)
}

func TestLoadMissingWatchlistFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", `
[tracker]
watchlist_file = "nope.yaml"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "config file not found")

	path := writeFile(t, t.TempDir(), "bad.toml", "[tracker\nhome_airport=")
	_, err = Load(path)
	assert.ErrorContains(t, err, "failed to decode config file")
}

func TestLoadWithFallback(t *testing.T) {
	path := writeFile(t, t.TempDir(), "custom.toml", `
[logging]
level = "debug"
`)

	cfg, err := LoadWithFallback(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: "invalid log level"},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "invalid log format"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "invalid server port"},
		{name: "port ignored when server disabled", mutate: func(c *Config) { c.Server.Enabled = false; c.Server.Port = -1 }},
		{name: "bad airport", mutate: func(c *Config) { c.Tracker.HomeAirport = "OSLO" }, wantErr: "home_airport"},
		{name: "interval too short", mutate: func(c *Config) { c.Tracker.UpdateIntervalMs = 10 }, wantErr: "update_interval_ms"},
		{name: "bad timezone", mutate: func(c *Config) { c.Tracker.Timezone = "Mars/Olympus" }, wantErr: "timezone"},
		{
			name:    "missing flight number",
			mutate:  func(c *Config) { c.Tracker.Flights = []FlightConfig{{Label: "x"}} },
			wantErr: "flight_number is required",
		},
		{
			name:    "bad date",
			mutate:  func(c *Config) { c.Tracker.Flights = []FlightConfig{{FlightNumber: "SK1", Date: "01.02.2024"}} },
			wantErr: "YYYY-MM-DD",
		},
		{name: "nats without url", mutate: func(c *Config) { c.NATS.Enabled = true }, wantErr: "nats url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLocation(t *testing.T) {
	loc, err := TrackerConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = TrackerConfig{Timezone: "UTC"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestDefaultsMatchTracker(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "OSL", cfg.Tracker.HomeAirport)
	assert.Equal(t, 180000, cfg.Tracker.UpdateIntervalMs)
	assert.Equal(t, tracker.DefaultUpdateInterval, cfg.Tracker.UpdateInterval())
	assert.Equal(t, tracker.DefaultRequestTimeout, cfg.Tracker.RequestTimeout())
	assert.Equal(t, tracker.DefaultHomeAirport, cfg.Tracker.HomeAirport)
}
