package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .fleetwatch.yaml configuration file.
type Config struct {
	Version   int             `yaml:"version" mapstructure:"version"`
	Source    SourceConfig    `yaml:"source" mapstructure:"source"`
	Prefs     PrefsConfig     `yaml:"prefs" mapstructure:"prefs"`
	Dashboard DashboardConfig `yaml:"dashboard" mapstructure:"dashboard"`
	Simulate  SimulateConfig  `yaml:"simulate" mapstructure:"simulate"`
}

// SourceConfig locates the fleet event stream and REST API.
type SourceConfig struct {
	// StreamURL is the Server-Sent Events endpoint delivering init/put/delete events.
	StreamURL string `yaml:"stream_url" mapstructure:"stream_url"`

	// APIURL is the base of the per-instance REST endpoints
	// ({api}/instances/{service}/{id}/health and friends).
	APIURL string `yaml:"api_url" mapstructure:"api_url"`

	// ReconnectMin and ReconnectMax bound the stream reconnect backoff.
	ReconnectMin time.Duration `yaml:"reconnect_min" mapstructure:"reconnect_min"`
	ReconnectMax time.Duration `yaml:"reconnect_max" mapstructure:"reconnect_max"`

	// RequestTimeout bounds each secondary REST request.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// PrefsConfig controls where operator preferences are stored.
type PrefsConfig struct {
	// Path of the preference document. Supports ~ and ${HOME}/${USER}.
	Path string `yaml:"path" mapstructure:"path"`
}

// DashboardConfig tunes the interactive view.
type DashboardConfig struct {
	// Refresh is the redraw cadence for cue animations and relative times.
	Refresh time.Duration `yaml:"refresh" mapstructure:"refresh"`

	// GroupPresets are the grouping field lists cycled with the 'g' key.
	// The empty list (no grouping) is always part of the cycle.
	GroupPresets [][]string `yaml:"group_presets" mapstructure:"group_presets"`
}

// SimulateConfig configures the development fleet source.
type SimulateConfig struct {
	Addr      string        `yaml:"addr" mapstructure:"addr"`
	Instances int           `yaml:"instances" mapstructure:"instances"`
	Tick      time.Duration `yaml:"tick" mapstructure:"tick"`
	Grace     time.Duration `yaml:"grace" mapstructure:"grace"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Source: SourceConfig{
			StreamURL:      "http://localhost:8787/events",
			APIURL:         "http://localhost:8787",
			ReconnectMin:   500 * time.Millisecond,
			ReconnectMax:   30 * time.Second,
			RequestTimeout: 10 * time.Second,
		},
		Prefs: PrefsConfig{
			Path: "",
		},
		Dashboard: DashboardConfig{
			Refresh: 100 * time.Millisecond,
			GroupPresets: [][]string{
				{"service"},
				{"region"},
				{"cloudProvider", "cloudRegion"},
				{"service", "status"},
			},
		},
		Simulate: SimulateConfig{
			Addr:      ":8787",
			Instances: 12,
			Tick:      2 * time.Second,
			Grace:     10 * time.Second,
		},
	}
}
