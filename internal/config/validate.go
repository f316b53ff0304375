package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/errors"
)

// MinRefresh is the fastest dashboard redraw cadence accepted.
const MinRefresh = 20 * time.Millisecond

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but fleetwatch only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade fleetwatch to read this config.")
	}

	if err := validateSource(cfg.Source); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'source' section in your "+ConfigFileName+".")
	}

	if err := validateDashboard(cfg.Dashboard); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'dashboard' section in your "+ConfigFileName+".")
	}

	return nil
}

// ValidateSimulate checks the settings used by the simulate command.
func ValidateSimulate(s SimulateConfig) error {
	var err error
	switch {
	case strings.TrimSpace(s.Addr) == "":
		err = fmt.Errorf("simulate.addr is empty")
	case s.Instances < 0:
		err = fmt.Errorf("simulate.instances can't be negative (got %d)", s.Instances)
	case s.Tick <= 0:
		err = fmt.Errorf("simulate.tick must be positive (got %s)", s.Tick)
	case s.Grace < 0:
		err = fmt.Errorf("simulate.grace can't be negative (got %s)", s.Grace)
	}
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'simulate' section in your "+ConfigFileName+".")
	}
	return nil
}

func validateSource(s SourceConfig) error {
	if strings.TrimSpace(s.StreamURL) == "" {
		return fmt.Errorf("source.stream_url is required")
	}
	if err := validateHTTPURL("source.stream_url", s.StreamURL); err != nil {
		return err
	}
	if s.APIURL != "" {
		if err := validateHTTPURL("source.api_url", s.APIURL); err != nil {
			return err
		}
	}
	if s.ReconnectMin <= 0 {
		return fmt.Errorf("source.reconnect_min must be positive (got %s)", s.ReconnectMin)
	}
	if s.ReconnectMax < s.ReconnectMin {
		return fmt.Errorf("source.reconnect_max (%s) is shorter than source.reconnect_min (%s)", s.ReconnectMax, s.ReconnectMin)
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("source.request_timeout must be positive (got %s)", s.RequestTimeout)
	}
	return nil
}

func validateHTTPURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %v", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL (got %q)", key, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host (got %q)", key, raw)
	}
	return nil
}

func validateDashboard(d DashboardConfig) error {
	if d.Refresh < MinRefresh {
		return fmt.Errorf("dashboard.refresh must be at least %s (got %s)", MinRefresh, d.Refresh)
	}
	for i, preset := range d.GroupPresets {
		if len(preset) == 0 {
			return fmt.Errorf("dashboard.group_presets[%d] is empty", i)
		}
		for _, field := range preset {
			if strings.TrimSpace(field) == "" {
				return fmt.Errorf("dashboard.group_presets[%d] has an empty field name", i)
			}
		}
	}
	return nil
}
