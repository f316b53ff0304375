package doctor

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/rileyhilliard/fleetwatch/internal/config"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
)

// describe splits err into a one-line message and its suggestion.
func describe(err error) (msg, suggestion string) {
	var fwErr *errors.Error
	if stderrors.As(err, &fwErr) {
		return fwErr.Message, fwErr.Suggestion
	}
	return err.Error(), ""
}

// ConfigFileCheck reports which config file is in effect.
type ConfigFileCheck struct {
	ConfigPath string // Explicit path, or empty to search
}

func (c *ConfigFileCheck) Name() string     { return "config_file" }
func (c *ConfigFileCheck) Category() string { return CategoryConfig }

func (c *ConfigFileCheck) Run(context.Context) CheckResult {
	path, err := config.Find(c.ConfigPath)
	if err != nil {
		msg, suggestion := describe(err)
		return fail(c.Name(), "Error finding config: "+msg, suggestion)
	}
	if path == "" {
		return warn(c.Name(),
			"No config file found, using defaults",
			fmt.Sprintf("Create %s to point fleetwatch at your fleet source.", config.ConfigFileName))
	}
	return pass(c.Name(), "Config file: "+path)
}

// ConfigSchemaCheck loads and validates the config in effect.
type ConfigSchemaCheck struct {
	ConfigPath string
}

func (c *ConfigSchemaCheck) Name() string     { return "config_schema" }
func (c *ConfigSchemaCheck) Category() string { return CategoryConfig }

func (c *ConfigSchemaCheck) Run(context.Context) CheckResult {
	cfg, _, err := config.LoadOrDefault(c.ConfigPath)
	if err != nil {
		msg, _ := describe(err)
		return fail(c.Name(), "Failed to load config: "+msg, "Check the YAML syntax in your config file.")
	}
	if err := config.Validate(cfg); err != nil {
		msg, suggestion := describe(err)
		return fail(c.Name(), "Invalid config: "+msg, suggestion)
	}
	return pass(c.Name(), fmt.Sprintf("Config valid (version %d)", cfg.Version))
}
