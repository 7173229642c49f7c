// Package cliconfig holds the CLI-facing configuration for nndquant:
// defaults, validation, and the TOML-file / environment / flag layering.
// Precedence is file < environment < flags; explicitly set flags always win.
package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/punctalab/nndquant/internal/domain"
)

// Config holds CLI configuration for nndquant.
type Config struct {
	InputDir   string
	OutputDir  string
	OutputPath string

	Workers     int
	ArchivePath string

	Watch    bool
	Debounce time.Duration

	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Workers:  1,
		Debounce: 2 * time.Second,
		LogLevel: "info",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("%w: input folder is required", domain.ErrInvalidConfig)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Debounce <= 0 {
		c.Debounce = 2 * time.Second
	}
	if c.Watch && c.OutputPath != "" {
		return fmt.Errorf("%w: --watch repeats runs; a fixed --output path would overwrite each result, use --output-dir", domain.ErrInvalidConfig)
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag
// precedence. A value is only applied when the corresponding flag has not
// been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses environment-style string values.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
