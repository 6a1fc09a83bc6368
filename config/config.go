// Package config assembles statekit subsystems from a single file.
//
// Each subsystem owns its Config, DefaultConfig, and Merge. This package
// composes them, loads overrides from JSON or YAML, and builds the
// configured backend, scheduler, and observer.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	prom "github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/statekit/observability"
	"github.com/tailored-agentic-units/statekit/storage"
	"github.com/tailored-agentic-units/statekit/timeout"
)

const defaultObserver = "slog"

// Config holds initialization parameters for all subsystems.
type Config struct {
	Storage  storage.Config `json:"storage" yaml:"storage"`
	Timeout  timeout.Config `json:"timeout" yaml:"timeout"`
	Observer string         `json:"observer,omitempty" yaml:"observer,omitempty"`
	Metrics  bool           `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// DefaultConfig returns a session backend, the clock scheduler, and the
// slog observer.
func DefaultConfig() Config {
	return Config{
		Storage:  storage.DefaultConfig(),
		Timeout:  timeout.DefaultConfig(),
		Observer: defaultObserver,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	c.Storage.Merge(&source.Storage)
	c.Timeout.Merge(&source.Timeout)

	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.Metrics {
		c.Metrics = true
	}
}

// Load reads a config file, merges it over the defaults, and returns the
// result. Files ending in .yaml or .yml are parsed as YAML, anything else
// as JSON. Environment variables in the file are expanded before parsing.
func Load(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	expanded := []byte(os.ExpandEnv(string(data)))

	var loaded Config
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(expanded, &loaded)
	default:
		err = json.Unmarshal(expanded, &loaded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

// NewBackend builds the configured storage backend. Release it with
// storage.Close.
func (c *Config) NewBackend() (storage.Backend, error) {
	return storage.New(&c.Storage)
}

// NewScheduler builds the configured timer scheduler. Release it with
// timeout.Close.
func (c *Config) NewScheduler() (timeout.Scheduler, error) {
	return timeout.NewScheduler(&c.Timeout)
}

// NewObserver resolves the named observer from the registry. With Metrics
// set, events are also counted in reg; a nil reg uses the default
// Prometheus registerer.
func (c *Config) NewObserver(reg prom.Registerer) (observability.Observer, error) {
	name := c.Observer
	if name == "" {
		name = defaultObserver
	}

	obs, err := observability.GetObserver(name)
	if err != nil {
		return nil, err
	}
	if !c.Metrics {
		return obs, nil
	}

	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	metrics, err := observability.NewPrometheusObserver(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics observer: %w", err)
	}
	return observability.NewMultiObserver(obs, metrics), nil
}
