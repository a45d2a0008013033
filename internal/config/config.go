// Package config loads the service configuration. Connection parameters
// are injected here, never hardcoded at call sites.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration parses YAML durations in Go syntax ("2s", "150ms").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard-library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full service configuration.
type Config struct {
	Listen string `yaml:"listen"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Store struct {
		Timeout      Duration `yaml:"timeout"`
		RetryBackoff Duration `yaml:"retry_backoff"`
	} `yaml:"store"`

	Request struct {
		Timeout Duration `yaml:"timeout"`
	} `yaml:"request"`

	Drift struct {
		Alpha      float64 `yaml:"alpha"`
		MinSamples int     `yaml:"min_samples"`
	} `yaml:"drift"`

	Artifacts struct {
		Model     string `yaml:"model"`
		Reference string `yaml:"reference"`
		Schema    string `yaml:"schema"` // empty: use the bundled schema
	} `yaml:"artifacts"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{Listen: ":8080"}
	c.Redis.Addr = "localhost:6379"
	c.Store.Timeout = Duration(2 * time.Second)
	c.Store.RetryBackoff = Duration(100 * time.Millisecond)
	c.Request.Timeout = Duration(5 * time.Second)
	c.Drift.Alpha = 0.05
	c.Drift.MinSamples = 30
	c.Artifacts.Model = "artifacts/model.json"
	c.Artifacts.Reference = "artifacts/reference.json"
	c.Log.Level = "info"
	c.Log.Format = "text"
	return c
}

// Load reads a YAML config file over the defaults. Unknown keys are
// rejected so a typo does not silently fall back to a default.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}
