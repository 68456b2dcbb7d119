// Package config loads run settings from defaults, an optional YAML file,
// a .env file and QPIXEL_* environment variables, in that order.
package config

import (
	"bytes"
	"io"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by every command.
type Config struct {
	Seed      uint64 `yaml:"seed"`
	Workers   int    `yaml:"workers"`
	Simulate  bool   `yaml:"simulate"`
	ChunkSize int    `yaml:"chunk_size"`
	Threshold uint8  `yaml:"threshold"`

	LogLevel      string `yaml:"log_level"`
	DevMode       bool   `yaml:"dev_mode"`
	LogFile       string `yaml:"log_file"`
	TraceCircuits int    `yaml:"trace_circuits"`
	TUI           bool   `yaml:"tui"`
}

// Default returns the sequential reference configuration.
func Default() Config {
	return Config{
		Seed:          1,
		Workers:       1,
		ChunkSize:     1000,
		Threshold:     127,
		LogLevel:      "info",
		TraceCircuits: 3,
	}
}

// Load builds a Config. path may be empty; envFile is loaded into the
// process environment if it exists and never overrides variables that are
// already set.
func Load(path, envFile string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "read config")
		}
		if err := cfg.decode(data); err != nil {
			return cfg, errors.Wrapf(err, "parse %s", path)
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(errors.Cause(err)) {
			return cfg, errors.Wrapf(err, "load %s", envFile)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return err
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func (l lookupFunc) get(key string) (string, bool) {
	s, ok := l(key)
	return s, ok && s != ""
}

func (l lookupFunc) int(key string, dst *int) error {
	s, ok := l.get(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return errors.Wrapf(err, "%s=%q", key, s)
	}
	*dst = v
	return nil
}

func (l lookupFunc) bool(key string, dst *bool) error {
	s, ok := l.get(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return errors.Wrapf(err, "%s=%q", key, s)
	}
	*dst = v
	return nil
}

func (l lookupFunc) uint(key string, bits int) (uint64, bool, error) {
	s, ok := l.get(key)
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return 0, false, errors.Wrapf(err, "%s=%q", key, s)
	}
	return v, true, nil
}

func (c *Config) applyEnv(lookup lookupFunc) error {
	if v, ok, err := lookup.uint("QPIXEL_SEED", 64); err != nil {
		return err
	} else if ok {
		c.Seed = v
	}
	if v, ok, err := lookup.uint("QPIXEL_THRESHOLD", 8); err != nil {
		return err
	} else if ok {
		c.Threshold = uint8(v)
	}
	for key, dst := range map[string]*int{
		"QPIXEL_WORKERS":    &c.Workers,
		"QPIXEL_CHUNK_SIZE": &c.ChunkSize,
	} {
		if err := lookup.int(key, dst); err != nil {
			return err
		}
	}
	for key, dst := range map[string]*bool{
		"QPIXEL_SIMULATE": &c.Simulate,
		"QPIXEL_DEV_MODE": &c.DevMode,
		"QPIXEL_TUI":      &c.TUI,
	} {
		if err := lookup.bool(key, dst); err != nil {
			return err
		}
	}
	if s, ok := lookup.get("QPIXEL_LOG_LEVEL"); ok {
		c.LogLevel = s
	}
	if s, ok := lookup.get("QPIXEL_LOG_FILE"); ok {
		c.LogFile = s
	}
	return nil
}

// Validate rejects settings no pass can run with.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return errors.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.ChunkSize < 1 {
		return errors.Errorf("chunk_size must be at least 1, got %d", c.ChunkSize)
	}
	if c.TraceCircuits < 0 {
		return errors.Errorf("trace_circuits must not be negative, got %d", c.TraceCircuits)
	}
	return nil
}
