package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level tyinfer.yaml configuration.
type Config struct {
	// MaxPasses bounds the number of InferLocal passes. Never above PassCeiling.
	MaxPasses int `yaml:"max_passes"`

	// Parallel enables per-function constraint collection on a worker pool.
	Parallel bool `yaml:"parallel"`

	// Workers caps the worker pool size. Defaults to GOMAXPROCS.
	Workers int `yaml:"workers"`

	// TargetVersion is the source-language version stubs are gated against.
	TargetVersion string `yaml:"target_version"`

	// Stubs lists extra stub files, relative to the config file.
	Stubs []string `yaml:"stubs,omitempty"`

	Telemetry TelemetryConfig `yaml:"telemetry"`

	dir string
}

// TelemetryConfig configures the unknown-type event sink.
type TelemetryConfig struct {
	// DSN is a sqlite path/"file:" URI or a postgres:// URL. Empty disables telemetry.
	DSN string `yaml:"dsn"`
}

// ValidationError reports a semantically invalid configuration.
type ValidationError struct {
	Path  string
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Field, e.Msg)
}

// DefaultTargetVersion is used when no target_version is configured.
const DefaultTargetVersion = "3.12"

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads and parses a tyinfer.yaml file, then applies
// environment overrides (a .env file next to the config is honoured).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	cfg, err := ParseConfig(data, path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseConfig parses tyinfer.yaml content from bytes.
// The path argument is used for error messages and to resolve stub paths.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	cfg.setDefaults()
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindConfig searches for tyinfer.yaml starting from dir and walking up
// to parent directories. Returns an empty path and nil error if not found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// ApplyEnv overrides fields from TYINFER_* variables looked up through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvMaxPasses); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxPasses, err)
		}
		c.MaxPasses = n
	}
	if v := getenv(EnvParallel); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvParallel, err)
		}
		c.Parallel = b
	}
	if v := getenv(EnvTargetVersion); v != "" {
		c.TargetVersion = v
	}
	if v := getenv(EnvTelemetryDSN); v != "" {
		c.Telemetry.DSN = v
	}
	return c.validate("environment")
}

// Target returns the parsed target version.
func (c *Config) Target() *semver.Version {
	v, err := semver.NewVersion(c.TargetVersion)
	if err != nil {
		return semver.MustParse(DefaultTargetVersion)
	}
	return v
}

// StubPaths returns the configured stub files resolved against the config directory.
func (c *Config) StubPaths() []string {
	paths := make([]string, len(c.Stubs))
	for i, s := range c.Stubs {
		if filepath.IsAbs(s) || c.dir == "" {
			paths[i] = s
		} else {
			paths[i] = filepath.Join(c.dir, s)
		}
	}
	return paths
}

func (c *Config) validate(path string) error {
	var errs []error
	if c.MaxPasses < 1 || c.MaxPasses > PassCeiling {
		errs = append(errs, &ValidationError{Path: path, Field: "max_passes",
			Msg: fmt.Sprintf("must be between 1 and %d, got %d", PassCeiling, c.MaxPasses)})
	}
	if c.Workers < 1 {
		errs = append(errs, &ValidationError{Path: path, Field: "workers",
			Msg: fmt.Sprintf("must be positive, got %d", c.Workers)})
	}
	if _, err := semver.NewVersion(c.TargetVersion); err != nil {
		errs = append(errs, &ValidationError{Path: path, Field: "target_version",
			Msg: fmt.Sprintf("invalid version %q: %v", c.TargetVersion, err)})
	}
	for i, s := range c.Stubs {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, &ValidationError{Path: path, Field: fmt.Sprintf("stubs[%d]", i), Msg: "empty path"})
		}
	}
	return errors.Join(errs...)
}

// setDefaults fills in default values for omitted fields.
func (c *Config) setDefaults() {
	if c.MaxPasses == 0 {
		c.MaxPasses = PassCeiling
	}
	if c.Workers == 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.TargetVersion == "" {
		c.TargetVersion = DefaultTargetVersion
	}
}
