// Package config defines the mvmatch run configuration and its loading rules.
//
// Precedence, highest first: command-line flags, MVMATCH_* environment
// variables, a .mvmatch.yaml file next to the scene file, built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openrecon/mvmatch/internal/errors"
)

// ConfigFileName is the optional per-dataset config file.
const ConfigFileName = ".mvmatch.yaml"

// DefaultRatio is the default nearest/second-nearest distance ratio.
const DefaultRatio = 0.8

// Config is the complete mvmatch run configuration.
type Config struct {
	// ScenePath is the input scene description file (required).
	ScenePath string `yaml:"scene"`

	// OutputPath is the match file to write (required).
	OutputPath string `yaml:"output"`

	// PairListPath is the candidate pair list file (required).
	PairListPath string `yaml:"pair_list"`

	// Ratio is the nearest/second-nearest distance ratio threshold.
	Ratio float64 `yaml:"ratio"`

	// Method selects the nearest-neighbor matching method.
	Method string `yaml:"method"`

	// Force recomputes matches even when the output file already exists.
	Force bool `yaml:"force"`

	// CacheSize bounds the number of region sets held in memory.
	// 0 keeps every view's regions in memory for the whole run.
	CacheSize int `yaml:"cache_size"`

	// Workers is the number of pair-matching workers. 0 means NumCPU.
	Workers int `yaml:"workers"`

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// NoProgress disables the progress reporter.
	NoProgress bool `yaml:"no_progress"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Ratio:    DefaultRatio,
		Method:   "AUTO",
		LogLevel: "warn",
	}
}

// Load builds the effective configuration for a run.
// Flag values are applied by the caller on top of the returned Config.
func Load(sceneDir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(sceneDir); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	return cfg, nil
}

// loadFromFile merges the optional YAML config file from dir, if present.
func (c *Config) loadFromFile(dir string) error {
	if dir == "" {
		return nil
	}
	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigNotFound, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.ConfigError(
			fmt.Sprintf("malformed config file %s: %v", path, err), err)
	}
	return nil
}

// applyEnvOverrides applies MVMATCH_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MVMATCH_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Ratio = f
		}
	}
	if v := os.Getenv("MVMATCH_METHOD"); v != "" {
		c.Method = v
	}
	if v := os.Getenv("MVMATCH_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CacheSize = n
		}
	}
	if v := os.Getenv("MVMATCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv("MVMATCH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// EffectiveWorkers resolves the worker count for the matching pool.
func (c *Config) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// MatchesDir returns the directory the output file lives in.
// Descriptor files and diagnostics are expected alongside the output.
func (c *Config) MatchesDir() string {
	return filepath.Dir(c.OutputPath)
}

// Validate checks the configuration before any work starts.
func (c *Config) Validate() error {
	if c.ScenePath == "" {
		return errors.ConfigError("no input scene file set", nil).
			WithSuggestion("pass the scene file with --input")
	}
	if c.OutputPath == "" {
		return errors.ConfigError("no output file set", nil).
			WithSuggestion("pass the output match file with --output")
	}
	if c.PairListPath == "" {
		return errors.ConfigError("no pair list file set", nil).
			WithSuggestion("pass the candidate pair list with --pair-list")
	}
	if c.Ratio <= 0 || c.Ratio >= 1 {
		return errors.ConfigError(
			fmt.Sprintf("ratio must be in (0,1), got %g", c.Ratio), nil)
	}
	if c.CacheSize < 0 {
		return errors.ConfigError(
			fmt.Sprintf("cache size must be non-negative, got %d", c.CacheSize), nil)
	}
	if c.Workers < 0 {
		return errors.ConfigError(
			fmt.Sprintf("workers must be non-negative, got %d", c.Workers), nil)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return errors.ConfigError(
			fmt.Sprintf("unknown log level %q", c.LogLevel), nil)
	}
	return nil
}

// CacheSizeString renders the cache size the way the run banner reports it.
func (c *Config) CacheSizeString() string {
	if c.CacheSize == 0 {
		return "unlimited"
	}
	return strconv.Itoa(c.CacheSize)
}
