// Package config loads and validates the optional .cmdtest YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file.
const FileName = ".cmdtest"

// Default values for runner and report configuration.
const (
	DefaultTimeout    = time.Minute
	DefaultMaxOutput  = 1 << 20 // 1 MB
	DefaultReportPath = "test_processes_results.xml"
	DefaultStoreCache = 5
)

// Config holds the parsed .cmdtest configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int         `yaml:"version"`
	RawTimeout   string      `yaml:"timeout"`    // used for commands declaring timeout 0, e.g. "30s"
	RawMaxOutput int         `yaml:"max_output"` // bytes per stream
	StrictLaunch bool        `yaml:"strict_launch"`
	Report       string      `yaml:"report"`  // JUnit output path
	Metrics      string      `yaml:"metrics"` // Prometheus textfile path; empty disables
	Log          LogConfig   `yaml:"log"`
	Store        StoreConfig `yaml:"store"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Format string `yaml:"format"` // text or json
	Level  string `yaml:"level"`  // debug, info, warn, error
}

// StoreConfig controls where finished runs are kept for inspection.
type StoreConfig struct {
	Dir   string `yaml:"dir"`   // default: a temp directory
	Cache int    `yaml:"cache"` // runs held in memory
}

// Timeout returns the configured default timeout or the package default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// ReportPath returns the configured report path or the default.
func (c *Config) ReportPath() string {
	if c.Report != "" {
		return c.Report
	}
	return DefaultReportPath
}

// StoreCache returns the configured in-memory run cache size or the default.
func (c *Config) StoreCache() int {
	if c.Store.Cache > 0 {
		return c.Store.Cache
	}
	return DefaultStoreCache
}

// Validate reports configuration values that would otherwise be
// silently replaced by defaults.
func (c *Config) Validate() error {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("timeout: must be positive, got %s", c.RawTimeout)
		}
	}
	if c.RawMaxOutput < 0 {
		return fmt.Errorf("max_output: must not be negative, got %d", c.RawMaxOutput)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format: want text or json, got %q", c.Log.Format)
	}
	return nil
}

// LoadResult holds the parsed config and the directory it was found in.
type LoadResult struct {
	Config *Config
	Root   string // directory containing .cmdtest; falls back to workspace
}

// Load reads the .cmdtest file. It is discovered by walking upward from
// workspace. If no file exists, a default Config rooted at workspace is
// returned.
func Load(workspace string) (*LoadResult, error) {
	root, err := findConfigRoot(workspace)
	if err != nil {
		return &LoadResult{Config: &Config{}, Root: workspace}, nil
	}

	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Root: root}, nil
}

// findConfigRoot walks upward from dir looking for a directory containing
// a .cmdtest file.
func findConfigRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if fi, err := os.Stat(filepath.Join(dir, FileName)); err == nil && !fi.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", FileName)
		}
		dir = parent
	}
}
