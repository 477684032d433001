// Package config provides configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"tgform/internal/core"
)

// DefaultPath is read when Load is called without an explicit path.
const DefaultPath = "config.yaml"

// Config holds the application configuration
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Input  InputConfig  `yaml:"input"`
	Output OutputConfig `yaml:"output"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
	// Format is pretty (tint console output) or json
	Format string `yaml:"format"`
}

// InputConfig controls how payload documents are read
type InputConfig struct {
	// BaseDir resolves relative $file paths; empty means the working directory
	BaseDir string `yaml:"base_dir"`
	// Format forces json or yaml; empty detects from the file extension
	Format string `yaml:"format"`
}

// OutputConfig controls how formatted payloads are printed
type OutputConfig struct {
	// Indent is the number of spaces per JSON level; 0 prints compact JSON
	Indent int `yaml:"indent"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "pretty",
		},
		Output: OutputConfig{
			Indent: 2,
		},
	}
}

// Load builds the configuration in layers: defaults, then the YAML file at
// path (DefaultPath when empty, in which case a missing file is fine), then
// a .env file in the working directory, then environment variables.
//
// ${VAR} and ${VAR:-default} placeholders in the YAML file are expanded
// before parsing.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal([]byte(expandString(string(data))), cfg); err != nil {
			return nil, core.NewConfigError(fmt.Sprintf("failed to parse %s", path), err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, core.NewConfigError(fmt.Sprintf("failed to read %s", path), err)
	}

	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, core.NewConfigError("failed to load .env", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnvPrefix prefixes every environment override, e.g. TGFORM_LOG_LEVEL.
const EnvPrefix = "TGFORM"

// applyEnvOverrides applies TGFORM_* environment variables on top of cfg.
// Empty variables are treated as unset.
func applyEnvOverrides(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if s := v.GetString("log_level"); s != "" {
		cfg.Log.Level = s
	}
	if s := v.GetString("log_format"); s != "" {
		cfg.Log.Format = s
	}
	if s := v.GetString("base_dir"); s != "" {
		cfg.Input.BaseDir = s
	}
	if s := v.GetString("input_format"); s != "" {
		cfg.Input.Format = s
	}
	// GetInt would turn a typo into 0.
	if s := v.GetString("indent"); s != "" {
		indent, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return core.NewConfigError(fmt.Sprintf("%s_INDENT must be an integer, got %q", EnvPrefix, s), err)
		}
		cfg.Output.Indent = indent
	}
	return nil
}

// Validate checks value ranges and normalizes case.
func (c *Config) Validate() error {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return core.NewConfigError(fmt.Sprintf("invalid log level %q", c.Log.Level), nil)
	}

	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch c.Log.Format {
	case "pretty", "json":
	default:
		return core.NewConfigError(fmt.Sprintf("invalid log format %q", c.Log.Format), nil)
	}

	c.Input.Format = strings.ToLower(strings.TrimSpace(c.Input.Format))
	switch c.Input.Format {
	case "", "json", "yaml":
	default:
		return core.NewConfigError(fmt.Sprintf("invalid input format %q", c.Input.Format), nil)
	}

	if c.Output.Indent < 0 || c.Output.Indent > 8 {
		return core.NewConfigError(fmt.Sprintf("output indent %d out of range 0-8", c.Output.Indent), nil)
	}
	return nil
}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString replaces ${VAR} and ${VAR:-default} placeholders.
// ${VAR} stays as written when VAR is unset or empty; ${VAR:-default} falls
// back to default in both cases.
func expandString(s string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := placeholderPattern.FindStringSubmatch(match)
		name, hasDefault, def := groups[1], groups[2] != "", groups[3]
		if v := os.Getenv(name); v != "" {
			return v
		}
		if hasDefault {
			return def
		}
		return match
	})
}
