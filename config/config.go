// Package config provides YAML configuration parsing for SnapView.
//
// This package enables running SnapView as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	camera_name: front-door
//	listen: 0.0.0.0:8080
//	refresh_delay: 500ms
//	template_file: /etc/snapview/viewer.html
//	jpeg_quality: 85
//	verbose: false
//
//	source:
//	  width: 640
//	  height: 480
//	  frame_interval: 100ms
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultCameraName    = "camera"
	DefaultListen        = "0.0.0.0:8080"
	DefaultRefreshDelay  = 1 * time.Second
	DefaultJPEGQuality   = 90
	DefaultSourceWidth   = 640
	DefaultSourceHeight  = 480
	DefaultFrameInterval = 100 * time.Millisecond
)

// minRefreshDelay is the minimum allowed viewer refresh delay. This prevents
// accidental self-DoS from overly aggressive polling.
const minRefreshDelay = 100 * time.Millisecond

// Config is the root configuration structure for SnapView.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// CameraName is the display name shown on the viewer page.
	CameraName string `yaml:"camera_name"`

	// Listen is the HTTP bind address ("host:port"). An explicit empty
	// string disables the server. Supports environment variable
	// substitution: ${VAR} or ${VAR:-default}.
	Listen *string `yaml:"listen"`

	// RefreshDelay is the default viewer refresh delay.
	// Accepts duration strings like "500ms", "2s". Defaults to 1s.
	RefreshDelay Duration `yaml:"refresh_delay"`

	// TemplateFile is an optional on-disk viewer template. When empty, the
	// embedded default page is served. Supports environment variable
	// substitution.
	TemplateFile string `yaml:"template_file"`

	// JPEGQuality is the snapshot encoding quality (1-100). Defaults to 90.
	JPEGQuality int `yaml:"jpeg_quality"`

	// Verbose enables access-log lines for the snapshot route, which are
	// otherwise demoted to debug level.
	Verbose bool `yaml:"verbose"`

	// Source configures the synthetic frame producer used by the CLI.
	Source SourceConfig `yaml:"source"`
}

// SourceConfig describes the synthetic test-pattern producer driven by the
// serve command. Embedders publishing real camera frames ignore this section.
type SourceConfig struct {
	// Width and Height are the generated frame dimensions.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// FrameInterval is the time between generated frames.
	FrameInterval Duration `yaml:"frame_interval"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// ListenAddress returns the effective bind address: the configured value, or
// the default when the field was absent. An explicit empty string stays
// empty (server disabled).
func (c *Config) ListenAddress() string {
	if c.Listen == nil {
		return DefaultListen
	}
	return *c.Listen
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in Listen and TemplateFile. Defaults
// are applied for absent fields, and the result is validated.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Listen != nil {
		expanded, err := expandEnvVars(*cfg.Listen)
		if err != nil {
			return nil, fmt.Errorf("listen: %w", err)
		}
		cfg.Listen = &expanded
	}
	if cfg.TemplateFile != "" {
		expanded, err := expandEnvVars(cfg.TemplateFile)
		if err != nil {
			return nil, fmt.Errorf("template_file: %w", err)
		}
		cfg.TemplateFile = expanded
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.CameraName == "" {
		cfg.CameraName = DefaultCameraName
	}
	if cfg.RefreshDelay == 0 {
		cfg.RefreshDelay = Duration(DefaultRefreshDelay)
	}
	if cfg.JPEGQuality == 0 {
		cfg.JPEGQuality = DefaultJPEGQuality
	}
	if cfg.Source.Width == 0 {
		cfg.Source.Width = DefaultSourceWidth
	}
	if cfg.Source.Height == 0 {
		cfg.Source.Height = DefaultSourceHeight
	}
	if cfg.Source.FrameInterval == 0 {
		cfg.Source.FrameInterval = Duration(DefaultFrameInterval)
	}
}

func validate(cfg *Config) error {
	if cfg.RefreshDelay.Duration() < minRefreshDelay {
		return fmt.Errorf("refresh_delay must be at least %s, got %s",
			minRefreshDelay, cfg.RefreshDelay.Duration())
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", cfg.JPEGQuality)
	}
	if cfg.Source.Width < 1 || cfg.Source.Height < 1 {
		return fmt.Errorf("source dimensions must be positive, got %dx%d",
			cfg.Source.Width, cfg.Source.Height)
	}
	if cfg.Source.FrameInterval.Duration() < time.Millisecond {
		return fmt.Errorf("source frame_interval must be at least 1ms, got %s",
			cfg.Source.FrameInterval.Duration())
	}
	return nil
}
