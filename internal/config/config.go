// Package config loads italics configuration.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (ITALICS_LOGGING_LEVEL, ITALICS_SETTINGS_PATH, ...)
//  2. YAML config file
//  3. Defaults
//
// Environment variables drop the ITALICS_ prefix and split on the first
// underscore into section and field:
//
//	ITALICS_LOGGING_LEVEL     -> logging.level
//	ITALICS_SETTINGS_BACKEND  -> settings.backend
//	ITALICS_SCRIPT_TIMEOUT    -> script.timeout
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/dshills/italics/internal/logging"
	"github.com/dshills/italics/internal/theme"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ITALICS_"

const maxConfigFileSize = 1024 * 1024 // 1MB

// Settings backends.
const (
	BackendMemory = "memory"
	BackendTOML   = "toml"
	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
)

// Errors returned by Validate.
var (
	ErrUnknownBackend = errors.New("config: unknown settings backend")
	ErrMissingPath    = errors.New("config: settings path is required for this backend")
)

// Config is the root configuration.
type Config struct {
	Logging  logging.Config `koanf:"logging"`
	Settings Settings       `koanf:"settings"`
	Metrics  Metrics        `koanf:"metrics"`
	Preview  Preview        `koanf:"preview"`
	Script   Script         `koanf:"script"`
}

// Settings configures classification settings persistence.
type Settings struct {
	// Backend is one of memory, toml, yaml or sqlite.
	Backend string `koanf:"backend"`

	// Path is the settings file or SQLite database.
	Path string `koanf:"path"`

	// Watch reloads settings when the file changes on disk.
	Watch bool `koanf:"watch"`

	// Debounce coalesces bursts of file events.
	Debounce time.Duration `koanf:"debounce"`
}

// Metrics configures Prometheus collectors.
type Metrics struct {
	Enabled bool `koanf:"enabled"`
}

// Preview configures the terminal preview.
type Preview struct {
	Theme string `koanf:"theme"`
}

// Script configures Lua scripts.
type Script struct {
	Timeout time.Duration `koanf:"timeout"`
}

// Default returns the default configuration. Settings live in a TOML file
// under the user's config directory.
func Default() Config {
	return Config{
		Logging: logging.DefaultConfig(),
		Settings: Settings{
			Backend:  BackendTOML,
			Path:     filepath.Join(DefaultDir(), "settings.toml"),
			Watch:    true,
			Debounce: 100 * time.Millisecond,
		},
		Preview: Preview{Theme: "default"},
		Script:  Script{Timeout: 5 * time.Second},
	}
}

// DefaultDir returns the italics config directory.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".italics"
	}
	return filepath.Join(dir, "italics")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Load reads configuration from path, then environment variables. An empty
// path means DefaultPath, which may be absent. An explicit path must exist.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	content, err := readConfigFile(path)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps ITALICS_SETTINGS_PATH to settings.path.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, found := strings.Cut(lower, "_")
	if !found {
		return lower
	}
	return section + "." + field
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Settings.Validate(); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if _, err := theme.ByName(c.Preview.Theme); err != nil {
		return fmt.Errorf("preview: %w: %q", err, c.Preview.Theme)
	}
	if c.Script.Timeout < 0 {
		return fmt.Errorf("script: timeout must not be negative")
	}
	return nil
}

// Validate checks the settings section.
func (s Settings) Validate() error {
	switch s.Backend {
	case BackendMemory:
	case BackendTOML, BackendYAML, BackendSQLite:
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("%w: %s", ErrMissingPath, s.Backend)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, s.Backend)
	}
	if s.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative")
	}
	return nil
}
