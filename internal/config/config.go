// Package config handles configuration loading, validation, and management
// for the position log tools.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Log configures the contents of written position log files.
	Log LogConfig `toml:"log" json:"log" yaml:"log"`

	// Catalog configures the database of recently used log files.
	Catalog CatalogConfig `toml:"catalog" json:"catalog" yaml:"catalog"`

	// Watch configures detection of external edits to the open log.
	Watch WatchConfig `toml:"watch" json:"watch" yaml:"watch"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// LogConfig holds position log file settings.
type LogConfig struct {
	// DefaultTitle is used when a log is saved without a title.
	DefaultTitle string `toml:"default_title" json:"default_title" yaml:"default_title"`

	// GeneratorName, GeneratorVersion and GeneratorBuild identify the
	// writing program in the <generator> element.
	GeneratorName    string `toml:"generator_name" json:"generator_name" yaml:"generator_name"`
	GeneratorVersion string `toml:"generator_version" json:"generator_version" yaml:"generator_version"`
	GeneratorBuild   string `toml:"generator_build" json:"generator_build" yaml:"generator_build"`

	// MachineName overrides the host name written in <machine>.
	MachineName string `toml:"machine_name" json:"machine_name" yaml:"machine_name"`

	// DTDURL is the doctype system identifier.
	DTDURL string `toml:"dtd_url" json:"dtd_url" yaml:"dtd_url"`

	// Extension is the log file suffix without the dot.
	Extension string `toml:"extension" json:"extension" yaml:"extension"`
}

// CatalogConfig holds catalog database settings.
type CatalogConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Path is the SQLite database file.
	Path string `toml:"path" json:"path" yaml:"path"`

	// RecentLimit caps the number of entries listed as recent.
	RecentLimit int `toml:"recent_limit" json:"recent_limit" yaml:"recent_limit"`
}

// WatchConfig holds file watching configuration.
type WatchConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// DebounceMs is how long the file must be stable before a change is
	// reported.
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms" yaml:"debounce_ms"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log destination: "stdout", "stderr", "file" or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file path when Output includes a file.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// Compress gzips rotated files.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dir := DataDir()
	return &Config{
		Version: Version,
		Log: LogConfig{
			DefaultTitle:     "Meazure Positions",
			GeneratorName:    "meazure",
			GeneratorVersion: "1.0.0",
			GeneratorBuild:   "1",
			DTDURL:           "https://www.cthing.com/dtd/PositionLog1.dtd",
			Extension:        "mpl",
		},
		Catalog: CatalogConfig{
			Enabled:     true,
			Path:        filepath.Join(dir, "catalog.db"),
			RecentLimit: 10,
		},
		Watch: WatchConfig{
			Enabled:    false,
			DebounceMs: 500,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(PlatformLogDir(), "meazure.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   true,
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// DataDir returns the base data directory.
// Uses platform-specific paths or the MEAZURE_DATA_DIR environment override.
func DataDir() string {
	if envDir := os.Getenv("MEAZURE_DATA_DIR"); envDir != "" {
		return envDir
	}
	return PlatformDataDir()
}

// Load reads configuration from the specified path.
// If the file doesn't exist, returns default configuration.
// Supports TOML, JSON, and YAML formats based on file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// EnsureDirectories creates the directories the configured files live in.
func (c *Config) EnsureDirectories() error {
	dirs := []string{}
	if c.Catalog.Enabled {
		dirs = append(dirs, filepath.Dir(c.Catalog.Path))
	}
	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Variables are prefixed with MEAZURE_.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v := os.Getenv("MEAZURE_CATALOG_PATH"); v != "" {
		c.Catalog.Path = v
	}
	if v := os.Getenv("MEAZURE_CATALOG_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Catalog.Enabled = b
		}
	}

	if v := os.Getenv("MEAZURE_MACHINE_NAME"); v != "" {
		c.Log.MachineName = v
	}
	if v := os.Getenv("MEAZURE_DTD_URL"); v != "" {
		c.Log.DTDURL = v
	}

	if v := os.Getenv("MEAZURE_WATCH_DEBOUNCE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Watch.DebounceMs = n
		}
	}

	if v := os.Getenv("MEAZURE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MEAZURE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("MEAZURE_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Config{
		Version: c.Version,
		Log:     c.Log,
		Catalog: c.Catalog,
		Watch:   c.Watch,
		Logging: c.Logging,
	}
}

// Machine returns the configured machine name, falling back to the host
// name.
func (c *Config) Machine() string {
	if c.Log.MachineName != "" {
		return c.Log.MachineName
	}
	host, err := os.Hostname()
	if err != nil {
		return ""
	}
	return host
}
