package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("MEAZURE_DATA_DIR", "/tmp/meazure-test")

	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if cfg.Version != Version {
		t.Errorf("expected version %d, got %d", Version, cfg.Version)
	}
	if cfg.Log.Extension != "mpl" {
		t.Errorf("expected extension mpl, got %s", cfg.Log.Extension)
	}
	if !strings.HasPrefix(cfg.Catalog.Path, "/tmp/meazure-test") {
		t.Errorf("catalog path should honor MEAZURE_DATA_DIR: %s", cfg.Catalog.Path)
	}
	if cfg.Watch.DebounceMs != 500 {
		t.Errorf("expected debounce 500, got %d", cfg.Watch.DebounceMs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigPath(t *testing.T) {
	path := ConfigPath()
	if !strings.HasSuffix(path, "config.toml") {
		t.Errorf("expected path ending with config.toml, got %s", path)
	}
	if !strings.Contains(path, "meazure") {
		t.Errorf("config path should contain meazure: %s", path)
	}
}

func TestDataDirOverride(t *testing.T) {
	t.Setenv("MEAZURE_DATA_DIR", "/custom/dir")
	if got := DataDir(); got != "/custom/dir" {
		t.Errorf("expected /custom/dir, got %s", got)
	}
}

func TestLoadNonexistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.GeneratorName != "meazure" {
		t.Errorf("expected default generator name, got %s", cfg.Log.GeneratorName)
	}
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "toml",
			file: "config.toml",
			content: `
version = 1

[log]
machine_name = "bench"

[watch]
debounce_ms = 250
`,
		},
		{
			name:    "json",
			file:    "config.json",
			content: `{"log": {"machine_name": "bench"}, "watch": {"debounce_ms": 250}}`,
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: `
log:
  machine_name: bench
watch:
  debounce_ms: 250
`,
		},
		{
			name:    "autodetect",
			file:    "meazure.conf",
			content: "[log]\nmachine_name = \"bench\"\n[watch]\ndebounce_ms = 250\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tc.file)
			if err := os.WriteFile(path, []byte(tc.content), 0644); err != nil {
				t.Fatalf("write config: %v", err)
			}

			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.Log.MachineName != "bench" {
				t.Errorf("expected machine bench, got %q", cfg.Log.MachineName)
			}
			if cfg.Watch.DebounceMs != 250 {
				t.Errorf("expected debounce 250, got %d", cfg.Watch.DebounceMs)
			}
			// Unset fields keep their defaults.
			if cfg.Log.Extension != "mpl" {
				t.Errorf("expected default extension, got %q", cfg.Log.Extension)
			}
		})
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[log\nbroken"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MEAZURE_CATALOG_PATH", "/env/catalog.db")
	t.Setenv("MEAZURE_CATALOG_ENABLED", "false")
	t.Setenv("MEAZURE_MACHINE_NAME", "envhost")
	t.Setenv("MEAZURE_WATCH_DEBOUNCE_MS", "1000")
	t.Setenv("MEAZURE_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Catalog.Path != "/env/catalog.db" {
		t.Errorf("catalog path not overridden: %s", cfg.Catalog.Path)
	}
	if cfg.Catalog.Enabled {
		t.Error("catalog should be disabled")
	}
	if cfg.Machine() != "envhost" {
		t.Errorf("machine not overridden: %s", cfg.Machine())
	}
	if cfg.Watch.DebounceMs != 1000 {
		t.Errorf("debounce not overridden: %d", cfg.Watch.DebounceMs)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level not overridden: %s", cfg.Logging.Level)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"version", func(c *Config) { c.Version = 99 }, "version"},
		{"generator", func(c *Config) { c.Log.GeneratorName = "" }, "log.generator_name"},
		{"extension", func(c *Config) { c.Log.Extension = "a/b" }, "log.extension"},
		{"catalog path", func(c *Config) { c.Catalog.Path = "" }, "catalog.path"},
		{"recent limit", func(c *Config) { c.Catalog.RecentLimit = -1 }, "catalog.recent_limit"},
		{"debounce", func(c *Config) { c.Watch.DebounceMs = 1 }, "watch.debounce_ms"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"output", func(c *Config) { c.Logging.Output = "syslog" }, "logging.output"},
		{"file path", func(c *Config) {
			c.Logging.Output = "file"
			c.Logging.FilePath = ""
		}, "logging.file_path"},
		{"max size", func(c *Config) { c.Logging.MaxSizeMB = 0 }, "logging.max_size_mb"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T", err)
			}
			found := false
			for _, ve := range verrs {
				if ve.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tc.field, err)
			}
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.DTDURL = "file:///tmp/PositionLog1.dtd"

	err := cfg.Validate()
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if verrs.HasErrors() {
		t.Errorf("non-http doctype should only warn: %v", verrs.Errors())
	}
	if len(verrs.Warnings()) != 1 {
		t.Errorf("expected 1 warning, got %d", len(verrs.Warnings()))
	}
}

func TestEnsureDirectories(t *testing.T) {
	tmp := t.TempDir()

	cfg := DefaultConfig()
	cfg.Catalog.Path = filepath.Join(tmp, "data", "catalog.db")
	cfg.Logging.Output = "file"
	cfg.Logging.FilePath = filepath.Join(tmp, "logs", "nested", "meazure.log")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{
		filepath.Join(tmp, "data"),
		filepath.Join(tmp, "logs", "nested"),
	} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("directory %s not created", dir)
		}
	}
}

func TestSaveAndReload(t *testing.T) {
	for _, ext := range SupportedConfigFormats() {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sub", "config."+ext)

			cfg := DefaultConfig()
			cfg.Log.DefaultTitle = "Bench Session"
			cfg.Catalog.RecentLimit = 25
			if err := SaveConfig(cfg, path); err != nil {
				t.Fatalf("SaveConfig failed: %v", err)
			}

			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if loaded.Log.DefaultTitle != "Bench Session" {
				t.Errorf("title not preserved: %q", loaded.Log.DefaultTitle)
			}
			if loaded.Catalog.RecentLimit != 25 {
				t.Errorf("recent limit not preserved: %d", loaded.Catalog.RecentLimit)
			}
		})
	}
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, created, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}
	if !created {
		t.Error("expected config file to be created")
	}
	if cfg == nil {
		t.Fatal("nil config")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file missing: %v", err)
	}

	_, created, err = LoadOrCreate(path)
	if err != nil {
		t.Fatalf("second LoadOrCreate failed: %v", err)
	}
	if created {
		t.Error("second call should not create")
	}
}

func TestClone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Log.DefaultTitle = "changed"
	if cfg.Log.DefaultTitle == "changed" {
		t.Error("clone shares state with original")
	}
}
