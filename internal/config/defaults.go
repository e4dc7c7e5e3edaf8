package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appDir = "meazure"

// PlatformDataDir is where the catalog lives:
// ~/Library/Application Support/meazure on macOS, $XDG_DATA_HOME/meazure
// (~/.local/share/meazure) on Linux, %APPDATA%\meazure on Windows and
// ~/.meazure elsewhere.
func PlatformDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home(), "Library", "Application Support", appDir)
	case "linux":
		return filepath.Join(envDir("XDG_DATA_HOME", ".local", "share"), appDir)
	case "windows":
		return filepath.Join(envDir("APPDATA", "AppData", "Roaming"), appDir)
	}
	return filepath.Join(home(), "."+appDir)
}

// PlatformConfigDir holds config.toml. It is the data directory except on
// Linux, where $XDG_CONFIG_HOME/meazure (~/.config/meazure) is used.
func PlatformConfigDir() string {
	if runtime.GOOS == "linux" {
		return filepath.Join(envDir("XDG_CONFIG_HOME", ".config"), appDir)
	}
	return PlatformDataDir()
}

// PlatformLogDir holds meazure.log: ~/Library/Logs/meazure on macOS,
// %LOCALAPPDATA%\meazure\logs on Windows and a logs directory under the
// data directory elsewhere.
func PlatformLogDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home(), "Library", "Logs", appDir)
	case "windows":
		return filepath.Join(envDir("LOCALAPPDATA", "AppData", "Local"), appDir, "logs")
	}
	return filepath.Join(PlatformDataDir(), "logs")
}

func home() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	h, _ := os.UserHomeDir()
	return h
}

// envDir returns $key, or the home-relative fallback when it is unset.
func envDir(key string, fallback ...string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return filepath.Join(append([]string{home()}, fallback...)...)
}

// SupportedConfigFormats lists the config file extensions Load understands.
func SupportedConfigFormats() []string {
	return []string{"toml", "json", "yaml", "yml"}
}

// FindConfigFile returns the first config.<ext> in the working directory
// or the config directory, or "" if there is none.
func FindConfigFile() string {
	for _, dir := range []string{".", PlatformConfigDir()} {
		for _, ext := range SupportedConfigFormats() {
			path := filepath.Join(dir, "config."+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}
