// Package config loads and validates the skillsd JSON configuration.
package config

import (
	"os"
	"path/filepath"
	"sync"
)

var (
	mu             sync.RWMutex
	current        *Config
	configFilePath string
)

// Init loads the configuration file at the resolved path and makes it
// available through Get. explicit is the --config flag value and may be empty.
// A missing file is fatal for the caller: the returned error wraps ErrConfigNotFound.
func Init(explicit string) error {
	path := ResolvePath(explicit)

	cfg, err := LoadFromPath(path)
	if err != nil {
		return err
	}

	mu.Lock()
	current = cfg
	configFilePath = path
	mu.Unlock()

	return nil
}

// Get returns the loaded configuration, or nil before Init succeeds.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// ConfigFilePath returns the path of the loaded config file,
// or empty string if Init has not succeeded.
func ConfigFilePath() string {
	mu.RLock()
	defer mu.RUnlock()
	return configFilePath
}

// Reset clears the configuration state for testing purposes.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = nil
	configFilePath = ""
}

// ExpandPath expands a leading ~ in path to the user's home directory.
// Only "~" alone or "~/..." are expanded; "~user" is returned unchanged.
func ExpandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}

	if len(path) > 1 && path[1] != '/' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if len(path) == 1 {
		return home
	}

	return filepath.Join(home, path[2:])
}
