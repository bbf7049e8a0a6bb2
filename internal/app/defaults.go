package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"snapstore/internal/config"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - SNAPSTORE_CONFIG_PATH: config file location (default: ~/.config/snapstore.toml)
//   - SNAPSTORE_HOME: base directory for snapstore data (default: ~/.local/share/snapstore)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// LoadConfig reads the config file from the default location. A missing file
// is not an error; defaults rooted at the base directory are returned instead.
func LoadConfig() (*config.Config, error) {
	defaults, err := GetDefaults()
	if err != nil {
		return nil, err
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if errors.Is(err, fs.ErrNotExist) {
		return config.NewConfig(defaults["base_dir"]), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// getConfigPath returns the config file path, checking SNAPSTORE_CONFIG_PATH
// first, then falling back to the default ~/.config/snapstore.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("SNAPSTORE_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "snapstore.toml"), nil
}

// getBaseDir returns the base directory for snapstore data, checking
// SNAPSTORE_HOME first, then falling back to the XDG default
// ~/.local/share/snapstore.
func getBaseDir() (string, error) {
	if path := os.Getenv("SNAPSTORE_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "snapstore"), nil
}
