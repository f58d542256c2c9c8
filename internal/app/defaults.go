package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - TEAMSEXPORT_CONFIG_PATH: config file location (default: ~/.config/teamsexport.toml)
//   - TEAMSEXPORT_HOME: base directory for teamsexport data (default: ~/.local/share/teamsexport)
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
		"archive_dir": filepath.Join(baseDir, "archives"),
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking TEAMSEXPORT_CONFIG_PATH
// env var first, then falling back to the default ~/.config/teamsexport.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("TEAMSEXPORT_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "teamsexport.toml"), nil
}

// getBaseDir returns the base directory for teamsexport data, checking
// TEAMSEXPORT_HOME env var first, then falling back to the XDG default
// ~/.local/share/teamsexport.
func getBaseDir() (string, error) {
	if path := os.Getenv("TEAMSEXPORT_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "teamsexport"), nil
}
