package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigFile is the config file looked up in the working directory.
const DefaultConfigFile = "albumsync.toml"

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - ALBUMSYNC_CONFIG: config file location (default: ./albumsync.toml)
//   - ALBUMSYNC_HOME: base directory for albumsync data (default: ~/.local/share/albumsync)
func GetDefaults() (map[string]string, error) {
	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": getConfigPath(),
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking ALBUMSYNC_CONFIG first,
// then falling back to albumsync.toml in the working directory.
func getConfigPath() string {
	if path := os.Getenv("ALBUMSYNC_CONFIG"); path != "" {
		return path
	}
	return DefaultConfigFile
}

// getBaseDir returns the base directory for albumsync data, checking
// ALBUMSYNC_HOME first, then falling back to the XDG default ~/.local/share/albumsync.
func getBaseDir() (string, error) {
	if path := os.Getenv("ALBUMSYNC_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "albumsync"), nil
}
