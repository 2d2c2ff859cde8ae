package config

import (
	"os"
	"path/filepath"
	"strings"
)

const appDirName = ".wardan"

// DataDir returns the base data directory. WARDAN_HOME overrides the default
// location under the user's home directory.
func DataDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("WARDAN_HOME")); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// ConfigPath returns the path to the TOML configuration file.
func ConfigPath() (string, error) {
	return dataFile("config.toml")
}

// StorePath returns the path to the local key/value store holding the
// session token and the stored credential.
func StorePath() (string, error) {
	return dataFile("state.db")
}

// StoreJSONPath returns the path used when the store backend is "file".
func StoreJSONPath() (string, error) {
	return dataFile("state.json")
}

// LogPath returns the path the terminal panel logs to.
func LogPath() (string, error) {
	return dataFile("wardan.log")
}

func dataFile(name string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, name), nil
}
