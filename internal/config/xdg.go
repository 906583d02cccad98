package config

import (
	"os"
	"path/filepath"
)

const appName = "evalapp"

// appDir returns the evalapp directory below the XDG base directory named by
// env. Relative values are not valid XDG paths and are ignored; the fallback is
// joined onto the home directory, or onto "." when there is none.
func appDir(env string, fallback ...string) string {
	if base := os.Getenv(env); filepath.IsAbs(base) {
		return filepath.Join(base, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...)
}

// DefaultDBPath is the SQLite database below $XDG_DATA_HOME.
func DefaultDBPath() string {
	return filepath.Join(appDir("XDG_DATA_HOME", ".local", "share"), appName+".db")
}

// DefaultConfigPath is the TOML settings file below $XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	return filepath.Join(appDir("XDG_CONFIG_HOME", ".config"), "config.toml")
}
