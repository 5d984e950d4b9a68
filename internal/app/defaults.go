package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults are the paths used when no flag overrides them.
type Defaults struct {
	ConfigPath string // DRIVE_CONFIG_PATH, else ~/.config/drive.toml
	BaseDir    string // DRIVE_HOME, else ~/.local/share/drive
}

// GetDefaults resolves the default paths from the environment and the
// user's home directory.
func GetDefaults() (Defaults, error) {
	var d Defaults

	d.ConfigPath = os.Getenv("DRIVE_CONFIG_PATH")
	d.BaseDir = os.Getenv("DRIVE_HOME")
	if d.ConfigPath != "" && d.BaseDir != "" {
		return d, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Defaults{}, fmt.Errorf("cannot determine home directory: %w", err)
	}
	if d.ConfigPath == "" {
		d.ConfigPath = filepath.Join(homeDir, ".config", "drive.toml")
	}
	if d.BaseDir == "" {
		d.BaseDir = filepath.Join(homeDir, ".local", "share", "drive")
	}
	return d, nil
}
