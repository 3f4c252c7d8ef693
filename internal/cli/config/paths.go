package config

import (
	"os"
	"path/filepath"
)

func DefaultConfigDir() string {
	if v := os.Getenv("MOSSCTL_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".mossctl")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config")
}

// DefaultHistoryDir is where submission records are kept.
func DefaultHistoryDir() string {
	return filepath.Join(DefaultConfigDir(), "history")
}
