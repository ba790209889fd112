// Package config provides configuration utilities for the application.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// AppName names the config directory and the environment variable prefix.
const AppName = "spendwise"

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// Dir returns $HOME/.config/spendwise.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName), nil
}

// DefaultDatabasePath is used when database.path is not configured.
func DefaultDatabasePath() string {
	return "~/.local/share/" + AppName + "/" + AppName + ".db"
}

// CertDir holds the self-signed certificate used by "serve --tls".
func CertDir() string {
	if v := viper.GetString("server.cert_dir"); v != "" {
		return ExpandPath(v)
	}
	dir, err := Dir()
	if err != nil {
		return "certs"
	}
	return filepath.Join(dir, "certs")
}
