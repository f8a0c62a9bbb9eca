// Package paths resolves XDG-compliant directories shared by chatstore's
// binaries.
package paths

import (
	"os"
	"path/filepath"
)

// DataDir returns $XDG_DATA_HOME/<app> or ~/.local/share/<app> as fallback.
func DataDir(app string) string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, app)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", app)
	}
	return filepath.Join(home, ".local", "share", app)
}

// ConfigDir returns $XDG_CONFIG_HOME/<app> or ~/.config/<app> as fallback.
func ConfigDir(app string) string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, app)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", app)
	}
	return filepath.Join(home, ".config", app)
}
