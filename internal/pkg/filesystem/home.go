package filesystem

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/doeshing/sift/internal/domain"
)

// UserHomeDir returns the current user's home directory.
// If the home directory cannot be determined, it returns "." as a fallback.
func UserHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// ConfigDir is $XDG_CONFIG_HOME/sift, or the platform equivalent.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, domain.AppName)
	}
	switch runtime.GOOS {
	case "windows":
		if base := os.Getenv("APPDATA"); base != "" {
			return filepath.Join(base, domain.AppName)
		}
	case "darwin":
		return filepath.Join(UserHomeDir(), "Library", "Application Support", domain.AppName)
	}
	return filepath.Join(UserHomeDir(), ".config", domain.AppName)
}

// DataDir is $XDG_DATA_HOME/sift, or the platform equivalent.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, domain.AppName)
	}
	switch runtime.GOOS {
	case "windows":
		if base := os.Getenv("LOCALAPPDATA"); base != "" {
			return filepath.Join(base, domain.AppName)
		}
	case "darwin":
		return filepath.Join(UserHomeDir(), "Library", "Application Support", domain.AppName, "data")
	}
	return filepath.Join(UserHomeDir(), ".local", "share", domain.AppName)
}

// ExpandPath resolves a leading "~/" against the home directory.
func ExpandPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if path == "~" {
		return UserHomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(UserHomeDir(), path[2:])
	}
	return filepath.Clean(path)
}
