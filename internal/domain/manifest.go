package domain

import "path/filepath"

// PluginManifest is read from a plugin's manifest.toml.
type PluginManifest struct {
	Name        string            `toml:"name"`
	Description string            `toml:"description"`
	Authors     []string          `toml:"authors"`
	Commands    []ManifestCommand `toml:"commands"`
	// Schema is a JSON schema the plugin's config values must satisfy.
	Schema map[string]any `toml:"schema"`
}

// ManifestCommand declares a command verb the plugin supports.
type ManifestCommand struct {
	ID            string `toml:"id"`
	Title         string `toml:"title"`
	Description   string `toml:"description"`
	DefaultHotkey string `toml:"default_hotkey"`
}

// PluginInfo describes a plugin found in the plugins directory.
type PluginInfo struct {
	Dir      string
	Manifest PluginManifest
	Script   []byte
}

// Name is the directory name the plugin is installed under; configuration
// refers to plugins by this name.
func (p PluginInfo) Name() string {
	if p.Dir != "" {
		return filepath.Base(p.Dir)
	}
	return p.Manifest.Name
}
