package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Endpoint defaults
const (
	// DefaultInstanceAddr is the single-instance listening endpoint.
	DefaultInstanceAddr = "127.0.0.1:7547"
	// DefaultFrontendAddr is the websocket bridge endpoint.
	DefaultFrontendAddr = "127.0.0.1:7548"
	// ActivateSignal is the byte written by a second launch.
	ActivateSignal byte = '1'
)

// Timeout and duration constants
const (
	// DefaultQueryTimeout bounds a single plugin call.
	DefaultQueryTimeout = 5 * time.Second
	// DefaultSpawnTimeout bounds a deferred spawn.
	DefaultSpawnTimeout = 30 * time.Second
)

// Plugin layout
const (
	// AppName names the config and data subdirectories.
	AppName = "sift"
	// ManifestFile is the manifest file name inside a plugin directory.
	ManifestFile = "manifest.toml"
	// ScriptFile is the module file name inside a plugin directory.
	ScriptFile = "plugin.js"
)
