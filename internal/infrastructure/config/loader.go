// Package config loads the launcher configuration file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/sift/assets"
	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/pkg/filesystem"
	"github.com/doeshing/sift/internal/ports"
)

// FileLoader loads YAML configuration from $XDG_CONFIG_HOME/sift/config.yaml
// (overridable via SIFT_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Path returns the file Load reads.
func (l *FileLoader) Path() string {
	return l.resolvePath()
}

// Load implements ports.ConfigProvider. A missing file is created from the
// embedded default.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, fmt.Errorf("ensure config dir: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return domain.Config{}, err
		}
		if err := writeDefault(path); err != nil {
			return domain.Config{}, fmt.Errorf("write default config: %w", err)
		}
		data = assets.DefaultConfigYAML
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return hydrateDefaults(cfg, filepath.Dir(path)), nil
}

// Default returns the embedded configuration with defaults applied.
func Default() (domain.Config, error) {
	var cfg domain.Config
	if err := yaml.Unmarshal(assets.DefaultConfigYAML, &cfg); err != nil {
		return domain.Config{}, err
	}
	return hydrateDefaults(cfg, filesystem.ConfigDir()), nil
}

func (l *FileLoader) resolvePath() string {
	if l.overridePath != "" {
		return filesystem.ExpandPath(l.overridePath)
	}
	if custom := os.Getenv("SIFT_CONFIG"); custom != "" {
		return filesystem.ExpandPath(custom)
	}
	return filepath.Join(filesystem.ConfigDir(), "config.yaml")
}

func ensureConfigDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions)
}

func writeDefault(path string) error {
	return os.WriteFile(path, assets.DefaultConfigYAML, domain.SecureFilePermissions)
}

// hydrateDefaults fills everything the file left empty. configDir is the
// directory holding the config file, used when paths.config_dir is unset.
func hydrateDefaults(cfg domain.Config, configDir string) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	if level := os.Getenv("SIFT_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Paths.ConfigDir == "" {
		cfg.Paths.ConfigDir = configDir
	}
	cfg.Paths.ConfigDir = filesystem.ExpandPath(cfg.Paths.ConfigDir)
	if cfg.Paths.DataDir == "" {
		cfg.Paths.DataDir = filesystem.DataDir()
	}
	cfg.Paths.DataDir = filesystem.ExpandPath(cfg.Paths.DataDir)
	if cfg.Paths.PluginsDir == "" {
		cfg.Paths.PluginsDir = filepath.Join(cfg.Paths.ConfigDir, "plugins")
	}
	cfg.Paths.PluginsDir = filesystem.ExpandPath(cfg.Paths.PluginsDir)
	if cfg.Instance.Addr == "" {
		cfg.Instance.Addr = domain.DefaultInstanceAddr
	}
	if cfg.Frontend.Addr == "" {
		cfg.Frontend.Addr = domain.DefaultFrontendAddr
	}
	if cfg.Query.Timeout <= 0 {
		cfg.Query.Timeout = domain.DefaultQueryTimeout
	}
	return cfg
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
