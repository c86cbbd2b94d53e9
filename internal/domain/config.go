package domain

import "time"

// Config mirrors $XDG_CONFIG_HOME/sift/config.yaml.
type Config struct {
	ConfigFormatVersion string           `yaml:"config_format_version"`
	LogLevel            string           `yaml:"log_level"`
	Paths               PathSettings     `yaml:"paths"`
	Instance            InstanceSettings `yaml:"instance"`
	Frontend            FrontendSettings `yaml:"frontend"`
	Query               QuerySettings    `yaml:"query"`
	Plugins             []PluginConfig   `yaml:"plugins"`
}

// PathSettings overrides the base directories handed to plugins.
type PathSettings struct {
	ConfigDir  string `yaml:"config_dir,omitempty"`
	DataDir    string `yaml:"data_dir,omitempty"`
	PluginsDir string `yaml:"plugins_dir,omitempty"`
}

// InstanceSettings configures the single-instance endpoint.
type InstanceSettings struct {
	Addr string `yaml:"addr"`
}

// FrontendSettings configures the websocket bridge used by frontends.
type FrontendSettings struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// QuerySettings bounds plugin calls.
type QuerySettings struct {
	Timeout time.Duration `yaml:"timeout"`
}

// PluginConfig enables one plugin. Order is significant: it is the order
// in which plugin results are merged into the result list.
type PluginConfig struct {
	Name   string         `yaml:"name"`
	Prefix string         `yaml:"prefix,omitempty"`
	Config map[string]any `yaml:"config,omitempty"`
}
