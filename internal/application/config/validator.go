package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/pkg/logger"
)

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if !logger.ValidLevel(cfg.LogLevel) {
		return fmt.Errorf("log_level %q is not a known level", cfg.LogLevel)
	}
	if err := validateAddr("instance.addr", cfg.Instance.Addr); err != nil {
		return err
	}
	if cfg.Frontend.Enabled {
		if err := validateAddr("frontend.addr", cfg.Frontend.Addr); err != nil {
			return err
		}
		if cfg.Frontend.Addr == cfg.Instance.Addr {
			return errors.New("frontend.addr and instance.addr must differ")
		}
	}
	if cfg.Query.Timeout <= 0 {
		return errors.New("query.timeout must be > 0")
	}
	return validatePlugins(cfg.Plugins)
}

func validateAddr(field, addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%s invalid: %w", field, err)
	}
	if port == "" {
		return fmt.Errorf("%s must include a port", field)
	}
	if ip := net.ParseIP(host); host != "localhost" && (ip == nil || !ip.IsLoopback()) {
		return fmt.Errorf("%s must be a loopback address, got %s", field, host)
	}
	return nil
}

func validatePlugins(plugins []domain.PluginConfig) error {
	seen := make(map[string]bool, len(plugins))
	for i, p := range plugins {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("plugins[%d].name must be set", i)
		}
		if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
			return fmt.Errorf("plugins[%d].name %q is not a directory name", i, name)
		}
		if seen[name] {
			return fmt.Errorf("plugin %s listed twice", name)
		}
		seen[name] = true
	}
	return nil
}
