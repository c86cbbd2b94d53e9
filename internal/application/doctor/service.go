package doctor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	configapp "github.com/doeshing/sift/internal/application/config"
	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/ports"
)

// PluginProbe loads a plugin with its configuration and releases it again.
type PluginProbe func(info domain.PluginInfo, cfg domain.PluginConfig) error

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Plugins        ports.PluginLoader
	Probe          PluginProbe
	Clipboard      ports.Clipboard
	// DialTimeout bounds the instance endpoint probe. Zero means 200ms.
	DialTimeout time.Duration
}

// Run executes checks and returns a report.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	if err := configapp.Validate(cfg); err != nil {
		checks = append(checks, fail("Config file", err.Error()))
	} else {
		checks = append(checks, ok("Config file", fmt.Sprintf("loaded %s", cfg.ConfigFormatVersion)))
	}

	checks = append(checks, dirCheck("Data dir", cfg.Paths.DataDir))
	checks = append(checks, s.pluginChecks(cfg)...)
	checks = append(checks, s.instanceCheck(ctx, cfg.Instance.Addr))

	if s.Clipboard != nil {
		if s.Clipboard.Enabled() {
			checks = append(checks, ok("Clipboard", "available"))
		} else {
			checks = append(checks, warn("Clipboard", "no clipboard utility found; copy actions will fail"))
		}
	}

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) pluginChecks(cfg domain.Config) []domain.HealthCheck {
	if s.Plugins == nil {
		return []domain.HealthCheck{warn("Plugins", "plugin loader not initialized")}
	}
	discovered, err := s.Plugins.Discover()
	checks := []domain.HealthCheck{}
	if err != nil {
		checks = append(checks, warn("Plugins dir", err.Error()))
	} else {
		checks = append(checks, ok("Plugins dir", fmt.Sprintf("%d plugins in %s", len(discovered), cfg.Paths.PluginsDir)))
	}

	if len(cfg.Plugins) == 0 {
		return append(checks, warn("Plugins", "no plugins enabled in config"))
	}
	for _, pc := range cfg.Plugins {
		name := "Plugin " + pc.Name
		info, err := s.Plugins.Lookup(pc.Name)
		if err != nil {
			checks = append(checks, fail(name, err.Error()))
			continue
		}
		if s.Probe == nil {
			checks = append(checks, ok(name, "found"))
			continue
		}
		if err := s.Probe(info, pc); err != nil {
			checks = append(checks, fail(name, err.Error()))
			continue
		}
		checks = append(checks, ok(name, fmt.Sprintf("loaded (%d commands)", len(info.Manifest.Commands))))
	}
	return checks
}

func (s *Service) instanceCheck(ctx context.Context, addr string) domain.HealthCheck {
	timeout := s.DialTimeout
	if timeout == 0 {
		timeout = 200 * time.Millisecond
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return ok("Instance", fmt.Sprintf("no launcher listening on %s", addr))
	}
	_ = conn.Close()
	return ok("Instance", fmt.Sprintf("launcher running on %s", addr))
}

func dirCheck(name, path string) domain.HealthCheck {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return warn(name, fmt.Sprintf("%s does not exist yet", path))
	case err != nil:
		return fail(name, err.Error())
	case !info.IsDir():
		return fail(name, fmt.Sprintf("%s is not a directory", path))
	}
	return ok(name, path)
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
