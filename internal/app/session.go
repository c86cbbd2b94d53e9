package app

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	configapp "github.com/doeshing/sift/internal/application/config"
	"github.com/doeshing/sift/internal/application/launcher"
	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/ports"
)

// Session is a running launcher engine together with what it needs to
// reload its plugins from the configuration file.
type Session struct {
	*launcher.Engine

	container *Container
	frontend  ports.Frontend

	mu sync.Mutex
}

// NewSession builds the engine over the configured plugins. Plugins that
// fail to load are reported to frontend and left out.
func (c *Container) NewSession(frontend ports.Frontend, clip ports.Clipboard) (*Session, error) {
	engine, err := c.NewEngine(frontend, clip)
	if err != nil {
		return nil, err
	}
	return &Session{Engine: engine, container: c, frontend: frontend}, nil
}

// Reload re-reads the configuration file, closes every plugin and loads the
// enabled ones again, then re-runs the current query against them. Only
// the plugins section is applied; the other sections take effect on the
// next start. An invalid file leaves the running plugins untouched.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.container

	cfg, err := c.ConfigProvider.Load(ctx)
	if err == nil {
		err = configapp.Validate(cfg)
	}
	if err != nil {
		s.frontend.Error("Configuration not reloaded", err.Error())
		return fmt.Errorf("reload config: %w", err)
	}
	if needsRestart(c.Config, cfg) {
		c.Logger.Warn("only the plugins section is reloaded; restart sift to apply the rest", nil)
	}
	c.Config.Plugins = cfg.Plugins

	plugins, loadErr := c.LoadPlugins()
	s.Engine.Reload(plugins)
	reportLoadErrors(s.frontend, loadErr)
	c.Logger.Info("plugins reloaded", map[string]interface{}{"plugins": len(plugins)})

	s.Engine.Query(ctx, s.Engine.Snapshot().Input)
	return nil
}

// Config returns the configuration the session runs with.
func (s *Session) Config() domain.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.container.Config
}

// Manifest returns the manifest of a loaded plugin.
func (s *Session) Manifest(name string) (domain.PluginManifest, error) {
	for _, p := range s.Engine.Plugins() {
		if p.Name() == name {
			return p.Manifest(), nil
		}
	}
	return domain.PluginManifest{}, fmt.Errorf("plugin %s is not loaded", name)
}

func needsRestart(running, loaded domain.Config) bool {
	running.Plugins, loaded.Plugins = nil, nil
	return !reflect.DeepEqual(running, loaded)
}
