package app

import (
	"context"
	"errors"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/doeshing/sift/internal/application/doctor"
	"github.com/doeshing/sift/internal/application/launcher"
	"github.com/doeshing/sift/internal/application/plugin"
	"github.com/doeshing/sift/internal/application/rank"
	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/infrastructure/capability"
	"github.com/doeshing/sift/internal/infrastructure/clipboard"
	"github.com/doeshing/sift/internal/infrastructure/config"
	"github.com/doeshing/sift/internal/infrastructure/executor"
	"github.com/doeshing/sift/internal/infrastructure/frequency"
	"github.com/doeshing/sift/internal/infrastructure/metrics"
	"github.com/doeshing/sift/internal/infrastructure/pluginrepo"
	"github.com/doeshing/sift/internal/infrastructure/sandbox"
	"github.com/doeshing/sift/internal/infrastructure/schema"
	"github.com/doeshing/sift/internal/pkg/logger"
	"github.com/doeshing/sift/internal/ports"
	"github.com/doeshing/sift/internal/version"
)

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config         domain.Config
	ConfigProvider ports.ConfigProvider
	ConfigLoader   *config.FileLoader
	Logger         *logger.Zerolog
	Repo           *pluginrepo.Repo
	PluginLoader   plugin.Loader
	Surface        *capability.Surface
	Frequency      ports.FrequencyStore
	Runner         ports.CommandRunner
	Clipboard      ports.Clipboard
	Metrics        *metrics.Prom
	Registry       *prometheus.Registry
	DoctorService  *doctor.Service

	closers []io.Closer
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, verbose bool) (*Container, error) {
	cfgLoader := config.NewFileLoader("")
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log := logger.New(level)

	c := &Container{
		Config:         cfg,
		ConfigProvider: cfgLoader,
		ConfigLoader:   cfgLoader,
		Logger:         log,
		Repo:           pluginrepo.New(cfg.Paths.PluginsDir),
		Runner:         executor.NewLocalExecutor("", log.With("executor")),
		Clipboard:      clipboard.New(),
	}

	store, err := frequency.NewSQLiteStore(frequency.DefaultPath(cfg.Paths.DataDir))
	if err != nil {
		log.Warn("frequency store unavailable, ranking without history", map[string]interface{}{"error": err.Error()})
		c.Frequency = frequency.NewMemoryStore()
	} else {
		c.Frequency = store
		c.closers = append(c.closers, store)
	}

	c.Metrics = metrics.New()
	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Metrics.Register(c.Registry)
	c.Metrics.SetBuildInfo(version.Version, version.Commit, version.BuildDate)

	c.Surface = capability.New(capability.Options{
		ConfigDir: cfg.Paths.ConfigDir,
		DataDir:   cfg.Paths.DataDir,
		Ranker:    rank.NewRanker(c.Frequency, log.With("rank")),
		Logger:    log.With("capability"),
	})
	factory := sandbox.NewFactory(func(name string) ports.Capabilities {
		return c.Surface.ForPlugin(name)
	}, log.With("sandbox"), cfg.Query.Timeout)
	c.PluginLoader = plugin.Loader{Factory: factory, Validator: schema.Validator{}, Logger: log.With("plugin")}

	c.DoctorService = &doctor.Service{
		ConfigProvider: cfgLoader,
		Plugins:        c.Repo,
		Probe: func(info domain.PluginInfo, pc domain.PluginConfig) error {
			p, err := c.PluginLoader.Load(info, pc)
			if err != nil {
				return err
			}
			return p.Close()
		},
		Clipboard: c.Clipboard,
	}
	return c, nil
}

// LoadPlugins loads the plugins enabled in config, in config order. A
// plugin that fails to load is skipped; its error is returned alongside
// the plugins that did load.
func (c *Container) LoadPlugins() ([]*plugin.Plugin, error) {
	var (
		plugins []*plugin.Plugin
		errs    []error
	)
	for _, pc := range c.Config.Plugins {
		info, err := c.Repo.Lookup(pc.Name)
		if err != nil {
			errs = append(errs, &domain.LoadError{Plugin: pc.Name, Err: err})
			continue
		}
		p, err := c.PluginLoader.Load(info, pc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		plugins = append(plugins, p)
	}
	for _, err := range errs {
		c.Logger.Warn("plugin not loaded", map[string]interface{}{"error": err.Error()})
	}
	return plugins, errors.Join(errs...)
}

// NewEngine loads the configured plugins and builds a launcher engine that
// reports to frontend. Plugins that fail to load are left out and reported
// to frontend. clip overrides the system clipboard when non-nil.
func (c *Container) NewEngine(frontend ports.Frontend, clip ports.Clipboard) (*launcher.Engine, error) {
	plugins, loadErr := c.LoadPlugins()
	if clip == nil {
		clip = c.Clipboard
	}
	engine, err := launcher.NewEngine(launcher.Deps{
		Capabilities: c.Surface,
		Runner:       c.Runner,
		Clipboard:    clip,
		Frequency:    c.Frequency,
		Frontend:     frontend,
		Metrics:      c.Metrics,
		Logger:       c.Logger.With("launcher"),
		QueryTimeout: c.Config.Query.Timeout,
	}, plugins)
	if err != nil {
		for _, p := range plugins {
			_ = p.Close()
		}
		return nil, err
	}
	reportLoadErrors(frontend, loadErr)
	return engine, nil
}

// reportLoadErrors shows every plugin load failure joined in err.
func reportLoadErrors(frontend ports.Frontend, err error) {
	if err == nil {
		return
	}
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		frontend.Error("Plugin failed to load", e.Error())
	}
}

// Close releases stores held by the container.
func (c *Container) Close() error {
	var errs []error
	for _, cl := range c.closers {
		errs = append(errs, cl.Close())
	}
	return errors.Join(errs...)
}
