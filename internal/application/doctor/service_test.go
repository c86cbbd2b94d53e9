package doctor

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/sift/internal/domain"
)

type stubConfig struct {
	cfg domain.Config
	err error
}

func (s stubConfig) Load(context.Context) (domain.Config, error) { return s.cfg, s.err }

type stubPlugins map[string]domain.PluginInfo

func (s stubPlugins) Discover() ([]domain.PluginInfo, error) {
	out := make([]domain.PluginInfo, 0, len(s))
	for _, p := range s {
		out = append(out, p)
	}
	return out, nil
}

func (s stubPlugins) Lookup(name string) (domain.PluginInfo, error) {
	p, ok := s[name]
	if !ok {
		return domain.PluginInfo{}, errors.New("plugin " + name + " not found")
	}
	return p, nil
}

type stubClipboard bool

func (c stubClipboard) Enabled() bool     { return bool(c) }
func (c stubClipboard) Copy(string) error { return nil }

func validConfig(t *testing.T) domain.Config {
	return domain.Config{
		ConfigFormatVersion: "1",
		LogLevel:            "info",
		Paths:               domain.PathSettings{DataDir: t.TempDir(), PluginsDir: t.TempDir()},
		Instance:            domain.InstanceSettings{Addr: "127.0.0.1:1"},
		Query:               domain.QuerySettings{Timeout: time.Second},
		Plugins:             []domain.PluginConfig{{Name: "calc"}, {Name: "broken"}, {Name: "missing"}},
	}
}

func find(t *testing.T, report domain.HealthReport, name string) domain.HealthCheck {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not in report", name)
	return domain.HealthCheck{}
}

func TestRunReportsPluginStatus(t *testing.T) {
	svc := &Service{
		ConfigProvider: stubConfig{cfg: validConfig(t)},
		Plugins: stubPlugins{
			"calc":   {Dir: "/p/calc"},
			"broken": {Dir: "/p/broken"},
		},
		Probe: func(info domain.PluginInfo, _ domain.PluginConfig) error {
			if info.Name() == "broken" {
				return &domain.LoadError{Plugin: "broken", Err: errors.New("query is not a function")}
			}
			return nil
		},
		Clipboard: stubClipboard(false),
	}
	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.HealthOK, find(t, report, "Config file").Status)
	assert.Equal(t, domain.HealthOK, find(t, report, "Plugin calc").Status)
	assert.Equal(t, domain.HealthError, find(t, report, "Plugin broken").Status)
	assert.Contains(t, find(t, report, "Plugin broken").Details, "query is not a function")
	assert.Equal(t, domain.HealthError, find(t, report, "Plugin missing").Status)
	assert.Equal(t, domain.HealthWarn, find(t, report, "Clipboard").Status)
	assert.True(t, report.Failed())
}

func TestRunStopsOnConfigError(t *testing.T) {
	svc := &Service{ConfigProvider: stubConfig{err: errors.New("bad yaml")}}
	report, err := svc.Run(context.Background())
	require.Error(t, err)
	require.Len(t, report.Checks, 1)
	assert.Equal(t, domain.HealthError, report.Checks[0].Status)
}

func TestInstanceCheckDetectsRunningLauncher(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	cfg := validConfig(t)
	cfg.Instance.Addr = l.Addr().String()
	cfg.Plugins = nil
	svc := &Service{ConfigProvider: stubConfig{cfg: cfg}, Plugins: stubPlugins{}}
	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, find(t, report, "Instance").Details, "launcher running")
	assert.Equal(t, domain.HealthWarn, find(t, report, "Plugins").Status)
	assert.False(t, report.Failed())
}
