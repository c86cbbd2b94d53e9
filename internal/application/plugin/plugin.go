// Package plugin binds a loaded sandbox to its manifest and configuration
// and converts between the sandbox protocol and the domain model.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/ports"
)

// Plugin is a loaded plugin. Items it returns hold a pointer back to it so
// activations reach the sandbox that produced them.
type Plugin struct {
	name     string
	manifest domain.PluginManifest
	prefix   string
	config   map[string]any
	hotkeys  map[string]string
	sandbox  ports.Sandbox
	logger   ports.Logger
}

// Loader builds plugins from discovered plugin directories.
type Loader struct {
	Factory   ports.SandboxFactory
	Validator ports.SchemaValidator
	Logger    ports.Logger
}

// Load validates cfg against the manifest schema, resolves declared
// hotkeys and starts the sandbox. Every failure is a *domain.LoadError.
func (l Loader) Load(info domain.PluginInfo, cfg domain.PluginConfig) (*Plugin, error) {
	name := info.Name()
	loadErr := func(err error) error { return &domain.LoadError{Plugin: name, Err: err} }

	config := cfg.Config
	if l.Validator != nil {
		config = l.Validator.ApplyDefaults(info.Manifest.Schema, config)
		if err := l.Validator.Validate(info.Manifest.Schema, config); err != nil {
			return nil, loadErr(err)
		}
	}

	hotkeys := make(map[string]string)
	for _, cmd := range info.Manifest.Commands {
		if cmd.ID == "" {
			return nil, loadErr(errors.New("manifest command without id"))
		}
		if cmd.DefaultHotkey == "" {
			continue
		}
		h, err := domain.ParseHotkey(cmd.DefaultHotkey)
		if err != nil {
			return nil, loadErr(fmt.Errorf("command %s: %w", cmd.ID, err))
		}
		hotkeys[h.String()] = cmd.ID
	}

	sb, err := l.Factory.New(info, config)
	if err != nil {
		var le *domain.LoadError
		if errors.As(err, &le) {
			return nil, err
		}
		return nil, loadErr(err)
	}

	return &Plugin{
		name:     name,
		manifest: info.Manifest,
		prefix:   cfg.Prefix,
		config:   config,
		hotkeys:  hotkeys,
		sandbox:  sb,
		logger:   l.Logger,
	}, nil
}

// New wraps an already running sandbox.
func New(name, prefix string, manifest domain.PluginManifest, sb ports.Sandbox, logger ports.Logger) *Plugin {
	hotkeys := make(map[string]string)
	for _, cmd := range manifest.Commands {
		if h, err := domain.ParseHotkey(cmd.DefaultHotkey); err == nil && cmd.DefaultHotkey != "" {
			hotkeys[h.String()] = cmd.ID
		}
	}
	return &Plugin{name: name, prefix: prefix, manifest: manifest, hotkeys: hotkeys, sandbox: sb, logger: logger}
}

func (p *Plugin) Name() string { return p.name }
func (p *Plugin) Prefix() string { return p.prefix }
func (p *Plugin) Manifest() domain.PluginManifest { return p.manifest }

// Route reports whether input is meant for this plugin and returns the
// text it should see. Plugins without a prefix see every input.
func (p *Plugin) Route(input string) (string, bool) {
	if p.prefix == "" {
		return input, true
	}
	if !strings.HasPrefix(input, p.prefix) {
		return "", false
	}
	return strings.TrimPrefix(input, p.prefix), true
}

// Query runs the plugin's query entry point.
func (p *Plugin) Query(ctx context.Context, text string) (res domain.QueryResult, err error) {
	defer p.recoverAs(&err, p.protocolError)
	raw, err := p.sandbox.Query(ctx, text)
	if err != nil {
		return domain.QueryResult{}, p.protocolError(err)
	}
	return p.bind(raw), nil
}

// HandleDeferred feeds the outcome of a deferred action back to the
// plugin.
func (p *Plugin) HandleDeferred(ctx context.Context, query string, result domain.DeferredResult) (res domain.QueryResult, err error) {
	defer p.recoverAs(&err, p.protocolError)
	raw, err := p.sandbox.HandleDeferred(ctx, query, result)
	if err != nil {
		return domain.QueryResult{}, p.protocolError(err)
	}
	return p.bind(raw), nil
}

// Activate implements domain.ItemOwner.
func (p *Plugin) Activate(ctx context.Context, id domain.ItemID, command string) (actions []domain.Action, err error) {
	defer p.recoverAs(&err, p.activationError)
	actions, err = p.sandbox.Activate(ctx, id, command)
	if err != nil {
		return nil, p.activationError(err)
	}
	return actions, nil
}

// CommandForHotkey implements domain.ItemOwner.
func (p *Plugin) CommandForHotkey(h domain.Hotkey) (string, bool) {
	cmd, ok := p.hotkeys[h.String()]
	return cmd, ok
}

// Close shuts the sandbox down.
func (p *Plugin) Close() error {
	return p.sandbox.Close()
}

func (p *Plugin) bind(raw ports.SandboxResult) domain.QueryResult {
	if raw.Kind == domain.ResultDeferred {
		return domain.Deferred(raw.Action)
	}
	items := make([]domain.ListItem, 0, len(raw.Items))
	for _, it := range raw.Items {
		li := domain.NewListItem(p, it.ID, it.Title)
		li.Description = it.Description
		li.Metadata = it.Metadata
		li.Icon = it.Icon
		items = append(items, li)
	}
	return domain.Immediate(items, raw.Style)
}

func (p *Plugin) protocolError(err error) error {
	var pe *domain.ProtocolError
	if errors.As(err, &pe) {
		return err
	}
	return &domain.ProtocolError{Plugin: p.name, Err: err}
}

func (p *Plugin) activationError(err error) error {
	var ae *domain.ActivationError
	if errors.As(err, &ae) {
		return err
	}
	return &domain.ActivationError{Plugin: p.name, Err: err}
}

// recoverAs turns a panic escaping the sandbox adapter into an error.
func (p *Plugin) recoverAs(err *error, wrap func(error) error) {
	r := recover()
	if r == nil {
		return
	}
	if p.logger != nil {
		p.logger.Error("plugin call panicked", fmt.Errorf("%v", r), map[string]interface{}{"plugin": p.name})
	}
	*err = wrap(fmt.Errorf("panic: %v", r))
}

var _ domain.ItemOwner = (*Plugin)(nil)
