// Package sandbox runs plugins inside isolated goja JavaScript runtimes.
//
// A plugin is a plugin.js module defining query(text), activate(item,
// command) and optionally handleDeferred(query, result). It sees no
// ambient authority: only the host capability table, its own config
// values and the result constructors defined by the prelude.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"

	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/ports"
)

// ErrClosed is returned by calls on a closed sandbox.
var ErrClosed = errors.New("sandbox is closed")

// activeCall is the state of the entry point currently executing.
type activeCall struct {
	ctx context.Context
}

// Sandbox is one goja runtime bound to one plugin.
type Sandbox struct {
	name   string
	vm     *goja.Runtime
	caps   ports.Capabilities
	logger ports.Logger

	mu     sync.Mutex
	call   *activeCall
	closed atomic.Bool
}

// Factory builds sandboxes. Capabilities returns the capability view for
// the named plugin.
type Factory struct {
	Capabilities func(plugin string) ports.Capabilities
	Logger       ports.Logger
	LoadTimeout  time.Duration
}

// NewFactory builds a factory.
func NewFactory(caps func(plugin string) ports.Capabilities, logger ports.Logger, loadTimeout time.Duration) *Factory {
	if loadTimeout <= 0 {
		loadTimeout = domain.DefaultQueryTimeout
	}
	return &Factory{Capabilities: caps, Logger: logger, LoadTimeout: loadTimeout}
}

// New compiles and evaluates the plugin script. Every failure is a
// *domain.LoadError.
func (f *Factory) New(info domain.PluginInfo, config map[string]any) (ports.Sandbox, error) {
	name := info.Name()
	loadErr := func(err error) error { return &domain.LoadError{Plugin: name, Err: err} }

	program, err := goja.Compile(name+"/"+domain.ScriptFile, string(info.Script), false)
	if err != nil {
		return nil, loadErr(fmt.Errorf("compile: %w", err))
	}

	s := &Sandbox{
		name:   name,
		vm:     goja.New(),
		caps:   f.Capabilities(name),
		logger: f.Logger,
	}
	if err := s.installHost(); err != nil {
		return nil, loadErr(err)
	}
	if config == nil {
		config = map[string]any{}
	}
	if err := s.vm.Set("config", config); err != nil {
		return nil, loadErr(err)
	}
	if _, err := s.vm.RunProgram(preludeProgram); err != nil {
		return nil, loadErr(fmt.Errorf("prelude: %w", err))
	}

	timer := time.AfterFunc(f.LoadTimeout, func() { s.vm.Interrupt("plugin load timed out") })
	_, err = s.vm.RunProgram(program)
	timer.Stop()
	s.vm.ClearInterrupt()
	if err != nil {
		return nil, loadErr(fmt.Errorf("evaluate: %w", err))
	}

	for _, fn := range []string{"query", "activate"} {
		if _, ok := goja.AssertFunction(s.vm.Get(fn)); !ok {
			return nil, loadErr(fmt.Errorf("missing %s function", fn))
		}
	}
	return s, nil
}

// Query calls the plugin's query(text).
func (s *Sandbox) Query(ctx context.Context, text string) (ports.SandboxResult, error) {
	var out ports.SandboxResult
	err := s.enter(ctx, func() error {
		v, err := s.callGlobal("query", s.vm.ToValue(text))
		if err != nil {
			return err
		}
		out, err = s.finish(v)
		return err
	})
	return out, err
}

// HandleDeferred feeds a deferred result back to the plugin.
func (s *Sandbox) HandleDeferred(ctx context.Context, query string, result domain.DeferredResult) (ports.SandboxResult, error) {
	var out ports.SandboxResult
	err := s.enter(ctx, func() error {
		if _, ok := goja.AssertFunction(s.vm.Get("handleDeferred")); !ok {
			return domain.ErrNoDeferredHandler
		}
		v, err := s.callGlobal("handleDeferred", s.vm.ToValue(query), s.vm.ToValue(deferredResultObject(result)))
		if err != nil {
			return err
		}
		out, err = s.finish(v)
		return err
	})
	return out, err
}

// Activate runs activate(item, command) for a previously returned item.
func (s *Sandbox) Activate(ctx context.Context, id domain.ItemID, command string) ([]domain.Action, error) {
	var actions []domain.Action
	err := s.enter(ctx, func() error {
		v, err := s.callSift("activate", s.vm.Get("activate"), s.vm.ToValue(string(id)), s.vm.ToValue(command))
		if err != nil {
			return err
		}
		actions, err = decodeActions(v.Export())
		return err
	})
	return actions, err
}

// Close interrupts any running call and rejects further calls.
func (s *Sandbox) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.vm.Interrupt(ErrClosed)
	return nil
}

// enter serializes calls, arms the context deadline as a VM interrupt and
// marks the capability table usable for the duration of fn.
func (s *Sandbox) enter(ctx context.Context, fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		s.vm.Interrupt(ctx.Err())
		close(fired)
	})
	s.call = &activeCall{ctx: ctx}
	defer func() {
		s.call = nil
		if !stop() {
			<-fired
		}
		if !s.closed.Load() {
			s.vm.ClearInterrupt()
		}
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked: %v", s.name, r)
		}
	}()
	return fn()
}

func (s *Sandbox) callGlobal(name string, args ...goja.Value) (goja.Value, error) {
	fn, ok := goja.AssertFunction(s.vm.Get(name))
	if !ok {
		return nil, fmt.Errorf("%s is not a function", name)
	}
	v, err := fn(goja.Undefined(), args...)
	return v, s.translate(err)
}

func (s *Sandbox) callSift(name string, args ...goja.Value) (goja.Value, error) {
	sift := s.vm.Get("__sift").ToObject(s.vm)
	fn, ok := goja.AssertFunction(sift.Get(name))
	if !ok {
		return nil, fmt.Errorf("prelude function %s missing", name)
	}
	v, err := fn(goja.Undefined(), args...)
	return v, s.translate(err)
}

func (s *Sandbox) finish(v goja.Value) (ports.SandboxResult, error) {
	normalized, err := s.callSift("finish", v)
	if err != nil {
		return ports.SandboxResult{}, err
	}
	var wire wireResult
	if err := decode(normalized.Export(), &wire); err != nil {
		return ports.SandboxResult{}, err
	}
	return wire.toSandboxResult()
}

func (s *Sandbox) translate(err error) error {
	if err == nil {
		return nil
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if v, ok := interrupted.Value().(error); ok {
			return fmt.Errorf("plugin call interrupted: %w", v)
		}
		return fmt.Errorf("plugin call interrupted: %v", interrupted.Value())
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return errors.New(exc.Error())
	}
	return err
}

var (
	_ ports.Sandbox        = (*Sandbox)(nil)
	_ ports.SandboxFactory = (*Factory)(nil)
)
