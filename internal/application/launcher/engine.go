// Package launcher owns the result list and drives the query, deferred and
// activation protocol against the loaded plugins.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/doeshing/sift/internal/application/plugin"
	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/ports"
)

// Deps are the collaborators of an Engine. Capabilities, Frontend and
// Logger are required.
type Deps struct {
	Capabilities ports.Capabilities
	Runner       ports.CommandRunner
	Clipboard    ports.Clipboard
	Frequency    ports.FrequencyStore
	Frontend     ports.Frontend
	Metrics      ports.Metrics
	Logger       ports.Logger
	QueryTimeout time.Duration
}

// Engine fans queries out to plugins, merges what they return into the
// result list and runs activations.
//
// Every user action mints a new generation. A plugin outcome is applied
// only if its generation is still current when it resolves; everything
// else is dropped silently.
type Engine struct {
	deps Deps

	mu         sync.Mutex
	plugins    []*plugin.Plugin
	generation domain.Generation
	input      string
	// results holds what each plugin (by index) resolved for the current
	// generation. Absent means still pending or failed.
	results map[int]domain.QueryResult
	list    domain.ResultList

	pending sync.WaitGroup
}

// Snapshot is a copy of the engine state.
type Snapshot struct {
	Generation domain.Generation
	Input      string
	List       domain.ResultList
}

// NewEngine builds an engine over plugins, in configuration order.
func NewEngine(deps Deps, plugins []*plugin.Plugin) (*Engine, error) {
	if deps.Capabilities == nil || deps.Frontend == nil || deps.Logger == nil {
		return nil, errors.New("launcher.Engine dependencies not satisfied")
	}
	if deps.QueryTimeout <= 0 {
		deps.QueryTimeout = domain.DefaultQueryTimeout
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	return &Engine{
		deps:    deps,
		plugins: plugins,
		results: make(map[int]domain.QueryResult),
	}, nil
}

// Plugins returns the loaded plugins in merge order.
func (e *Engine) Plugins() []*plugin.Plugin {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*plugin.Plugin(nil), e.plugins...)
}

// Query starts one exchange per plugin routed to text and returns
// immediately. Results reach the frontend as they resolve.
func (e *Engine) Query(ctx context.Context, text string) domain.Generation {
	e.mu.Lock()
	gen := e.mintLocked()
	e.input = text
	e.results = make(map[int]domain.QueryResult)

	type job struct {
		idx  int
		p    *plugin.Plugin
		text string
	}
	var jobs []job
	for i, p := range e.plugins {
		if routed, ok := p.Route(text); ok {
			jobs = append(jobs, job{idx: i, p: p, text: routed})
		}
	}
	if len(jobs) == 0 {
		e.rebuildLocked()
	}
	e.pending.Add(len(jobs))
	e.mu.Unlock()

	base := context.WithoutCancel(ctx)
	for _, j := range jobs {
		j := j
		go func() {
			defer e.pending.Done()
			res, err := e.exchange(base, j.p, j.text)
			e.resolve(gen, j.idx, j.p, res, err)
		}()
	}
	return gen
}

// Wait blocks until every exchange started so far has resolved.
func (e *Engine) Wait() {
	e.pending.Wait()
}

// exchange runs query and then handleDeferred for as long as the plugin
// keeps asking for deferred work.
func (e *Engine) exchange(ctx context.Context, p *plugin.Plugin, text string) (domain.QueryResult, error) {
	res, err := e.callPlugin(ctx, p, "query", func(ctx context.Context) (domain.QueryResult, error) {
		return p.Query(ctx, text)
	})
	for err == nil && res.Kind == domain.ResultDeferred {
		outcome := e.perform(ctx, p, res.Action)
		res, err = e.callPlugin(ctx, p, "deferred", func(ctx context.Context) (domain.QueryResult, error) {
			return p.HandleDeferred(ctx, text, outcome)
		})
	}
	return res, err
}

func (e *Engine) callPlugin(ctx context.Context, p *plugin.Plugin, phase string, fn func(context.Context) (domain.QueryResult, error)) (domain.QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.deps.QueryTimeout)
	defer cancel()
	start := time.Now()
	res, err := fn(ctx)
	e.deps.Metrics.ObservePluginCall(p.Name(), phase, time.Since(start), err == nil)
	return res, err
}

// perform executes a deferred action through the capability surface.
func (e *Engine) perform(ctx context.Context, p *plugin.Plugin, action domain.DeferredAction) domain.DeferredResult {
	if action.Spawn == nil {
		return domain.DeferredResult{Err: &domain.IOError{Kind: domain.IOOther, Message: "empty deferred action"}}
	}
	e.deps.Logger.Debug("deferred spawn", map[string]interface{}{
		"plugin":  p.Name(),
		"program": action.Spawn.Program,
	})
	out, err := e.deps.Capabilities.Spawn(ctx, *action.Spawn)
	if err != nil {
		var ioErr *domain.IOError
		if !errors.As(err, &ioErr) {
			ioErr = &domain.IOError{Kind: domain.IOOther, Message: err.Error()}
		}
		return domain.DeferredResult{Err: ioErr}
	}
	return domain.DeferredResult{Output: &out}
}

// resolve applies a finished exchange if it still belongs to the current
// generation.
func (e *Engine) resolve(gen domain.Generation, idx int, p *plugin.Plugin, res domain.QueryResult, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		e.discardLocked(p.Name(), gen)
		return
	}
	if err != nil {
		e.deps.Logger.Warn("plugin query failed", map[string]interface{}{"plugin": p.Name(), "error": err.Error()})
		e.deps.Frontend.Error(fmt.Sprintf("Plugin %s failed", p.Name()), err.Error())
		delete(e.results, idx)
	} else {
		e.results[idx] = res
	}
	e.rebuildLocked()
}

// rebuildLocked concatenates the current results in plugin order and
// replaces the list wholesale.
func (e *Engine) rebuildLocked() {
	var items []domain.ListItem
	var style *domain.ListStyle
	for i := range e.plugins {
		res, ok := e.results[i]
		if !ok {
			continue
		}
		items = append(items, res.Items...)
		if style == nil && res.Style != nil && len(res.Items) > 0 {
			s := *res.Style
			style = &s
		}
	}
	e.list.Set(items, style)
	e.deps.Frontend.ListChanged(append([]domain.ListItem(nil), items...), style)
}

func (e *Engine) discardLocked(pluginName string, gen domain.Generation) {
	e.deps.Metrics.StaleDiscarded(pluginName)
	e.deps.Logger.Debug("discarding stale result", map[string]interface{}{
		"plugin":     pluginName,
		"generation": uint64(gen),
		"current":    uint64(e.generation),
	})
}

func (e *Engine) mintLocked() domain.Generation {
	e.generation++
	e.deps.Metrics.SetGeneration(e.generation)
	return e.generation
}

// MoveSelection moves the selection by delta and returns the new index.
func (e *Engine) MoveSelection(delta int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.list.MoveSelectionSigned(delta)
	return e.list.Selection()
}

// SetSelection selects index and returns the resulting index.
func (e *Engine) SetSelection(index int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.list.SetSelection(index)
	return e.list.Selection()
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{Generation: e.generation, Input: e.input, List: e.list.Clone()}
}

// Close dismisses the surface. Pending activations can no longer apply
// their effects.
func (e *Engine) Close() {
	e.mu.Lock()
	e.mintLocked()
	e.mu.Unlock()
	e.deps.Frontend.Close()
}

// Reload swaps the plugin set, closing the previous plugins.
func (e *Engine) Reload(plugins []*plugin.Plugin) {
	e.mu.Lock()
	old := e.plugins
	e.plugins = plugins
	e.mintLocked()
	e.results = make(map[int]domain.QueryResult)
	e.rebuildLocked()
	e.mu.Unlock()

	for _, p := range old {
		if err := p.Close(); err != nil {
			e.deps.Logger.Warn("closing plugin failed", map[string]interface{}{"plugin": p.Name(), "error": err.Error()})
		}
	}
}

// Shutdown closes every plugin.
func (e *Engine) Shutdown() {
	e.Reload(nil)
}

type nopMetrics struct{}

func (nopMetrics) ObservePluginCall(string, string, time.Duration, bool) {}
func (nopMetrics) StaleDiscarded(string) {}
func (nopMetrics) ActionExecuted(string) {}
func (nopMetrics) SetGeneration(domain.Generation) {}
