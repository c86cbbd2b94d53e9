package launcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doeshing/sift/internal/domain"
)

// Activate runs the primary action of the selected item.
func (e *Engine) Activate(ctx context.Context) error {
	return e.run(ctx, nil, domain.CommandActivate)
}

// AltActivate runs the alternative action of the selected item.
func (e *Engine) AltActivate(ctx context.Context) error {
	return e.run(ctx, nil, domain.CommandAltActivate)
}

// HotkeyActivate runs the command the selected item's plugin binds to
// hotkey.
func (e *Engine) HotkeyActivate(ctx context.Context, hotkey domain.Hotkey) error {
	return e.activate(ctx, nil, hotkey.String(), hotkeyFunc(hotkey))
}

// Complete asks the selected item for a replacement input. When one is
// offered the input is replaced and re-queried.
func (e *Engine) Complete(ctx context.Context) error {
	return e.complete(ctx, nil)
}

// ActivateCommand selects index and runs command on it. Unknown command
// names are treated as hotkey chords. An index outside the current list
// fails with domain.ErrItemGone.
func (e *Engine) ActivateCommand(ctx context.Context, index int, command string) error {
	return e.run(ctx, func(rl *domain.ResultList) (int, bool) {
		return index, index >= 0 && index < rl.Len()
	}, command)
}

// ActivateItem selects the item identified by key and runs command on it.
// If a rebuild has removed the item, nothing runs and domain.ErrItemGone
// is returned.
func (e *Engine) ActivateItem(ctx context.Context, key domain.ItemKey, command string) error {
	return e.run(ctx, func(rl *domain.ResultList) (int, bool) {
		return rl.IndexOf(key)
	}, command)
}

// locator picks the item to activate. It runs under the engine lock, in
// the same critical section that captures the item.
type locator func(rl *domain.ResultList) (int, bool)

func (e *Engine) run(ctx context.Context, locate locator, command string) error {
	switch command {
	case "", domain.CommandActivate:
		return e.activate(ctx, locate, domain.CommandActivate, func(ctx context.Context, item domain.ListItem) ([]domain.Action, error) {
			return item.Activate(ctx)
		})
	case domain.CommandAltActivate:
		return e.activate(ctx, locate, domain.CommandAltActivate, func(ctx context.Context, item domain.ListItem) ([]domain.Action, error) {
			return item.AltActivate(ctx)
		})
	case domain.CommandComplete:
		return e.complete(ctx, locate)
	}
	hotkey, err := domain.ParseHotkey(command)
	if err != nil {
		return &domain.ActivationError{Err: err}
	}
	return e.activate(ctx, locate, hotkey.String(), hotkeyFunc(hotkey))
}

func hotkeyFunc(hotkey domain.Hotkey) activationFunc {
	return func(ctx context.Context, item domain.ListItem) ([]domain.Action, error) {
		return item.HotkeyActivate(ctx, hotkey)
	}
}

func (e *Engine) complete(ctx context.Context, locate locator) error {
	item, gen, err := e.beginActivation(locate)
	if err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, e.deps.QueryTimeout)
	start := time.Now()
	in, err := item.Complete(callCtx)
	cancel()
	e.deps.Metrics.ObservePluginCall(item.PluginName(), domain.CommandComplete, time.Since(start), err == nil)

	if !e.stillCurrent(gen, item.PluginName()) {
		return nil
	}
	if err != nil {
		e.reportActivation(err)
		return err
	}
	if in != nil {
		e.setInput(ctx, *in)
	}
	return nil
}

type activationFunc func(ctx context.Context, item domain.ListItem) ([]domain.Action, error)

func (e *Engine) activate(ctx context.Context, locate locator, command string, run activationFunc) error {
	item, gen, err := e.beginActivation(locate)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, e.deps.QueryTimeout)
	start := time.Now()
	actions, err := run(callCtx, item)
	cancel()
	e.deps.Metrics.ObservePluginCall(item.PluginName(), "activate", time.Since(start), err == nil)

	if !e.stillCurrent(gen, item.PluginName()) {
		return nil
	}
	if err != nil {
		e.reportActivation(err)
		return err
	}

	e.deps.Logger.Info("item activated", map[string]interface{}{
		"plugin":  item.PluginName(),
		"title":   item.Title,
		"command": command,
		"actions": len(actions),
	})
	if e.deps.Frequency != nil {
		if err := e.deps.Frequency.Record(item.PluginName(), item.Title); err != nil {
			e.deps.Logger.Warn("recording activation failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return e.execute(ctx, actions)
}

// beginActivation selects the located item, if any, captures the selected
// item and mints the activation's generation in one critical section.
func (e *Engine) beginActivation(locate locator) (domain.ListItem, domain.Generation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if locate != nil {
		i, ok := locate(&e.list)
		if !ok {
			return domain.ListItem{}, 0, domain.ErrItemGone
		}
		e.list.SetSelection(i)
	}
	item, ok := e.list.SelectedItem()
	if !ok {
		return domain.ListItem{}, 0, domain.ErrEmptyList
	}
	return item, e.mintLocked(), nil
}

func (e *Engine) stillCurrent(gen domain.Generation, pluginName string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen == e.generation {
		return true
	}
	e.discardLocked(pluginName, gen)
	return false
}

func (e *Engine) reportActivation(err error) {
	title := "Activation failed"
	var ae *domain.ActivationError
	if errors.As(err, &ae) && ae.Plugin != "" {
		title = fmt.Sprintf("Plugin %s: activation failed", ae.Plugin)
	}
	e.deps.Logger.Warn("activation failed", map[string]interface{}{"error": err.Error()})
	e.deps.Frontend.Error(title, err.Error())
}

// execute interprets plugin actions in order. A failing action is reported
// and the remaining ones still run.
func (e *Engine) execute(ctx context.Context, actions []domain.Action) error {
	var errs []error
	for _, a := range actions {
		e.deps.Metrics.ActionExecuted(a.Kind.String())
		var err error
		switch a.Kind {
		case domain.ActionClose:
			e.Close()
		case domain.ActionRunCommand:
			if e.deps.Runner == nil {
				err = errors.New("no command runner configured")
				break
			}
			err = e.deps.Runner.Start(ctx, a.Program, a.Args)
		case domain.ActionRunShell:
			if e.deps.Runner == nil {
				err = errors.New("no command runner configured")
				break
			}
			err = e.deps.Runner.StartShell(ctx, a.Line)
		case domain.ActionCopy:
			if e.deps.Clipboard == nil || !e.deps.Clipboard.Enabled() {
				err = errors.New("clipboard unavailable")
				break
			}
			err = e.deps.Clipboard.Copy(a.Text)
		case domain.ActionSetInput:
			e.setInput(ctx, a.Input)
		default:
			err = fmt.Errorf("unknown action %d", a.Kind)
		}
		if err != nil {
			err = fmt.Errorf("%s: %w", a, err)
			e.deps.Logger.Error("action failed", err, nil)
			e.deps.Frontend.Error("Action failed", err.Error())
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) setInput(ctx context.Context, in domain.Input) {
	e.deps.Frontend.InputChanged(in)
	e.Query(ctx, in.Contents)
}
