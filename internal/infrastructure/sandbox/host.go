package sandbox

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/ports"
)

var errNoActiveCall = errors.New("host capabilities are only available while the plugin is handling a call")

// installHost exposes the capability table as the global "host" object and
// routes console output to the logger.
func (s *Sandbox) installHost() error {
	host := s.vm.NewObject()
	fns := map[string]func(goja.FunctionCall) goja.Value{
		"spawn":     s.hostSpawn,
		"configDir": s.hostConfigDir,
		"dataDir":   s.hostDataDir,
		"readDir":   s.hostReadDir,
		"readFile":  s.hostReadFile,
		"rank":      s.hostRank,
	}
	for name, fn := range fns {
		if err := host.Set(name, s.guarded(fn)); err != nil {
			return err
		}
	}
	if err := s.vm.Set("host", host); err != nil {
		return err
	}

	console := s.vm.NewObject()
	logFn := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, a := range call.Arguments {
			parts = append(parts, a.String())
		}
		s.logger.Info("plugin log", map[string]interface{}{"plugin": s.name, "message": strings.Join(parts, " ")})
		return goja.Undefined()
	}
	for _, name := range []string{"log", "info", "warn", "error", "debug"} {
		if err := console.Set(name, logFn); err != nil {
			return err
		}
	}
	return s.vm.Set("console", console)
}

// guarded rejects capability calls made outside an entry point, for
// example from a timer the plugin left behind.
func (s *Sandbox) guarded(fn func(goja.FunctionCall) goja.Value) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if s.call == nil {
			panic(s.vm.NewGoError(errNoActiveCall))
		}
		return fn(call)
	}
}

// throwIO raises err inside the VM as an Error carrying kind and message,
// so plugins can inspect and handle it.
func (s *Sandbox) throwIO(err error) {
	var ioErr *domain.IOError
	if !errors.As(err, &ioErr) {
		ioErr = &domain.IOError{Kind: domain.IOOther, Message: err.Error()}
	}
	obj := s.vm.NewGoError(ioErr)
	_ = obj.Set("kind", string(ioErr.Kind))
	panic(obj)
}

func (s *Sandbox) hostSpawn(call goja.FunctionCall) goja.Value {
	program := call.Argument(0).String()
	args, err := stringSlice(s.vm, call.Argument(1))
	if err != nil {
		panic(s.vm.NewTypeError(err.Error()))
	}
	capture := domain.CaptureBoth
	if c := call.Argument(2); !goja.IsUndefined(c) && !goja.IsNull(c) {
		capture = domain.ParseCapture(c.String())
	}
	out, err := s.caps.Spawn(s.call.ctx, domain.SpawnRequest{Program: program, Args: args, Capture: capture})
	if err != nil {
		s.throwIO(err)
	}
	return s.vm.ToValue(outputObject(out))
}

func (s *Sandbox) hostConfigDir(goja.FunctionCall) goja.Value {
	return s.vm.ToValue(s.caps.ConfigDir())
}

func (s *Sandbox) hostDataDir(goja.FunctionCall) goja.Value {
	return s.vm.ToValue(s.caps.DataDir())
}

func (s *Sandbox) hostReadDir(call goja.FunctionCall) goja.Value {
	names, err := s.caps.ReadDir(call.Argument(0).String())
	if err != nil {
		s.throwIO(err)
	}
	vals := make([]interface{}, 0, len(names))
	for _, n := range names {
		vals = append(vals, n)
	}
	return s.vm.NewArray(vals...)
}

func (s *Sandbox) hostReadFile(call goja.FunctionCall) goja.Value {
	data, err := s.caps.ReadFile(call.Argument(0).String())
	if err != nil {
		s.throwIO(err)
	}
	return s.vm.ToValue(string(data))
}

// hostRank ranks the plugin's own item objects and returns the same
// objects reordered.
func (s *Sandbox) hostRank(call goja.FunctionCall) goja.Value {
	query := call.Argument(0).String()
	arg := call.Argument(1)
	if goja.IsUndefined(arg) || goja.IsNull(arg) {
		return s.vm.NewArray()
	}
	list := arg.ToObject(s.vm)
	n := int(list.Get("length").ToInteger())
	values := make([]goja.Value, 0, n)
	items := make([]ports.SandboxItem, 0, n)
	for i := 0; i < n; i++ {
		v := list.Get(strconv.Itoa(i))
		values = append(values, v)
		item := ports.SandboxItem{ID: domain.ItemID(strconv.Itoa(i))}
		if obj, ok := v.(*goja.Object); ok {
			item.Title = propString(obj, "title")
			item.Description = propString(obj, "description")
			item.Metadata = propString(obj, "metadata")
		}
		items = append(items, item)
	}

	ranked := s.caps.Rank(query, items, s.weights(call.Argument(2)), s.name)
	out := make([]interface{}, 0, len(ranked))
	for _, it := range ranked {
		idx, err := strconv.Atoi(string(it.ID))
		if err != nil || idx < 0 || idx >= len(values) {
			continue
		}
		out = append(out, values[idx])
	}
	return s.vm.NewArray(out...)
}

func (s *Sandbox) weights(v goja.Value) ports.Weights {
	w := ports.DefaultWeights()
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return w
	}
	obj := v.ToObject(s.vm)
	set := func(name string, dst *float64) {
		if p := obj.Get(name); p != nil && !goja.IsUndefined(p) && !goja.IsNull(p) {
			*dst = p.ToFloat()
		}
	}
	set("title", &w.Title)
	set("description", &w.Description)
	set("metadata", &w.Metadata)
	set("frequency", &w.Frequency)
	return w
}

func propString(obj *goja.Object, name string) string {
	v := obj.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

func stringSlice(vm *goja.Runtime, v goja.Value) ([]string, error) {
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	var out []string
	if err := vm.ExportTo(v, &out); err != nil {
		return nil, fmt.Errorf("args must be an array of strings: %w", err)
	}
	return out, nil
}

func outputObject(out domain.ProcessOutput) map[string]interface{} {
	return map[string]interface{}{
		"exitCode": out.ExitCode,
		"stdout":   string(out.Stdout),
		"stderr":   string(out.Stderr),
	}
}

func deferredResultObject(res domain.DeferredResult) map[string]interface{} {
	if res.Err != nil {
		return map[string]interface{}{
			"output": nil,
			"error":  map[string]interface{}{"kind": string(res.Err.Kind), "message": res.Err.Message},
		}
	}
	var out domain.ProcessOutput
	if res.Output != nil {
		out = *res.Output
	}
	return map[string]interface{}{"output": outputObject(out), "error": nil}
}
