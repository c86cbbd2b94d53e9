package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/pkg/logger"
	"github.com/doeshing/sift/internal/ports"
)

type fakeCaps struct {
	spawned []domain.SpawnRequest
	files   map[string]string
}

func (f *fakeCaps) Spawn(_ context.Context, req domain.SpawnRequest) (domain.ProcessOutput, error) {
	f.spawned = append(f.spawned, req)
	if req.Program == "missing" {
		return domain.ProcessOutput{}, &domain.IOError{Kind: domain.IONotFound, Message: "missing"}
	}
	return domain.ProcessOutput{Stdout: []byte(strings.Join(req.Args, " "))}, nil
}

func (f *fakeCaps) ConfigDir() string { return "/cfg" }
func (f *fakeCaps) DataDir() string { return "/data/plugins/test" }

func (f *fakeCaps) ReadDir(string) ([]string, error) { return []string{"a", "b"}, nil }

func (f *fakeCaps) ReadFile(path string) ([]byte, error) {
	if body, ok := f.files[path]; ok {
		return []byte(body), nil
	}
	return nil, &domain.IOError{Kind: domain.IOPermissionDenied, Message: path}
}

func (f *fakeCaps) Rank(_ string, items []ports.SandboxItem, _ ports.Weights, _ string) []ports.SandboxItem {
	out := make([]ports.SandboxItem, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		out = append(out, items[i])
	}
	return out
}

const calcPlugin = `
function query(text) {
	if (text.trim() === "") return Immediate([]);
	return Deferred.spawn("calc", [text], "stdout");
}
function handleDeferred(q, result) {
	if (result.error) return Immediate([{ title: "error: " + result.error.kind }]);
	return Immediate([{ title: result.output.stdout, description: q, icon: Icon.text("=") }], Style.rows());
}
function activate(item, command) {
	if (command === "complete") return Action.setInput("=" + item.title);
	return [Action.copy(item.title), Action.close()];
}
`

func load(t *testing.T, script string, config map[string]any) (*Sandbox, *fakeCaps) {
	t.Helper()
	caps := &fakeCaps{files: map[string]string{}}
	f := NewFactory(func(string) ports.Capabilities { return caps }, logger.NewNop(), time.Second)
	sb, err := f.New(domain.PluginInfo{Dir: "/plugins/test", Script: []byte(script)}, config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sb.Close() })
	return sb.(*Sandbox), caps
}

func TestCalcExchange(t *testing.T) {
	sb, caps := load(t, calcPlugin, nil)
	ctx := context.Background()

	res, err := sb.Query(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, domain.ResultDeferred, res.Kind)
	require.NotNil(t, res.Action.Spawn)
	assert.Equal(t, "calc", res.Action.Spawn.Program)
	assert.Equal(t, []string{"42"}, res.Action.Spawn.Args)
	assert.Equal(t, domain.CaptureStdout, res.Action.Spawn.Capture)
	assert.Empty(t, caps.spawned, "deferred spawns are run by the host, not the sandbox")

	res, err = sb.HandleDeferred(ctx, "42", domain.DeferredResult{Output: &domain.ProcessOutput{Stdout: []byte("42")}})
	require.NoError(t, err)
	require.Equal(t, domain.ResultImmediate, res.Kind)
	require.Len(t, res.Items, 1)
	item := res.Items[0]
	assert.Equal(t, "42", item.Title)
	assert.Equal(t, "42", item.Description)
	require.NotNil(t, item.Icon)
	assert.Equal(t, domain.Icon{Kind: domain.IconText, Value: "="}, *item.Icon)
	require.NotNil(t, res.Style)
	assert.Equal(t, domain.StyleRows, res.Style.Kind)

	actions, err := sb.Activate(ctx, item.ID, domain.CommandActivate)
	require.NoError(t, err)
	assert.Equal(t, []domain.Action{domain.CopyAction("42"), domain.CloseAction()}, actions)

	actions, err = sb.Activate(ctx, item.ID, domain.CommandComplete)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, domain.ActionSetInput, actions[0].Kind)
	assert.Equal(t, "=42", actions[0].Input.Contents)
}

func TestDeferredErrorIsVisibleToPlugin(t *testing.T) {
	sb, _ := load(t, calcPlugin, nil)
	res, err := sb.HandleDeferred(context.Background(), "x", domain.DeferredResult{Err: &domain.IOError{Kind: domain.IONotFound}})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "error: not-found", res.Items[0].Title)
}

func TestMissingDeferredHandler(t *testing.T) {
	sb, _ := load(t, `
		function query(t) { return Deferred.spawn("echo", [t]); }
		function activate() { return []; }
	`, nil)
	_, err := sb.HandleDeferred(context.Background(), "x", domain.DeferredResult{Output: &domain.ProcessOutput{}})
	assert.ErrorIs(t, err, domain.ErrNoDeferredHandler)
}

func TestLoadErrors(t *testing.T) {
	caps := &fakeCaps{}
	f := NewFactory(func(string) ports.Capabilities { return caps }, logger.NewNop(), 200*time.Millisecond)
	cases := map[string]string{
		"syntax":      `function query( {`,
		"throws":      `throw new Error("boom");`,
		"no query":    `function activate() {}`,
		"no activate": `function query() { return Immediate([]); }`,
		"spins":       `while (true) {}`,
	}
	for name, script := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.New(domain.PluginInfo{Dir: "/plugins/bad", Script: []byte(script)}, nil)
			var loadErr *domain.LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, "bad", loadErr.Plugin)
		})
	}
}

func TestMalformedResults(t *testing.T) {
	sb, _ := load(t, `
		function query(t) {
			if (t === "num") return 42;
			if (t === "kind") return { kind: "weird" };
			if (t === "item") return Immediate([1]);
			if (t === "style") return Immediate([], { kind: "spiral" });
			if (t === "throw") throw new Error("kaboom");
			return [{ title: "plain array" }];
		}
		function activate(item, command) { return { kind: "explode" }; }
	`, nil)
	ctx := context.Background()
	for _, q := range []string{"num", "kind", "item", "style", "throw"} {
		_, err := sb.Query(ctx, q)
		assert.Error(t, err, q)
	}
	res, err := sb.Query(ctx, "ok")
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "plain array", res.Items[0].Title)

	_, err = sb.Activate(ctx, res.Items[0].ID, domain.CommandActivate)
	assert.Error(t, err)
	_, err = sb.Activate(ctx, "does-not-exist", domain.CommandActivate)
	assert.Error(t, err)
}

func TestContextDeadlineInterruptsCall(t *testing.T) {
	sb, _ := load(t, `
		function query(t) { if (t === "spin") { while (true) {} } return Immediate([{ title: t }]); }
		function activate() { return []; }
	`, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := sb.Query(ctx, "spin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), err.Error())

	res, err := sb.Query(context.Background(), "after")
	require.NoError(t, err)
	assert.Equal(t, "after", res.Items[0].Title)
}

func TestHostCapabilities(t *testing.T) {
	sb, caps := load(t, `
		var captured;
		function query(t) {
			var items = [];
			items.push({ title: host.configDir() });
			items.push({ title: host.dataDir() });
			items.push({ title: host.readDir(".").join(",") });
			items.push({ title: host.readFile("notes.txt") });
			try { host.readFile("/etc/passwd"); } catch (e) { items.push({ title: "denied:" + e.kind }); }
			items.push({ title: host.spawn("echo", ["hi", "there"]).stdout });
			try { host.spawn("missing", []); } catch (e) { items.push({ title: "spawn:" + e.kind }); }
			items.push({ title: config.greeting });
			var ranked = host.rank(t, [{ title: "x" }, { title: "y" }]);
			items.push({ title: ranked.map(function (r) { return r.title; }).join("") });
			captured = function () { return host.configDir(); };
			return Immediate(items);
		}
		function activate() { return [Action.runShell(captured())]; }
	`, map[string]any{"greeting": "hello"})
	caps.files["notes.txt"] = "remember"

	res, err := sb.Query(context.Background(), "q")
	require.NoError(t, err)
	titles := make([]string, 0, len(res.Items))
	for _, it := range res.Items {
		titles = append(titles, it.Title)
	}
	assert.Equal(t, []string{
		"/cfg", "/data/plugins/test", "a,b", "remember", "denied:permission-denied",
		"hi there", "spawn:not-found", "hello", "yx",
	}, titles)
	require.Len(t, caps.spawned, 2)

	// Capabilities work during activate as well; this checks that the
	// guard is bound to the call, not to query.
	actions, err := sb.Activate(context.Background(), res.Items[0].ID, domain.CommandActivate)
	require.NoError(t, err)
	assert.Equal(t, []domain.Action{domain.RunShellAction("/cfg")}, actions)
}

func TestCapabilitiesRejectedOutsideCalls(t *testing.T) {
	caps := &fakeCaps{}
	f := NewFactory(func(string) ports.Capabilities { return caps }, logger.NewNop(), time.Second)
	_, err := f.New(domain.PluginInfo{Dir: "/plugins/eager", Script: []byte(`
		host.spawn("echo", []);
		function query() { return Immediate([]); }
		function activate() { return []; }
	`)}, nil)
	var loadErr *domain.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, err.Error(), "only available")
	assert.Empty(t, caps.spawned)
}

func TestClosedSandboxRejectsCalls(t *testing.T) {
	sb, _ := load(t, calcPlugin, nil)
	require.NoError(t, sb.Close())
	_, err := sb.Query(context.Background(), "1")
	assert.ErrorIs(t, err, ErrClosed)
}

const manyItemsPlugin = `
function query(t) {
	var items = [];
	for (var i = 0; i < Number(t); i++) items.push({ title: "n" + i });
	return Immediate(items);
}
function activate(item) { return Action.copy(item.title); }
`

func TestItemTableEvictsOldIDs(t *testing.T) {
	sb, _ := load(t, manyItemsPlugin, nil)
	ctx := context.Background()
	first, err := sb.Query(ctx, "1")
	require.NoError(t, err)
	_, err = sb.Query(ctx, "4096")
	require.NoError(t, err)

	_, err = sb.Activate(ctx, first.Items[0].ID, domain.CommandActivate)
	assert.Error(t, err, "oldest id is evicted once the table is full")
}

func TestItemTableKeepsNewestListWhole(t *testing.T) {
	sb, _ := load(t, manyItemsPlugin, nil)
	ctx := context.Background()
	_, err := sb.Query(ctx, "10")
	require.NoError(t, err)

	res, err := sb.Query(ctx, "5000")
	require.NoError(t, err)
	require.Len(t, res.Items, 5000)

	for _, idx := range []int{0, 2500, 4999} {
		actions, err := sb.Activate(ctx, res.Items[idx].ID, domain.CommandActivate)
		require.NoError(t, err, "item %d", idx)
		require.Len(t, actions, 1)
		assert.Equal(t, domain.CopyAction(fmt.Sprintf("n%d", idx)), actions[0])
	}

	next, err := sb.Query(ctx, "1")
	require.NoError(t, err)
	_, err = sb.Activate(ctx, next.Items[0].ID, domain.CommandActivate)
	require.NoError(t, err)
	_, err = sb.Activate(ctx, res.Items[0].ID, domain.CommandActivate)
	assert.Error(t, err, "an older list is evicted as a whole once the table overflows")
}
