package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOwner struct {
	name     string
	calls    []string
	actions  []Action
	hotkeys  map[string]string
	lastItem ItemID
}

func (f *fakeOwner) Name() string { return f.name }

func (f *fakeOwner) Activate(_ context.Context, id ItemID, command string) ([]Action, error) {
	f.calls = append(f.calls, command)
	f.lastItem = id
	return f.actions, nil
}

func (f *fakeOwner) CommandForHotkey(h Hotkey) (string, bool) {
	cmd, ok := f.hotkeys[h.String()]
	return cmd, ok
}

func items(owner ItemOwner, titles ...string) []ListItem {
	out := make([]ListItem, 0, len(titles))
	for i, title := range titles {
		out = append(out, NewListItem(owner, ItemID(rune('a'+i)), title))
	}
	return out
}

func TestSelectedItemMatchesSelection(t *testing.T) {
	owner := &fakeOwner{name: "p"}
	rl := NewResultList(items(owner, "one", "two", "three"), nil)

	for _, idx := range []int{0, 2, 1} {
		rl.SetSelection(idx)
		item, ok := rl.SelectedItem()
		require.True(t, ok)
		assert.Equal(t, rl.Items()[rl.Selection()].Title, item.Title)
	}
}

func TestEmptyListHasNoSelection(t *testing.T) {
	var rl ResultList
	_, ok := rl.SelectedItem()
	assert.False(t, ok)
	rl.MoveSelectionSigned(3)
	assert.Equal(t, 0, rl.Selection())
}

func TestSetResetsSelection(t *testing.T) {
	owner := &fakeOwner{name: "p"}
	rl := NewResultList(items(owner, "a", "b", "c", "d"), nil)
	rl.SetSelection(3)
	require.Equal(t, 3, rl.Selection())

	style := Grid()
	rl.Set(items(owner, "x", "y", "z", "w", "v"), &style)
	assert.Equal(t, 0, rl.Selection())
	assert.Equal(t, StyleGrid, rl.Style().Kind)
}

func TestMoveSelectionWrapsOnlyFromEnds(t *testing.T) {
	owner := &fakeOwner{name: "p"}
	rl := NewResultList(items(owner, "a", "b", "c", "d", "e", "f"), nil)

	rl.MoveSelectionSigned(-1)
	assert.Equal(t, 5, rl.Selection(), "wraps from the top")

	rl.MoveSelectionSigned(1)
	assert.Equal(t, 0, rl.Selection(), "wraps from the bottom")

	rl.SetSelection(2)
	rl.MoveSelectionSigned(10)
	assert.Equal(t, 5, rl.Selection(), "large jump from inside saturates")
	rl.MoveSelectionSigned(10)
	assert.Equal(t, 3, rl.Selection(), "second jump from the end wraps")

	rl.MoveSelectionSigned(-10)
	assert.Equal(t, 0, rl.Selection())
}

func TestItemCommandsRouteToOwner(t *testing.T) {
	owner := &fakeOwner{
		name:    "p",
		actions: []Action{SetInputAction(NewInput("hello"))},
		hotkeys: map[string]string{"ctrl+k": "kill"},
	}
	rl := NewResultList(items(owner, "a", "b"), nil)
	rl.SetSelection(1)
	item, _ := rl.SelectedItem()
	ctx := context.Background()

	_, err := item.Activate(ctx)
	require.NoError(t, err)
	_, err = item.AltActivate(ctx)
	require.NoError(t, err)
	_, err = item.HotkeyActivate(ctx, Hotkey{Key: "k", Ctrl: true})
	require.NoError(t, err)
	in, err := item.Complete(ctx)
	require.NoError(t, err)
	require.NotNil(t, in)

	assert.Equal(t, []string{CommandActivate, CommandAltActivate, "kill", CommandComplete}, owner.calls)
	assert.Equal(t, ItemID("b"), owner.lastItem)
	assert.Equal(t, "hello", in.Contents)
	assert.Equal(t, [2]int{5, 5}, in.Selection)

	_, err = item.HotkeyActivate(ctx, Hotkey{Key: "x"})
	var actErr *ActivationError
	require.ErrorAs(t, err, &actErr)
	assert.Equal(t, "p", actErr.Plugin)
}

func TestParseHotkey(t *testing.T) {
	h, err := ParseHotkey("Ctrl+Shift+Enter")
	require.NoError(t, err)
	assert.Equal(t, Hotkey{Key: "enter", Ctrl: true, Shift: true}, h)
	assert.Equal(t, "ctrl+shift+enter", h.String())

	_, err = ParseHotkey("hyper+k")
	assert.Error(t, err)
	_, err = ParseHotkey("ctrl+")
	assert.Error(t, err)
}

func TestIndexOfMatchesOwnerAndID(t *testing.T) {
	p := &fakeOwner{name: "p"}
	q := &fakeOwner{name: "p"}
	rl := NewResultList(append(items(p, "one", "two"), items(q, "three")...), nil)

	i, ok := rl.IndexOf(rl.Items()[1].Key())
	require.True(t, ok)
	assert.Equal(t, 1, i)

	i, ok = rl.IndexOf(ItemKey{Owner: q, ID: "a"})
	require.True(t, ok)
	assert.Equal(t, 2, i, "same id under another owner instance is a different item")

	_, ok = rl.IndexOf(ItemKey{Owner: q, ID: "b"})
	assert.False(t, ok)
}
