package domain

import (
	"context"
	"fmt"
)

// ItemID is the opaque identifier a plugin assigns to each item it returns.
// It only has meaning to the plugin instance that produced it.
type ItemID string

// IconKind discriminates the Icon variants.
type IconKind int

const (
	// IconName references a named icon from the desktop icon theme.
	IconName IconKind = iota
	// IconText is a literal glyph rendered as text.
	IconText
)

// Icon is an optional decoration on a list item.
type Icon struct {
	Kind  IconKind
	Value string
}

// ListStyleKind discriminates the ListStyle variants.
type ListStyleKind int

const (
	StyleRows ListStyleKind = iota
	StyleGrid
	StyleGridWithColumns
)

// ListStyle is a display hint for the frontend.
type ListStyle struct {
	Kind    ListStyleKind
	Columns uint32
}

// Rows, Grid and GridWithColumns build the list style variants.
func Rows() ListStyle { return ListStyle{Kind: StyleRows} }
func Grid() ListStyle { return ListStyle{Kind: StyleGrid} }
func GridWithColumns(n uint32) ListStyle { return ListStyle{Kind: StyleGridWithColumns, Columns: n} }

func (s ListStyle) String() string {
	switch s.Kind {
	case StyleGrid:
		return "grid"
	case StyleGridWithColumns:
		return fmt.Sprintf("grid(%d)", s.Columns)
	default:
		return "rows"
	}
}

// Input is the contents of the query box plus the selected range.
type Input struct {
	Contents  string
	Selection [2]int
}

// NewInput places the cursor at the end of contents.
func NewInput(contents string) Input {
	n := len([]rune(contents))
	return Input{Contents: contents, Selection: [2]int{n, n}}
}

// ItemOwner is the plugin side of a list item. Items keep a reference to
// their owner so that activation can be routed back to the sandbox that
// produced them; owners never reference their items.
type ItemOwner interface {
	Name() string
	Activate(ctx context.Context, id ItemID, command string) ([]Action, error)
	CommandForHotkey(h Hotkey) (string, bool)
}

// Standard command ids understood by every plugin.
const (
	CommandActivate    = "activate"
	CommandAltActivate = "alt-activate"
	CommandComplete    = "complete"
)

// ListItem is one displayable result.
type ListItem struct {
	owner       ItemOwner
	ID          ItemID
	Title       string
	Description string
	// Metadata is used for ranking only and is never displayed.
	Metadata string
	Icon     *Icon
}

// NewListItem binds an item to the plugin that produced it.
func NewListItem(owner ItemOwner, id ItemID, title string) ListItem {
	return ListItem{owner: owner, ID: id, Title: title}
}

// ItemKey identifies an item across list rebuilds. Plugin ids are unique
// per owner instance, and a reloaded plugin is a new owner.
type ItemKey struct {
	Owner ItemOwner
	ID    ItemID
}

// Key returns the item's identity.
func (li ListItem) Key() ItemKey { return ItemKey{Owner: li.owner, ID: li.ID} }

// Owner returns the plugin that produced the item.
func (li ListItem) Owner() ItemOwner { return li.owner }

// PluginName is the owner's name, or "" for detached items.
func (li ListItem) PluginName() string {
	if li.owner == nil {
		return ""
	}
	return li.owner.Name()
}

// Activate runs the plugin's primary action for this item.
func (li ListItem) Activate(ctx context.Context) ([]Action, error) {
	return li.run(ctx, CommandActivate)
}

// AltActivate runs the plugin's alternative action for this item.
func (li ListItem) AltActivate(ctx context.Context) ([]Action, error) {
	return li.run(ctx, CommandAltActivate)
}

// HotkeyActivate runs the manifest command bound to hotkey.
func (li ListItem) HotkeyActivate(ctx context.Context, hotkey Hotkey) ([]Action, error) {
	if li.owner == nil {
		return nil, &ActivationError{Err: ErrDetachedItem}
	}
	command, ok := li.owner.CommandForHotkey(hotkey)
	if !ok {
		return nil, &ActivationError{Plugin: li.owner.Name(), Err: fmt.Errorf("no command bound to %s", hotkey)}
	}
	return li.run(ctx, command)
}

// Complete asks the plugin for a replacement input. A nil input means the
// plugin offered no completion.
func (li ListItem) Complete(ctx context.Context) (*Input, error) {
	actions, err := li.run(ctx, CommandComplete)
	if err != nil {
		return nil, err
	}
	for _, a := range actions {
		if a.Kind == ActionSetInput {
			in := a.Input
			return &in, nil
		}
	}
	return nil, nil
}

func (li ListItem) run(ctx context.Context, command string) ([]Action, error) {
	if li.owner == nil {
		return nil, &ActivationError{Err: ErrDetachedItem}
	}
	return li.owner.Activate(ctx, li.ID, command)
}
