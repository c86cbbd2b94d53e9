package ipc

import "github.com/doeshing/sift/internal/domain"

// Client to host message types.
const (
	MsgQuery    = "query"
	MsgActivate = "activate"
	MsgSelect   = "select"
	MsgMove     = "move"
	MsgComplete = "complete"
	MsgClose    = "close"
	MsgReload   = "reload"
	MsgConfig   = "config"
	MsgManifest = "manifest"
)

// Host to client event types.
const (
	EventSetList   = "set_list"
	EventSetInput  = "set_input"
	EventSelection = "selection"
	EventError     = "error"
	EventClose     = "close"
	EventShow      = "show"
	EventConfig    = "config"
	EventManifest  = "manifest"
)

// ClientMessage is any message a frontend sends. Fields not used by Type
// are left empty.
type ClientMessage struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	ListItemID string `json:"list_item_id,omitempty"`
	Command    string `json:"command,omitempty"`
	Index      int    `json:"index,omitempty"`
	Delta      int    `json:"delta,omitempty"`
	Plugin     string `json:"plugin,omitempty"`
}

// Event is any message the host sends.
type Event struct {
	Type      string     `json:"type"`
	Items     []ItemView `json:"items,omitempty"`
	Style     *StyleView `json:"style,omitempty"`
	Index     *int       `json:"index,omitempty"`
	Text      string     `json:"text,omitempty"`
	Selection *[2]int    `json:"selection,omitempty"`
	Title     string     `json:"title,omitempty"`
	Detail    string     `json:"detail,omitempty"`
	// Manifest answers a manifest request. A config request is answered
	// with the YAML document in Text.
	Manifest *ManifestView `json:"manifest,omitempty"`
}

// ItemView is a list item as frontends see it. ID is a host-assigned
// list item id, never the plugin's own id.
type ItemView struct {
	ID          string    `json:"id"`
	Plugin      string    `json:"plugin"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Icon        *IconView `json:"icon,omitempty"`
}

type IconView struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type ManifestView struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Authors     []string       `json:"authors,omitempty"`
	Commands    []CommandView  `json:"commands,omitempty"`
	Schema      map[string]any `json:"schema,omitempty"`
}

type CommandView struct {
	ID            string `json:"id"`
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`
	DefaultHotkey string `json:"default_hotkey,omitempty"`
}

type StyleView struct {
	Kind    string `json:"kind"`
	Columns uint32 `json:"columns,omitempty"`
}

func iconView(icon *domain.Icon) *IconView {
	if icon == nil {
		return nil
	}
	kind := "name"
	if icon.Kind == domain.IconText {
		kind = "text"
	}
	return &IconView{Kind: kind, Value: icon.Value}
}

func styleView(style *domain.ListStyle) *StyleView {
	if style == nil {
		return nil
	}
	switch style.Kind {
	case domain.StyleGrid:
		return &StyleView{Kind: "grid"}
	case domain.StyleGridWithColumns:
		return &StyleView{Kind: "grid", Columns: style.Columns}
	default:
		return &StyleView{Kind: "rows"}
	}
}

func manifestView(m domain.PluginManifest) *ManifestView {
	v := &ManifestView{Name: m.Name, Description: m.Description, Authors: m.Authors, Schema: m.Schema}
	for _, c := range m.Commands {
		v.Commands = append(v.Commands, CommandView{
			ID:            c.ID,
			Title:         c.Title,
			Description:   c.Description,
			DefaultHotkey: c.DefaultHotkey,
		})
	}
	return v
}
