package domain

import (
	"fmt"
	"strings"
)

// ActionKind discriminates the effects a plugin may request on activation.
type ActionKind int

const (
	// ActionClose hides the launcher surface.
	ActionClose ActionKind = iota
	// ActionRunCommand spawns Program with Args.
	ActionRunCommand
	// ActionRunShell runs Line through the shell.
	ActionRunShell
	// ActionCopy copies Text to the clipboard.
	ActionCopy
	// ActionSetInput replaces the query box contents.
	ActionSetInput
)

func (k ActionKind) String() string {
	switch k {
	case ActionClose:
		return "close"
	case ActionRunCommand:
		return "run-command"
	case ActionRunShell:
		return "run-shell"
	case ActionCopy:
		return "copy"
	case ActionSetInput:
		return "set-input"
	default:
		return "unknown"
	}
}

// Action is an effect requested by a plugin. Plugins never perform these
// themselves; the host interprets and executes them.
type Action struct {
	Kind    ActionKind
	Program string
	Args    []string
	Line    string
	Text    string
	Input   Input
}

func CloseAction() Action { return Action{Kind: ActionClose} }

func RunCommandAction(program string, args ...string) Action {
	return Action{Kind: ActionRunCommand, Program: program, Args: args}
}

func RunShellAction(line string) Action { return Action{Kind: ActionRunShell, Line: line} }

func CopyAction(text string) Action { return Action{Kind: ActionCopy, Text: text} }

func SetInputAction(in Input) Action { return Action{Kind: ActionSetInput, Input: in} }

func (a Action) String() string {
	switch a.Kind {
	case ActionClose:
		return "close"
	case ActionRunCommand:
		return fmt.Sprintf("run %s %s", a.Program, strings.Join(a.Args, " "))
	case ActionRunShell:
		return fmt.Sprintf("shell %q", a.Line)
	case ActionCopy:
		return fmt.Sprintf("copy %q", a.Text)
	case ActionSetInput:
		return fmt.Sprintf("set-input %q", a.Input.Contents)
	default:
		return "unknown"
	}
}

// Hotkey is a key chord forwarded from the frontend.
type Hotkey struct {
	Key   string
	Ctrl  bool
	Alt   bool
	Shift bool
	Meta  bool
}

// ParseHotkey parses chords such as "ctrl+shift+k".
func ParseHotkey(s string) (Hotkey, error) {
	var h Hotkey
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i == len(parts)-1 {
			if p == "" {
				return Hotkey{}, fmt.Errorf("hotkey %q: missing key", s)
			}
			h.Key = p
			break
		}
		switch p {
		case "ctrl", "control":
			h.Ctrl = true
		case "alt", "option":
			h.Alt = true
		case "shift":
			h.Shift = true
		case "meta", "super", "cmd":
			h.Meta = true
		default:
			return Hotkey{}, fmt.Errorf("hotkey %q: unknown modifier %q", s, p)
		}
	}
	return h, nil
}

func (h Hotkey) String() string {
	var b strings.Builder
	if h.Ctrl {
		b.WriteString("ctrl+")
	}
	if h.Alt {
		b.WriteString("alt+")
	}
	if h.Shift {
		b.WriteString("shift+")
	}
	if h.Meta {
		b.WriteString("meta+")
	}
	b.WriteString(h.Key)
	return b.String()
}
