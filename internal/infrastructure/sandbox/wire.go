package sandbox

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/ports"
)

// Values leave the VM through Export and a JSON round trip into these
// structs, which keeps the decoding rules in one place.

type wireResult struct {
	Kind   string        `json:"kind"`
	Items  []wireItem    `json:"items"`
	Style  *wireStyle    `json:"style"`
	Action *wireDeferred `json:"action"`
}

type wireItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Metadata    string    `json:"metadata"`
	Icon        *wireIcon `json:"icon"`
}

type wireIcon struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type wireStyle struct {
	Kind    string `json:"kind"`
	Columns *int64 `json:"columns"`
}

type wireDeferred struct {
	Spawn *wireSpawn `json:"spawn"`
}

type wireSpawn struct {
	Program string   `json:"program"`
	Args    []string `json:"args"`
	Capture string   `json:"capture"`
}

type wireAction struct {
	Kind      string   `json:"kind"`
	Program   string   `json:"program"`
	Args      []string `json:"args"`
	Line      string   `json:"line"`
	Text      string   `json:"text"`
	Selection []int    `json:"selection"`
}

func decode(exported interface{}, into interface{}) error {
	raw, err := json.Marshal(exported)
	if err != nil {
		return fmt.Errorf("encode plugin value: %w", err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("malformed plugin value: %w", err)
	}
	return nil
}

func (w wireResult) toSandboxResult() (ports.SandboxResult, error) {
	switch w.Kind {
	case "deferred":
		if w.Action == nil || w.Action.Spawn == nil {
			return ports.SandboxResult{}, fmt.Errorf("deferred result without a spawn action")
		}
		if strings.TrimSpace(w.Action.Spawn.Program) == "" {
			return ports.SandboxResult{}, fmt.Errorf("deferred spawn without a program")
		}
		return ports.SandboxResult{
			Kind: domain.ResultDeferred,
			Action: domain.DeferredAction{Spawn: &domain.SpawnRequest{
				Program: w.Action.Spawn.Program,
				Args:    w.Action.Spawn.Args,
				Capture: domain.ParseCapture(w.Action.Spawn.Capture),
			}},
		}, nil
	case "immediate":
		out := ports.SandboxResult{Kind: domain.ResultImmediate, Items: make([]ports.SandboxItem, 0, len(w.Items))}
		for _, it := range w.Items {
			item := ports.SandboxItem{
				ID:          domain.ItemID(it.ID),
				Title:       it.Title,
				Description: it.Description,
				Metadata:    it.Metadata,
			}
			if it.Icon != nil {
				icon, err := it.Icon.toIcon()
				if err != nil {
					return ports.SandboxResult{}, err
				}
				item.Icon = &icon
			}
			out.Items = append(out.Items, item)
		}
		if w.Style != nil {
			style, err := w.Style.toStyle()
			if err != nil {
				return ports.SandboxResult{}, err
			}
			out.Style = &style
		}
		return out, nil
	default:
		return ports.SandboxResult{}, fmt.Errorf("unknown result kind %q", w.Kind)
	}
}

func (w wireIcon) toIcon() (domain.Icon, error) {
	switch w.Kind {
	case "name":
		return domain.Icon{Kind: domain.IconName, Value: w.Value}, nil
	case "text":
		return domain.Icon{Kind: domain.IconText, Value: w.Value}, nil
	default:
		return domain.Icon{}, fmt.Errorf("unknown icon kind %q", w.Kind)
	}
}

func (w wireStyle) toStyle() (domain.ListStyle, error) {
	switch w.Kind {
	case "rows", "":
		return domain.Rows(), nil
	case "grid":
		if w.Columns == nil {
			return domain.Grid(), nil
		}
		if *w.Columns <= 0 || *w.Columns > 1<<16 {
			return domain.ListStyle{}, fmt.Errorf("invalid grid column count %d", *w.Columns)
		}
		return domain.GridWithColumns(uint32(*w.Columns)), nil
	default:
		return domain.ListStyle{}, fmt.Errorf("unknown list style %q", w.Kind)
	}
}

func (w wireAction) toAction() (domain.Action, error) {
	switch w.Kind {
	case "close":
		return domain.CloseAction(), nil
	case "run-command":
		if w.Program == "" {
			return domain.Action{}, fmt.Errorf("run-command without a program")
		}
		return domain.RunCommandAction(w.Program, w.Args...), nil
	case "run-shell":
		return domain.RunShellAction(w.Line), nil
	case "copy":
		return domain.CopyAction(w.Text), nil
	case "set-input":
		in := domain.NewInput(w.Text)
		if len(w.Selection) == 2 {
			in.Selection = [2]int{w.Selection[0], w.Selection[1]}
		}
		return domain.SetInputAction(in), nil
	default:
		return domain.Action{}, fmt.Errorf("unknown action kind %q", w.Kind)
	}
}

func decodeActions(exported interface{}) ([]domain.Action, error) {
	var wire []wireAction
	if err := decode(exported, &wire); err != nil {
		return nil, err
	}
	actions := make([]domain.Action, 0, len(wire))
	for _, w := range wire {
		a, err := w.toAction()
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func replaceLimit(src string, limit int) string {
	return strings.Replace(src, "__LIMIT__", strconv.Itoa(limit), 1)
}
