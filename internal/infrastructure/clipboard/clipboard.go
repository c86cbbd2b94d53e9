// Package clipboard implements ports.Clipboard on the system clipboard.
package clipboard

import (
	"fmt"
	"runtime"

	"github.com/atotto/clipboard"

	"github.com/doeshing/sift/internal/ports"
)

// System copies to the desktop clipboard through xclip, xsel, wl-copy,
// pbcopy or the Windows API, whichever the platform offers.
type System struct{}

// New builds the clipboard helper.
func New() *System {
	return &System{}
}

// Enabled reports whether a clipboard backend was found.
func (c *System) Enabled() bool {
	return !clipboard.Unsupported
}

// Copy copies text to the system clipboard.
func (c *System) Copy(text string) error {
	if !c.Enabled() {
		return fmt.Errorf("clipboard not supported on %s", runtime.GOOS)
	}
	return clipboard.WriteAll(text)
}

// Memory keeps the last copied text; used for headless runs.
type Memory struct {
	Last string
}

func (m *Memory) Enabled() bool { return true }

func (m *Memory) Copy(text string) error {
	m.Last = text
	return nil
}

var (
	_ ports.Clipboard = (*System)(nil)
	_ ports.Clipboard = (*Memory)(nil)
)
