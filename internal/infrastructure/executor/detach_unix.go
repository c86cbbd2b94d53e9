//go:build !windows

package executor

import (
	"os/exec"
	"syscall"
)

// detach puts the child in its own session so closing the launcher does
// not take it down.
func detach(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
