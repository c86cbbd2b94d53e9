// Package executor starts the processes requested by RunCommand and
// RunShell actions.
package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/doeshing/sift/internal/ports"
)

// LocalExecutor starts detached processes on the host.
type LocalExecutor struct {
	shell  string
	logger ports.Logger
}

// NewLocalExecutor builds a new executor, shell defaults to $SHELL and
// then /bin/sh.
func NewLocalExecutor(shell string, logger ports.Logger) *LocalExecutor {
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	return &LocalExecutor{shell: shell, logger: logger}
}

// Start launches program and returns once it is running. The launcher
// does not wait for it; the process is reaped in the background.
func (e *LocalExecutor) Start(ctx context.Context, program string, args []string) error {
	if program == "" {
		return fmt.Errorf("empty program")
	}
	return e.start(exec.Command(program, args...))
}

// StartShell runs line through the shell.
func (e *LocalExecutor) StartShell(ctx context.Context, line string) error {
	return e.start(exec.Command(e.shell, "-c", line))
}

func (e *LocalExecutor) start(c *exec.Cmd) error {
	c.Stdin = nil
	c.Stdout = nil
	c.Stderr = nil
	detach(c)
	if err := c.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.Path, err)
	}
	if e.logger != nil {
		e.logger.Info("process started", map[string]interface{}{"pid": c.Process.Pid, "path": c.Path})
	}
	go func() {
		err := c.Wait()
		if err != nil && e.logger != nil {
			e.logger.Debug("process exited", map[string]interface{}{"pid": c.Process.Pid, "error": err.Error()})
		}
	}()
	return nil
}

var _ ports.CommandRunner = (*LocalExecutor)(nil)
