//go:build !windows

package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/sift/internal/pkg/logger"
)

func TestStartShellRunsDetached(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")
	e := NewLocalExecutor("/bin/sh", logger.NewNop())
	require.NoError(t, e.StartShell(context.Background(), "echo ok > "+marker))

	require.Eventually(t, func() bool {
		raw, err := os.ReadFile(marker)
		return err == nil && string(raw) == "ok\n"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartCommand(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "touched")
	e := NewLocalExecutor("", logger.NewNop())
	require.NoError(t, e.Start(context.Background(), "touch", []string{marker}))
	require.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartMissingProgram(t *testing.T) {
	e := NewLocalExecutor("", logger.NewNop())
	assert.Error(t, e.Start(context.Background(), "sift-no-such-program", nil))
	assert.Error(t, e.Start(context.Background(), "", nil))
}
