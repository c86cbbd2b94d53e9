package capability

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/ports"
)

func newSurface(t *testing.T) (*Surface, string, string) {
	t.Helper()
	base := t.TempDir()
	cfg := filepath.Join(base, "config")
	data := filepath.Join(base, "data")
	require.NoError(t, os.MkdirAll(cfg, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(data, "plugins", "calc"), 0o755))
	return New(Options{ConfigDir: cfg, DataDir: data}), cfg, data
}

func ioKind(t *testing.T, err error) domain.IOErrorKind {
	t.Helper()
	var ioErr *domain.IOError
	require.ErrorAs(t, err, &ioErr)
	return ioErr.Kind
}

func TestSpawnCapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	s, _, _ := newSurface(t)
	out, err := s.Spawn(context.Background(), domain.SpawnRequest{
		Program: "sh",
		Args:    []string{"-c", "printf out; printf err >&2; exit 3"},
		Capture: domain.CaptureBoth,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, out.ExitCode)
	assert.Equal(t, "out", string(out.Stdout))
	assert.Equal(t, "err", string(out.Stderr))

	out, err = s.Spawn(context.Background(), domain.SpawnRequest{
		Program: "sh",
		Args:    []string{"-c", "printf out; printf err >&2"},
		Capture: domain.CaptureStdout,
	})
	require.NoError(t, err)
	assert.Equal(t, "out", string(out.Stdout))
	assert.Empty(t, out.Stderr)
}

func TestSpawnMissingBinary(t *testing.T) {
	s, _, _ := newSurface(t)
	_, err := s.Spawn(context.Background(), domain.SpawnRequest{Program: "sift-definitely-missing-binary"})
	assert.Equal(t, domain.IONotFound, ioKind(t, err))
}

func TestReadFileRelativeToPluginDir(t *testing.T) {
	s, _, data := newSurface(t)
	p := s.ForPlugin("calc")
	require.NoError(t, os.WriteFile(filepath.Join(data, "plugins", "calc", "history.txt"), []byte("1+1"), 0o600))

	raw, err := p.ReadFile("history.txt")
	require.NoError(t, err)
	assert.Equal(t, "1+1", string(raw))
	assert.Equal(t, filepath.Join(data, "plugins", "calc"), p.DataDir())

	names, err := p.ReadDir(".")
	require.NoError(t, err)
	assert.Equal(t, []string{"history.txt"}, names)
}

func TestReadOutsideRootsIsDenied(t *testing.T) {
	s, cfg, _ := newSurface(t)
	p := s.ForPlugin("calc")
	outside := filepath.Join(filepath.Dir(cfg), "secret")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

	_, err := p.ReadFile(outside)
	assert.Equal(t, domain.IOPermissionDenied, ioKind(t, err))
	_, err = p.ReadFile("../../../secret")
	assert.Equal(t, domain.IOPermissionDenied, ioKind(t, err))
	_, err = p.ReadDir("/")
	assert.Equal(t, domain.IOPermissionDenied, ioKind(t, err))
}

func TestSymlinkEscapeIsDenied(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges")
	}
	s, cfg, data := newSurface(t)
	outside := filepath.Join(filepath.Dir(cfg), "secret")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))
	require.NoError(t, os.Symlink(outside, filepath.Join(data, "plugins", "calc", "link")))

	_, err := s.ForPlugin("calc").ReadFile("link")
	assert.Equal(t, domain.IOPermissionDenied, ioKind(t, err))
}

func TestInvalidPaths(t *testing.T) {
	s, _, _ := newSurface(t)
	for _, p := range []string{"", "a\x00b", string([]byte{0xff, 0xfe})} {
		_, err := s.ReadFile(p)
		assert.Equal(t, domain.IOInvalidPath, ioKind(t, err), "path %q", p)
	}
}

func TestReadMissingFile(t *testing.T) {
	s, cfg, _ := newSurface(t)
	_, err := s.ReadFile(filepath.Join(cfg, "nope.txt"))
	assert.Equal(t, domain.IONotFound, ioKind(t, err))
}

type reverseRanker struct{}

func (reverseRanker) Rank(_ string, items []ports.SandboxItem, _ ports.Weights, _ string) []ports.SandboxItem {
	out := make([]ports.SandboxItem, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		out = append(out, items[i])
	}
	return out
}

func TestRankDelegates(t *testing.T) {
	items := []ports.SandboxItem{{Title: "a"}, {Title: "b"}}
	plain := New(Options{})
	assert.Equal(t, items, plain.Rank("", items, ports.DefaultWeights(), "p"))

	ranked := New(Options{Ranker: reverseRanker{}})
	out := ranked.Rank("", items, ports.DefaultWeights(), "p")
	assert.Equal(t, "b", out[0].Title)
}
