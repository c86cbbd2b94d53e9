// Package capability implements the privileged host operations a plugin
// sandbox may call.
package capability

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/ports"
)

// Ranker orders items for the rank capability.
type Ranker interface {
	Rank(query string, items []ports.SandboxItem, weights ports.Weights, plugin string) []ports.SandboxItem
}

// Options configures a Surface.
type Options struct {
	ConfigDir    string
	DataDir      string
	SpawnTimeout time.Duration
	Ranker       Ranker
	Logger       ports.Logger
}

// Surface is the capability table. The base surface is shared by the
// launcher; ForPlugin derives the per-plugin view handed to a sandbox.
type Surface struct {
	configDir    string
	dataDir      string
	pluginDir    string
	spawnTimeout time.Duration
	ranker       Ranker
	logger       ports.Logger
}

// New builds the base surface.
func New(opts Options) *Surface {
	timeout := opts.SpawnTimeout
	if timeout <= 0 {
		timeout = domain.DefaultSpawnTimeout
	}
	return &Surface{
		configDir:    filepath.Clean(opts.ConfigDir),
		dataDir:      filepath.Clean(opts.DataDir),
		pluginDir:    filepath.Clean(opts.DataDir),
		spawnTimeout: timeout,
		ranker:       opts.Ranker,
		logger:       opts.Logger,
	}
}

// ForPlugin returns a view whose relative paths resolve against the
// plugin's own data directory.
func (s *Surface) ForPlugin(name string) *Surface {
	cp := *s
	cp.pluginDir = filepath.Join(s.dataDir, "plugins", name)
	return &cp
}

// ConfigDir returns the host configuration directory.
func (s *Surface) ConfigDir() string { return s.configDir }

// DataDir returns the data directory of this view.
func (s *Surface) DataDir() string { return s.pluginDir }

// Spawn runs a process to completion. A non-zero exit status is reported
// through ExitCode, not as an error.
func (s *Surface) Spawn(ctx context.Context, req domain.SpawnRequest) (domain.ProcessOutput, error) {
	if req.Program == "" || strings.ContainsRune(req.Program, 0) {
		return domain.ProcessOutput{}, &domain.IOError{Kind: domain.IOInvalidPath, Message: "empty or invalid program"}
	}
	ctx, cancel := context.WithTimeout(ctx, s.spawnTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, req.Program, req.Args...)
	var stdout, stderr bytes.Buffer
	if req.Capture == domain.CaptureStdout || req.Capture == domain.CaptureBoth {
		cmd.Stdout = &stdout
	}
	if req.Capture == domain.CaptureStderr || req.Capture == domain.CaptureBoth {
		cmd.Stderr = &stderr
	}

	start := time.Now()
	err := cmd.Run()
	if s.logger != nil {
		s.logger.Debug("spawn finished", map[string]interface{}{
			"program":     req.Program,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}

	out := domain.ProcessOutput{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return out, nil
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	default:
		return domain.ProcessOutput{}, classify(err)
	}
}

// ReadDir lists entry names of a directory inside the allowed roots.
func (s *Surface) ReadDir(path string) ([]string, error) {
	resolved, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, classify(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ReadFile reads a file inside the allowed roots.
func (s *Surface) ReadFile(path string) ([]byte, error) {
	resolved, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, classify(err)
	}
	return data, nil
}

// Rank delegates to the configured ranker. Without one, items keep their
// order.
func (s *Surface) Rank(query string, items []ports.SandboxItem, weights ports.Weights, plugin string) []ports.SandboxItem {
	if s.ranker == nil {
		return append([]ports.SandboxItem(nil), items...)
	}
	return s.ranker.Rank(query, items, weights, plugin)
}

func (s *Surface) resolve(path string) (string, error) {
	if path == "" || strings.ContainsRune(path, 0) || !utf8.ValidString(path) {
		return "", &domain.IOError{Kind: domain.IOInvalidPath, Message: "path is empty or not valid UTF-8"}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.pluginDir, path)
	}
	path = filepath.Clean(path)
	target := path
	if evaluated, err := filepath.EvalSymlinks(path); err == nil {
		target = evaluated
	}
	for _, root := range []string{s.configDir, s.dataDir} {
		if within(root, target) {
			return target, nil
		}
		if evaluatedRoot, err := filepath.EvalSymlinks(root); err == nil && within(evaluatedRoot, target) {
			return target, nil
		}
	}
	return "", &domain.IOError{Kind: domain.IOPermissionDenied, Message: path + " is outside the plugin roots"}
}

func within(root, path string) bool {
	if root == "" || root == "." {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func classify(err error) *domain.IOError {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return &domain.IOError{Kind: domain.IONotFound, Message: err.Error()}
	case errors.Is(err, fs.ErrPermission):
		return &domain.IOError{Kind: domain.IOPermissionDenied, Message: err.Error()}
	default:
		return &domain.IOError{Kind: domain.IOOther, Message: err.Error()}
	}
}

var _ ports.Capabilities = (*Surface)(nil)
