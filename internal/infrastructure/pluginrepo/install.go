package pluginrepo

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dop251/goja"

	"github.com/doeshing/sift/internal/domain"
)

// ErrExists is returned by Install when the target directory is taken and
// overwrite was not requested.
var ErrExists = errors.New("plugin already installed")

// InstallOptions controls Install.
type InstallOptions struct {
	// Name overrides the directory name; defaults to the source dir name.
	Name      string
	Overwrite bool
}

// Install validates the plugin in src (manifest parses, script compiles)
// and copies the directory tree into the plugins directory.
func (r *Repo) Install(src string, opts InstallOptions) (domain.PluginInfo, error) {
	info, err := Read(src)
	if err != nil {
		return domain.PluginInfo{}, err
	}
	name := opts.Name
	if name == "" {
		name = filepath.Base(filepath.Clean(src))
	}
	if !validName(name) {
		return domain.PluginInfo{}, fmt.Errorf("invalid plugin name %q", name)
	}
	if _, err := goja.Compile(name+"/"+domain.ScriptFile, string(info.Script), false); err != nil {
		return domain.PluginInfo{}, &domain.LoadError{Plugin: name, Err: fmt.Errorf("compile: %w", err)}
	}

	if err := os.MkdirAll(r.dir, domain.DirectoryPermissions); err != nil {
		return domain.PluginInfo{}, fmt.Errorf("create plugins dir: %w", err)
	}
	dest := filepath.Join(r.dir, name)
	if _, err := os.Stat(dest); err == nil && !opts.Overwrite {
		return domain.PluginInfo{}, fmt.Errorf("%s: %w", name, ErrExists)
	}

	staging, err := os.MkdirTemp(r.dir, "."+name+"-install-")
	if err != nil {
		return domain.PluginInfo{}, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := copyTree(src, staging); err != nil {
		return domain.PluginInfo{}, fmt.Errorf("copy plugin: %w", err)
	}
	if err := os.RemoveAll(dest); err != nil {
		return domain.PluginInfo{}, fmt.Errorf("remove previous install: %w", err)
	}
	if err := os.Rename(staging, dest); err != nil {
		return domain.PluginInfo{}, fmt.Errorf("activate install: %w", err)
	}
	return Read(dest)
}

// Uninstall removes an installed plugin.
func (r *Repo) Uninstall(name string) error {
	if !validName(name) {
		return fmt.Errorf("invalid plugin name %q", name)
	}
	dest := filepath.Join(r.dir, name)
	if _, err := os.Stat(dest); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return err
	}
	return os.RemoveAll(dest)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		switch {
		case d.IsDir():
			return os.MkdirAll(target, domain.DirectoryPermissions)
		case d.Type().IsRegular():
			return copyFile(path, target)
		default:
			// symlinks and devices are not carried over
			return nil
		}
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
