// Package pluginrepo finds plugins in the plugins directory and installs
// new ones into it.
//
// Layout: <plugins_dir>/<name>/manifest.toml and plugin.js. The directory
// name is the plugin's name in the configuration.
package pluginrepo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/ports"
)

// ErrNotFound is returned by Lookup for unknown plugin names.
var ErrNotFound = errors.New("plugin not found")

// Repo reads plugins from a directory.
type Repo struct {
	dir string
}

// New builds a repo rooted at dir.
func New(dir string) *Repo {
	return &Repo{dir: dir}
}

// Dir returns the plugins directory.
func (r *Repo) Dir() string { return r.dir }

// Discover reads every plugin directory. Plugins that fail to parse are
// skipped and reported together as *domain.LoadError values joined in the
// returned error; the successfully read ones are still returned.
func (r *Repo) Discover() ([]domain.PluginInfo, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read plugins dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var infos []domain.PluginInfo
	var errs []error
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := Read(filepath.Join(r.dir, e.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		infos = append(infos, info)
	}
	return infos, errors.Join(errs...)
}

// Lookup reads one plugin by name.
func (r *Repo) Lookup(name string) (domain.PluginInfo, error) {
	if !validName(name) {
		return domain.PluginInfo{}, fmt.Errorf("invalid plugin name %q", name)
	}
	dir := filepath.Join(r.dir, name)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.PluginInfo{}, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return domain.PluginInfo{}, err
	}
	return Read(dir)
}

// Read parses the manifest and loads the script of the plugin in dir.
func Read(dir string) (domain.PluginInfo, error) {
	name := filepath.Base(dir)
	loadErr := func(err error) (domain.PluginInfo, error) {
		return domain.PluginInfo{}, &domain.LoadError{Plugin: name, Err: err}
	}

	manifest, err := ParseManifest(filepath.Join(dir, domain.ManifestFile))
	if err != nil {
		return loadErr(err)
	}
	script, err := os.ReadFile(filepath.Join(dir, domain.ScriptFile))
	if err != nil {
		return loadErr(fmt.Errorf("read %s: %w", domain.ScriptFile, err))
	}
	return domain.PluginInfo{Dir: dir, Manifest: manifest, Script: script}, nil
}

// ParseManifest decodes a manifest.toml file.
func ParseManifest(path string) (domain.PluginManifest, error) {
	var m domain.PluginManifest
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return domain.PluginManifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return domain.PluginManifest{}, fmt.Errorf("manifest has unknown keys: %s", strings.Join(keys, ", "))
	}
	seen := make(map[string]bool)
	for _, c := range m.Commands {
		if c.ID == "" {
			return domain.PluginManifest{}, errors.New("manifest command without id")
		}
		if seen[c.ID] {
			return domain.PluginManifest{}, fmt.Errorf("duplicate manifest command %q", c.ID)
		}
		seen[c.ID] = true
	}
	return m, nil
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.ContainsRune(name, 0)
}

var _ ports.PluginLoader = (*Repo)(nil)
