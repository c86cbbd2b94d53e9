package pluginrepo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/sift/internal/domain"
)

const calcManifest = `
name = "Calculator"
description = "Evaluate expressions with qalc"
authors = ["sift"]

[[commands]]
id = "copy-raw"
title = "Copy raw result"
default_hotkey = "ctrl+c"

[schema]
type = "object"
[schema.properties.precision]
type = "integer"
default = 4
`

const calcScript = `
function query(t) { return Deferred.spawn("qalc", [t], "stdout"); }
function handleDeferred(q, r) { return Immediate([{ title: r.output.stdout }]); }
function activate(item) { return Action.copy(item.title); }
`

func writePlugin(t *testing.T, dir, manifest, script string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ManifestFile), []byte(manifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ScriptFile), []byte(script), 0o644))
}

func TestDiscoverReadsManifests(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, filepath.Join(root, "calc"), calcManifest, calcScript)
	writePlugin(t, filepath.Join(root, "broken"), "name = [", calcScript)
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".staging"), 0o755))

	infos, err := New(root).Discover()
	require.Len(t, infos, 1)
	var le *domain.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "broken", le.Plugin)

	calc := infos[0]
	assert.Equal(t, "calc", calc.Name())
	assert.Equal(t, "Calculator", calc.Manifest.Name)
	require.Len(t, calc.Manifest.Commands, 1)
	assert.Equal(t, "ctrl+c", calc.Manifest.Commands[0].DefaultHotkey)
	props := calc.Manifest.Schema["properties"].(map[string]any)
	assert.Contains(t, props, "precision")
	assert.Equal(t, calcScript, string(calc.Script))
}

func TestDiscoverMissingDir(t *testing.T) {
	infos, err := New(filepath.Join(t.TempDir(), "none")).Discover()
	assert.NoError(t, err)
	assert.Empty(t, infos)
}

func TestManifestRejectsUnknownKeys(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "odd")
	writePlugin(t, dir, "name = \"x\"\nflavour = \"mint\"\n", calcScript)
	_, err := Read(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flavour")
}

func TestLookup(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, filepath.Join(root, "calc"), calcManifest, calcScript)
	repo := New(root)

	info, err := repo.Lookup("calc")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "calc"), info.Dir)

	_, err = repo.Lookup("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.Lookup("../calc")
	assert.Error(t, err)
}

func TestInstallCopiesAndValidates(t *testing.T) {
	src := filepath.Join(t.TempDir(), "calc-src")
	writePlugin(t, src, calcManifest, calcScript)
	require.NoError(t, os.MkdirAll(filepath.Join(src, "icons"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "icons", "calc.svg"), []byte("<svg/>"), 0o644))

	repo := New(filepath.Join(t.TempDir(), "plugins"))
	info, err := repo.Install(src, InstallOptions{Name: "calc"})
	require.NoError(t, err)
	assert.Equal(t, "calc", info.Name())
	assert.FileExists(t, filepath.Join(repo.Dir(), "calc", "icons", "calc.svg"))

	_, err = repo.Install(src, InstallOptions{Name: "calc"})
	assert.ErrorIs(t, err, ErrExists)
	_, err = repo.Install(src, InstallOptions{Name: "calc", Overwrite: true})
	require.NoError(t, err)

	infos, err := repo.Discover()
	require.NoError(t, err)
	require.Len(t, infos, 1, "staging directories never show up")

	require.NoError(t, repo.Uninstall("calc"))
	assert.ErrorIs(t, repo.Uninstall("calc"), ErrNotFound)
}

func TestInstallRejectsBrokenScript(t *testing.T) {
	src := filepath.Join(t.TempDir(), "bad")
	writePlugin(t, src, calcManifest, "function query( {")
	repo := New(filepath.Join(t.TempDir(), "plugins"))
	_, err := repo.Install(src, InstallOptions{})
	var le *domain.LoadError
	require.ErrorAs(t, err, &le)
	_, statErr := os.Stat(filepath.Join(repo.Dir(), "bad"))
	assert.True(t, os.IsNotExist(statErr))
}
