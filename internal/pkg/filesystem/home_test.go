package filesystem

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXDGOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	assert.Equal(t, filepath.Join("/tmp/cfg", "sift"), ConfigDir())
	assert.Equal(t, filepath.Join("/tmp/data", "sift"), DataDir())
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, "/home/tester/plugins", ExpandPath("~/plugins"))
	assert.Equal(t, "/abs", ExpandPath("/abs"))
	assert.Equal(t, "rel/dir", ExpandPath("rel/./dir"))
	assert.Equal(t, "", ExpandPath(""))
}
