package pathing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "/etc/teleinfod/teleinfod.toml", GetConfigPath())
	assert.Equal(t, GetConfigDir(), filepath.Dir(GetConfigPath()))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// existing directories are left alone
	require.NoError(t, EnsureDir(dir))
}
