// internal/store/store_test.go
package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	f, err := Open(filepath.Join(t.TempDir(), "state.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultBootReason, f.Load(KeyLastBootReason))

	_, err = f.Lookup(KeyLastBootReason)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSave_RoundTripAndKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.toml")
	f, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, f.Save("other", "x"))
	require.NoError(t, f.Save(KeyLastBootReason, ReasonGatewayUnreachable))

	// a fresh handle sees the persisted values
	g, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, ReasonGatewayUnreachable, g.Load(KeyLastBootReason))
	v, err := g.Lookup("other")
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSave_ReplacesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o644))

	f, err := Open(path)
	require.NoError(t, err)

	_, err = f.Lookup(KeyLastBootReason)
	require.Error(t, err)
	assert.Equal(t, DefaultBootReason, f.Load(KeyLastBootReason))

	require.NoError(t, f.Save(KeyLastBootReason, ReasonManualReboot))
	assert.Equal(t, ReasonManualReboot, f.Load(KeyLastBootReason))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}
