package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeWithoutFile(t *testing.T) {
	b := New("beats-test", "v0.1.0")
	require.NoError(t, b.Initialize("", "test"))
	require.NotNil(t, b.Config)
	require.NotNil(t, b.Logger)
	assert.Equal(t, "beats-test", b.Config.Server.Name)
	assert.Equal(t, "v0.1.0", b.Config.Version)

	shutdown := b.SetupTracing(context.Background())
	shutdown()
}

func TestInitializeBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[tree]\nmax_trees = 0\n"), 0o600))
	assert.Error(t, New("beats-test", "").Initialize(path, "test"))
}
