package registry_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxdag/fluxdag/internal/registry"
)

func TestFileRegistry_RegisterAndLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.txt")
	r := registry.NewFileRegistry(path)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, "demo", "10.0.0.1:8585"))

	addr, ok, err := r.Lookup(ctx, "demo")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.1:8585", addr)
}

func TestFileRegistry_LookupMissingNameIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.txt")
	r := registry.NewFileRegistry(path)

	addr, ok, err := r.Lookup(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, addr)
}

func TestFileRegistry_RegisterOverwritesPreviousAddr(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.txt")
	r := registry.NewFileRegistry(path)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, "demo", "10.0.0.1:8585"))
	require.NoError(t, r.Register(ctx, "demo", "10.0.0.2:8585"))

	addr, ok, err := r.Lookup(ctx, "demo")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.2:8585", addr)
}

func TestFileRegistry_UnregisterRemovesEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.txt")
	r := registry.NewFileRegistry(path)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, "demo", "10.0.0.1:8585"))
	require.NoError(t, r.Unregister(ctx, "demo"))

	_, ok, err := r.Lookup(ctx, "demo")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileRegistry_MultipleNamesCoexist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.txt")
	r := registry.NewFileRegistry(path)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, "a", "10.0.0.1:8585"))
	require.NoError(t, r.Register(ctx, "b", "10.0.0.2:8585"))

	addrA, ok, err := r.Lookup(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1:8585", addrA)

	addrB, ok, err := r.Lookup(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.2:8585", addrB)
}
