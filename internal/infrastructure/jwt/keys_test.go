package jwtinfra

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrGenerateKeys_GeneratesOnce(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "jwt_keys")
	store := NewDirStore(dir)

	first, err := LoadOrGenerateKeys(ctx, store, "jwt-key", "jwt-key.pub")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "jwt-key"))
	assert.FileExists(t, filepath.Join(dir, "jwt-key.pub"))
	assert.Equal(t, 2048, first.Private.N.BitLen())

	second, err := LoadOrGenerateKeys(ctx, store, "jwt-key", "jwt-key.pub")
	require.NoError(t, err)
	assert.True(t, first.Private.Equal(second.Private))
	assert.True(t, first.Public.Equal(second.Public))
}

func TestLoadOrGenerateKeys_RegeneratesBothWhenOneMissing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewDirStore(dir)

	first, err := LoadOrGenerateKeys(ctx, store, "jwt-key", "jwt-key.pub")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "jwt-key.pub")))

	second, err := LoadOrGenerateKeys(ctx, store, "jwt-key", "jwt-key.pub")
	require.NoError(t, err)
	assert.False(t, first.Private.Equal(second.Private))
	assert.True(t, second.Private.PublicKey.Equal(second.Public))
}

func TestLoadOrGenerateKeys_UnwritableLocation(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := LoadOrGenerateKeys(context.Background(), NewDirStore(filepath.Join(blocker, "keys")), "jwt-key", "jwt-key.pub")
	assert.Error(t, err)
}

func TestLoadOrGenerateKeys_CorruptKey(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jwt-key"), []byte("garbage"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jwt-key.pub"), []byte("garbage"), 0o600))

	_, err := LoadOrGenerateKeys(context.Background(), NewDirStore(dir), "jwt-key", "jwt-key.pub")
	assert.ErrorContains(t, err, "parse private key")
}
