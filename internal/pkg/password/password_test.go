package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashAndVerify(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)

	hash, err := h.Hash("Abcdef12")
	require.NoError(t, err)
	assert.NotEqual(t, "Abcdef12", hash)

	ok, err := h.Verify("Abcdef12", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcrypt_Salted(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)
	a, err := h.Hash("Abcdef12")
	require.NoError(t, err)
	b, err := h.Hash("Abcdef12")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestBcrypt_MalformedHash(t *testing.T) {
	ok, err := NewBcrypt(0).Verify("Abcdef12", "not-a-hash")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestBcrypt_DefaultCost(t *testing.T) {
	hash, err := NewBcrypt(0).Hash("Abcdef12")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
