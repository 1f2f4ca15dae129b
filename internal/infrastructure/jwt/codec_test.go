package jwtinfra

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-api-auth/internal/config"
	"github.com/go-api-auth/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testKeysOnce sync.Once
	testKeys     *KeyPair
)

// sharedTestKeys generates one RSA pair for the whole package run.
func sharedTestKeys(t *testing.T) *KeyPair {
	t.Helper()
	testKeysOnce.Do(func() {
		privPEM, pubPEM, err := GenerateKeyPEM()
		require.NoError(t, err)
		testKeys, err = ParseKeyPair(privPEM, pubPEM)
		require.NoError(t, err)
	})
	require.NotNil(t, testKeys)
	return testKeys
}

func testJWTConfig() config.JWT {
	return config.JWT{
		Algorithm:        "RS256",
		AllowRefresh:     true,
		AccessTTL:        time.Hour,
		RefreshTTL:       30 * 24 * time.Hour,
		VerifyExpiration: true,
		Audience:         "test-aud",
		Issuer:           "test-iss",
	}
}

func newTestCodec(t *testing.T, mutate ...func(*config.JWT)) *Codec {
	t.Helper()
	cfg := testJWTConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := NewCodec(sharedTestKeys(t), cfg)
	require.NoError(t, err)
	return c
}

func TestCodec_RoundTrip(t *testing.T) {
	c := newTestCodec(t)

	for _, kind := range []domain.TokenKind{domain.TokenAccess, domain.TokenRefresh} {
		cl := c.MintPayload(42, kind, WithEmail("a@x.com"), WithSubject("access"))
		tok, err := c.Encode(cl)
		require.NoError(t, err)
		assert.Len(t, strings.Split(tok, "."), 3)

		got, err := c.Decode(tok)
		require.NoError(t, err)
		assert.Equal(t, int64(42), got.UserID)
		assert.Equal(t, kind, got.Type)
		assert.Equal(t, cl.ID, got.ID)
		assert.Equal(t, "a@x.com", got.Email)
		assert.Equal(t, "access", got.Subject)
	}
}

func TestCodec_MintPayload_UniqueJTI(t *testing.T) {
	c := newTestCodec(t)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		cl := c.MintPayload(1, domain.TokenAccess)
		require.NotEmpty(t, cl.ID)
		assert.False(t, seen[cl.ID], "jti reused")
		seen[cl.ID] = true
	}
}

func TestCodec_MintPayload_ExpiryPerKind(t *testing.T) {
	c := newTestCodec(t)
	iat := time.Now().Truncate(time.Second)

	access := c.MintPayload(1, domain.TokenAccess, WithIssuedAt(iat))
	refresh := c.MintPayload(1, domain.TokenRefresh, WithIssuedAt(iat))

	assert.Equal(t, iat.Add(time.Hour), access.ExpiresAt.Time)
	assert.Equal(t, iat.Add(30*24*time.Hour), refresh.ExpiresAt.Time)
	assert.True(t, access.ExpiresAt.After(access.IssuedAt.Time))
}

func TestCodec_MintPayload_OptionalClaims(t *testing.T) {
	c := newTestCodec(t, func(cfg *config.JWT) {
		cfg.AllowRefresh = false
		cfg.Audience = ""
	})
	cl := c.MintPayload(1, domain.TokenAccess)
	assert.Zero(t, cl.OrigIAT)
	assert.Empty(t, cl.Audience)
	assert.Empty(t, cl.Email)
	assert.Empty(t, cl.DeviceID)

	c = newTestCodec(t)
	cl = c.MintPayload(1, domain.TokenAccess, WithDeviceID("dev-1"))
	assert.NotZero(t, cl.OrigIAT)
	assert.Equal(t, jwt.ClaimStrings{"test-aud"}, cl.Audience)
	assert.Equal(t, "dev-1", cl.DeviceID)
}

func TestCodec_Decode_Expired(t *testing.T) {
	c := newTestCodec(t)
	tok, err := c.Encode(c.MintPayload(1, domain.TokenAccess, WithIssuedAt(time.Now().Add(-2*time.Hour))))
	require.NoError(t, err)

	_, err = c.Decode(tok)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
	assert.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestCodec_Decode_ExpiryCheckDisabled(t *testing.T) {
	c := newTestCodec(t, func(cfg *config.JWT) { cfg.VerifyExpiration = false })
	tok, err := c.Encode(c.MintPayload(1, domain.TokenAccess, WithIssuedAt(time.Now().Add(-2*time.Hour))))
	require.NoError(t, err)

	got, err := c.Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UserID)
}

func TestCodec_Decode_Leeway(t *testing.T) {
	c := newTestCodec(t, func(cfg *config.JWT) { cfg.Leeway = 30 * time.Second })
	// expired ten seconds ago
	tok, err := c.Encode(c.MintPayload(1, domain.TokenAccess, WithIssuedAt(time.Now().Add(-time.Hour-10*time.Second))))
	require.NoError(t, err)

	_, err = c.Decode(tok)
	assert.NoError(t, err)
}

func TestCodec_Decode_AudienceMismatch(t *testing.T) {
	minter := newTestCodec(t)
	tok, err := minter.Encode(minter.MintPayload(1, domain.TokenAccess))
	require.NoError(t, err)

	verifier := newTestCodec(t, func(cfg *config.JWT) { cfg.Audience = "someone-else" })
	_, err = verifier.Decode(tok)
	assert.ErrorIs(t, err, domain.ErrTokenClaimMismatch)
}

func TestCodec_Decode_IssuerMismatch(t *testing.T) {
	minter := newTestCodec(t, func(cfg *config.JWT) { cfg.Issuer = "rogue" })
	tok, err := minter.Encode(minter.MintPayload(1, domain.TokenAccess))
	require.NoError(t, err)

	_, err = newTestCodec(t).Decode(tok)
	assert.ErrorIs(t, err, domain.ErrTokenClaimMismatch)
}

func TestCodec_Decode_MissingIssuedAt(t *testing.T) {
	c := newTestCodec(t)
	cl := c.MintPayload(1, domain.TokenAccess)
	cl.IssuedAt = nil
	tok, err := c.Encode(cl)
	require.NoError(t, err)

	_, err = c.Decode(tok)
	assert.ErrorIs(t, err, domain.ErrTokenClaimMismatch)
}

func TestCodec_Decode_UnknownType(t *testing.T) {
	c := newTestCodec(t)
	cl := c.MintPayload(1, domain.TokenKind("id"))
	tok, err := c.Encode(cl)
	require.NoError(t, err)

	_, err = c.Decode(tok)
	assert.ErrorIs(t, err, domain.ErrTokenClaimMismatch)
}

func TestCodec_Decode_WrongKey(t *testing.T) {
	privPEM, pubPEM, err := GenerateKeyPEM()
	require.NoError(t, err)
	otherKeys, err := ParseKeyPair(privPEM, pubPEM)
	require.NoError(t, err)
	other, err := NewCodec(otherKeys, testJWTConfig())
	require.NoError(t, err)

	tok, err := other.Encode(other.MintPayload(1, domain.TokenAccess))
	require.NoError(t, err)

	_, err = newTestCodec(t).Decode(tok)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestCodec_Decode_WrongAlgorithm(t *testing.T) {
	c := newTestCodec(t)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c.MintPayload(1, domain.TokenAccess)).
		SignedString([]byte("not-the-rsa-key"))
	require.NoError(t, err)

	_, err = c.Decode(tok)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestCodec_Decode_Malformed(t *testing.T) {
	c := newTestCodec(t)
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		_, err := c.Decode(tok)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid, tok)
	}
}

func TestCodec_Decode_TamperedPayload(t *testing.T) {
	c := newTestCodec(t)
	good, err := c.Encode(c.MintPayload(1, domain.TokenAccess))
	require.NoError(t, err)
	forged, err := c.Encode(c.MintPayload(2, domain.TokenAccess))
	require.NoError(t, err)

	parts, forgedParts := strings.Split(good, "."), strings.Split(forged, ".")
	tampered := parts[0] + "." + forgedParts[1] + "." + parts[2]

	_, err = c.Decode(tampered)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestNewCodec_RejectsNonRSAAlgorithms(t *testing.T) {
	for _, alg := range []string{"HS256", "ES256", "none", "bogus"} {
		cfg := testJWTConfig()
		cfg.Algorithm = alg
		_, err := NewCodec(sharedTestKeys(t), cfg)
		assert.Error(t, err, alg)
	}

	cfg := testJWTConfig()
	cfg.Algorithm = "PS256"
	c, err := NewCodec(sharedTestKeys(t), cfg)
	require.NoError(t, err)
	tok, err := c.Encode(c.MintPayload(7, domain.TokenRefresh))
	require.NoError(t, err)
	got, err := c.Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
}
