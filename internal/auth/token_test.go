package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken(testSecret, "alice", 30*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Value)

	claims, err := VerifyToken(testSecret, tok.Value, TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, TypeAccess, claims.TokenType)
	assert.WithinDuration(t, tok.Exp, claims.ExpiresAt, time.Second)
}

func TestTokenTypeMismatch(t *testing.T) {
	access, err := NewAccessToken(testSecret, "alice", 30*time.Minute)
	require.NoError(t, err)
	refresh, err := NewRefreshToken(testSecret, "alice", 7*24*time.Hour)
	require.NoError(t, err)

	// A refresh token must not pass as an access token, and vice versa.
	_, err = VerifyToken(testSecret, refresh.Value, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = VerifyToken(testSecret, access.Value, TypeRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	tok, err := NewAccessToken(testSecret, "alice", -time.Minute)
	require.NoError(t, err)

	_, err = VerifyToken(testSecret, tok.Value, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestWrongSecret(t *testing.T) {
	tok, err := NewAccessToken(testSecret, "alice", 30*time.Minute)
	require.NoError(t, err)

	_, err = VerifyToken("another-secret", tok.Value, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTamperedToken(t *testing.T) {
	tok, err := NewAccessToken(testSecret, "alice", 30*time.Minute)
	require.NoError(t, err)

	raw := []byte(tok.Value)
	raw[len(raw)/2] ^= 0x01
	_, err = VerifyToken(testSecret, string(raw), TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGarbageToken(t *testing.T) {
	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := VerifyToken(testSecret, raw, TypeAccess)
		assert.ErrorIs(t, err, ErrInvalidToken, "raw=%q", raw)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret", 4) // minimal cost keeps the test fast
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "s3cret"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}

func TestPasswordTruncation(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	hash, err := HashPassword(string(long), 4)
	require.NoError(t, err)
	// bcrypt only considers the first 72 bytes; both inputs must verify.
	assert.True(t, VerifyPassword(hash, string(long)))
	assert.True(t, VerifyPassword(hash, string(long[:72])))
}
