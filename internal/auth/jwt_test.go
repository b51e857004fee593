package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokens() TokenService {
	return TokenService{Secret: []byte("test-secret"), Issuer: "recipehub-test", Duration: time.Hour}
}

func TestTokenService_SignParse(t *testing.T) {
	ts := testTokens()
	u := &User{ID: "u1", Username: "alice", TokenVersion: 3}

	tok, exp, err := ts.Sign(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ts.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.Equal(t, "u1", claims.Subject)
}

func TestTokenService_ParseRejects(t *testing.T) {
	ts := testTokens()
	u := &User{ID: "u1", Username: "alice"}

	tok, _, err := ts.Sign(u)
	require.NoError(t, err)

	other := ts
	other.Secret = []byte("another-secret")
	_, err = other.Parse(tok)
	assert.Error(t, err, "wrong secret")

	other = ts
	other.Issuer = "someone-else"
	_, err = other.Parse(tok)
	assert.Error(t, err, "wrong issuer")

	expired := ts
	expired.Duration = -time.Minute
	tok, _, err = expired.Sign(u)
	require.NoError(t, err)
	_, err = ts.Parse(tok)
	assert.Error(t, err, "expired")

	_, err = ts.Parse("not-a-token")
	assert.Error(t, err)
}
