package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)

	token, exp, err := tm.GenerateToken("alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager("secret", 5)

	other, _, err := NewTokenManager("other", 5).GenerateToken("alice")
	require.NoError(t, err)
	_, err = tm.ParseToken(other)
	assert.Error(t, err, "wrong key")

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tm.ParseToken(noSubject)
	assert.Error(t, err, "missing subject")

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tm.ParseToken(expired)
	assert.Error(t, err, "expired")

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"}}).
		SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tm.ParseToken(hs512)
	assert.Error(t, err, "unexpected algorithm")
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("pw", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "pw"))
	assert.Error(t, ComparePassword(hash, "nope"))

	random, err := RandomPasswordHash(4)
	require.NoError(t, err)
	assert.Error(t, ComparePassword(random, ""))
}
