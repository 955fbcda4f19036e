package services

import (
	"testing"
	"time"

	"clicker-battle/internal/testutil"
	"clicker-battle/logger"
	"clicker-battle/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(testutil.OpenDB(t), logger.Nop(), "test-secret", time.Hour)
}

func TestRegisterValidation(t *testing.T) {
	auth := newAuth(t)
	ctx := t.Context()

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"short username", "ab", "secret1"},
		{"long username", "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz", "secret1"},
		{"short password", "alice", "12345"},
		{"blank username", "     ", "secret1"},
		{"no letters or digits", "!!!", "secret1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Register(ctx, tt.username, tt.password)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	auth := newAuth(t)
	ctx := t.Context()

	user, err := auth.Register(ctx, "Alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultRating, user.EloRating)
	assert.Equal(t, "alice", user.Handle)
	assert.NotEqual(t, "secret1", user.PasswordHash)

	_, err = auth.Register(ctx, "Alice", "another1")
	assert.ErrorIs(t, err, ErrConflict)
	_, err = auth.Register(ctx, "alice", "another1")
	assert.ErrorIs(t, err, ErrConflict, "case variants share a handle")

	_, _, err = auth.Login(ctx, "Alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = auth.Login(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, loggedIn, err := auth.Login(ctx, "Alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	require.NotNil(t, loggedIn.LastLogin)

	id, err := auth.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	auth := newAuth(t)

	_, err := auth.Verify("")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = auth.Verify("garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)

	other := NewAuthService(auth.DB, logger.Nop(), "other-secret", time.Hour)
	foreign, err := other.IssueToken("user-1")
	require.NoError(t, err)
	_, err = auth.Verify(foreign)
	assert.ErrorIs(t, err, ErrUnauthorized)

	token, err := auth.IssueToken("user-1")
	require.NoError(t, err)
	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = auth.Verify(token)
	assert.ErrorIs(t, err, ErrUnauthorized, "expired")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1", Issuer: tokenIssuer})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	auth.now = time.Now
	_, err = auth.Verify(unsigned)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
