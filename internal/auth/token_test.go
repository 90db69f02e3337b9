package auth

import (
	"testing"
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-with-enough-entropy-1234"

func TestGenerateAndValidateSessionToken(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)

	token, err := tm.GenerateSessionToken("user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, token.JTI)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, 5*time.Second)

	claims, err := tm.ValidateToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, token.JTI, claims.ID)
	assert.Equal(t, models.TokenTypeSession, claims.Type)
}

func TestGenerateSessionToken_UniqueJTI(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)

	a, err := tm.GenerateSessionToken("user-1")
	require.NoError(t, err)
	b, err := tm.GenerateSessionToken("user-1")
	require.NoError(t, err)

	assert.NotEqual(t, a.JTI, b.JTI)
}

func TestValidateToken_Expired(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := tm.GenerateSessionToken("user-1")
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.ValidateToken(token.Token)
	assert.Error(t, err)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := NewTokenManager(testSecret, time.Hour).GenerateSessionToken("user-1")
	require.NoError(t, err)

	_, err = NewTokenManager("another-secret-key-with-enough-entropy", time.Hour).ValidateToken(token.Token)
	assert.Error(t, err)
}

func TestValidateToken_RejectsOtherSigningMethod(t *testing.T) {
	claims := &models.TokenClaims{
		Type:   models.TokenTypeSession,
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager(testSecret, time.Hour).ValidateToken(signed)
	assert.Error(t, err)
}

func TestValidateToken_RejectsWrongType(t *testing.T) {
	claims := &models.TokenClaims{
		Type:   "refresh",
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewTokenManager(testSecret, time.Hour).ValidateToken(signed)
	assert.Error(t, err)
}
