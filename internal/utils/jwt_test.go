package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBusinessSecret = "business-secret"
	testAdminSecret    = "admin-secret"
)

func TestBusinessTokenRoundTrip(t *testing.T) {
	token, err := SignBusinessToken(testBusinessSecret, 42, "user", time.Hour)
	require.NoError(t, err)

	claims, err := VerifyBusinessToken(testBusinessSecret, token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "user", claims.Role)

	// verification is idempotent
	again, err := VerifyBusinessToken(testBusinessSecret, token)
	require.NoError(t, err)
	assert.Equal(t, claims, again)
}

func TestBusinessTokenZeroSubject(t *testing.T) {
	// id 0 is the long-lived website pseudo-user, a real identity
	token, err := SignBusinessToken(testBusinessSecret, 0, "user", time.Hour)
	require.NoError(t, err)

	claims, err := VerifyBusinessToken(testBusinessSecret, token)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), claims.UserID)
}

func TestTokenNamespacesDoNotCross(t *testing.T) {
	business, err := SignBusinessToken(testBusinessSecret, 7, "user", time.Hour)
	require.NoError(t, err)
	admin, err := SignAdminToken(testAdminSecret, 7, time.Hour)
	require.NoError(t, err)

	_, err = VerifyBusinessToken(testAdminSecret, business)
	assert.Error(t, err)
	_, err = VerifyAdminToken(testBusinessSecret, admin)
	assert.Error(t, err)
}

func TestAdminTokenLegacyClaim(t *testing.T) {
	// the issuer writes the short "u" form
	token, err := SignAdminToken(testAdminSecret, 7, time.Hour)
	require.NoError(t, err)

	claims, err := VerifyAdminToken(testAdminSecret, token)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), claims.UserID)
}

func signAdminMap(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAdminTokenCanonicalClaimWins(t *testing.T) {
	token := signAdminMap(t, testAdminSecret, jwt.MapClaims{"userId": 9, "u": 5})
	claims, err := VerifyAdminToken(testAdminSecret, token)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), claims.UserID)
}

func TestAdminTokenCanonicalZeroIsValid(t *testing.T) {
	// canonical userId present with value 0 must win over a legacy u
	token := signAdminMap(t, testAdminSecret, jwt.MapClaims{"userId": 0, "u": 5})
	claims, err := VerifyAdminToken(testAdminSecret, token)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), claims.UserID)
}

func TestAdminTokenMissingSubject(t *testing.T) {
	token := signAdminMap(t, testAdminSecret, jwt.MapClaims{"foo": "bar"})
	_, err := VerifyAdminToken(testAdminSecret, token)
	require.Error(t, err)
	assert.Equal(t, ReasonInvalidToken, TokenErrorReason(err))
}

func TestExpiredTokenReason(t *testing.T) {
	token, err := SignBusinessToken(testBusinessSecret, 1, "user", -time.Minute)
	require.NoError(t, err)

	_, err = VerifyBusinessToken(testBusinessSecret, token)
	require.Error(t, err)
	assert.Equal(t, ReasonExpired, TokenErrorReason(err))
}

func TestWrongSecretReason(t *testing.T) {
	token, err := SignBusinessToken("other-secret", 1, "user", time.Hour)
	require.NoError(t, err)

	_, err = VerifyBusinessToken(testBusinessSecret, token)
	require.Error(t, err)
	assert.Equal(t, ReasonInvalid, TokenErrorReason(err))
}

func TestGarbageTokenReason(t *testing.T) {
	_, err := VerifyBusinessToken(testBusinessSecret, "not.a.jwt")
	require.Error(t, err)
	assert.Equal(t, ReasonInvalid, TokenErrorReason(err))
}
