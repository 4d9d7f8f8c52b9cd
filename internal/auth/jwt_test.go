package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": userID})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyValidToken(t *testing.T) {
	verifier := NewVerifier("top-secret")
	userID, err := verifier.Verify(signToken(t, "top-secret", "66cf2f9a2f8b9c0012345678"))
	require.NoError(t, err)
	require.Equal(t, "66cf2f9a2f8b9c0012345678", userID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	verifier := NewVerifier("top-secret")
	_, err := verifier.Verify(signToken(t, "other-secret", "66cf2f9a2f8b9c0012345678"))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMissingUserClaim(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "someone"})
	signed, err := token.SignedString([]byte("top-secret"))
	require.NoError(t, err)

	verifier := NewVerifier("top-secret")
	_, err = verifier.Verify(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	verifier := NewVerifier("top-secret")
	_, err := verifier.Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
