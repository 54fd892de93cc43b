package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken("9b2f6c1e-0000-4000-8000-000000000001", "a@b.co", "s3cret", time.Hour)
	require.NoError(t, err)

	c, err := ParseToken(tok, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "9b2f6c1e-0000-4000-8000-000000000001", c.Subject)
	assert.Equal(t, "a@b.co", c.Email)
	assert.Equal(t, "authenticated", c.Role)
}

func TestParseTokenRejects(t *testing.T) {
	sign := func(m jwt.SigningMethod, key any, claims jwt.Claims) string {
		s, err := jwt.NewWithClaims(m, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	cases := map[string]string{
		"no subject": sign(jwt.SigningMethodHS256, []byte("s3cret"), &Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}}),
		"no expiry":  sign(jwt.SigningMethodHS256, []byte("s3cret"), &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}}),
		"alg none":   sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ExpiresAt: exp}}),
		"garbage":    "not.a.jwt",
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(tok, "s3cret")
			assert.Error(t, err)
		})
	}
}
