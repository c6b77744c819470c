package identity_test

import (
	"testing"
	"time"

	"github.com/2beens/fitlog/internal/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIDToken(t *testing.T) {
	exp := time.Unix(1_900_000_000, 0)
	claims, err := identity.ParseIDToken(testIDToken(t, "uid-1", "ana@example.com", exp))
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.True(t, exp.Equal(claims.Expiry()))
}

func TestParseIDToken_ExpiredStillReadable(t *testing.T) {
	exp := time.Unix(1_000_000_000, 0)
	claims, err := identity.ParseIDToken(testIDToken(t, "uid-1", "", exp))
	require.NoError(t, err)
	assert.True(t, exp.Equal(claims.Expiry()))
}

func TestParseIDToken_Invalid(t *testing.T) {
	_, err := identity.ParseIDToken("not-a-jwt")
	assert.Error(t, err)

	_, err = identity.ParseIDToken(testIDToken(t, "", "", time.Now()))
	assert.Error(t, err)
}
