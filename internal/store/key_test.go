package store

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signKey(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-the-real-secret"))
	require.NoError(t, err)
	return token
}

func TestInspectKey(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("healthy anon key", func(t *testing.T) {
		key := signKey(t, jwt.MapClaims{"role": "anon", "ref": "abcd", "exp": now.Add(time.Hour).Unix()})

		info, err := InspectKey(key)

		require.NoError(t, err)
		assert.Equal(t, "anon", info.Role)
		assert.Equal(t, "abcd", info.Ref)
		assert.Empty(t, info.Problems(now))
	})

	t.Run("service role and expired", func(t *testing.T) {
		key := signKey(t, jwt.MapClaims{"role": "service_role", "exp": now.Add(-time.Hour).Unix()})

		info, err := InspectKey(key)

		require.NoError(t, err)
		assert.Len(t, info.Problems(now), 2)
	})

	t.Run("not a jwt", func(t *testing.T) {
		_, err := InspectKey("sb_publishable_abc")

		assert.Error(t, err)
	})
}
