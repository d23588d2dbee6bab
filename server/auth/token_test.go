package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessToken(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateAccessToken("alice", time.Now().Add(DefaultAccessTokenDuration), secret)
	require.NoError(t, err)

	username, err := ParseAccessToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := ParseAccessToken(token, []byte("other"))
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		expired, err := GenerateAccessToken("alice", time.Now().Add(-time.Minute), secret)
		require.NoError(t, err)
		_, err = ParseAccessToken(expired, secret)
		assert.Error(t, err)
	})

	t.Run("no expiry is rejected", func(t *testing.T) {
		forever, err := GenerateAccessToken("alice", time.Time{}, secret)
		require.NoError(t, err)
		_, err = ParseAccessToken(forever, secret)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseAccessToken("not-a-token", secret)
		assert.Error(t, err)
	})

	_, err = GenerateAccessToken("", time.Now(), secret)
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := BearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, ComparePassword(hash, "s3cret"))
	assert.False(t, ComparePassword(hash, "wrong"))
	assert.False(t, ComparePassword("not-a-hash", "s3cret"))
}
