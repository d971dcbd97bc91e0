package cryptox_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/aussiebroadwan/alimatrix/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantLen int
	}{
		{"128-bit token", cryptox.TokenSize128, 22},
		{"256-bit token", cryptox.TokenSize256, 43},
		{"custom size", 24, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := cryptox.GenerateToken(tt.size)
			require.NoError(t, err)
			require.Len(t, token, tt.wantLen)

			raw, err := base64.RawURLEncoding.DecodeString(token)
			require.NoError(t, err)
			require.Len(t, raw, tt.size)

			other, err := cryptox.GenerateToken(tt.size)
			require.NoError(t, err)
			require.NotEqual(t, token, other)
		})
	}
}

func TestGenerateTokenInvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		token, err := cryptox.GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
	require.Panics(t, func() { cryptox.MustGenerateToken(0) })
}

func TestKeyedDigest(t *testing.T) {
	a := cryptox.KeyedDigest([]byte("k1"), "1920x1080|Europe/Warsaw")
	b := cryptox.KeyedDigest([]byte("k1"), "1920x1080|Europe/Warsaw")
	c := cryptox.KeyedDigest([]byte("k2"), "1920x1080|Europe/Warsaw")
	d := cryptox.KeyedDigest([]byte("k1"), "1280x720|Europe/Warsaw")

	require.Equal(t, a, b)
	require.NotEqual(t, a, c, "key must change the digest")
	require.NotEqual(t, a, d)
	require.Len(t, a, 43)

	long := []byte(strings.Repeat("x", 200))
	require.Len(t, cryptox.KeyedDigest(long, "data"), 43)
	require.Len(t, cryptox.KeyedDigest(nil, "data"), 43)
}

func TestEqual(t *testing.T) {
	require.True(t, cryptox.Equal("abc", "abc"))
	require.False(t, cryptox.Equal("abc", "abd"))
	require.False(t, cryptox.Equal("abc", "ab"))
}
