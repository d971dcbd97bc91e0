package cryptox_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aussiebroadwan/alimatrix/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestPasswordHasherRoundTrip(t *testing.T) {
	h := cryptox.PasswordHasher{Pepper: "pepper"}

	tests := []struct {
		name     string
		password string
	}{
		{"simple", "password123"},
		{"symbols", "P@ssw0rd!#$%^&*()"},
		{"polish", "zażółćgęśląjaźń"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$"))
			require.Len(t, strings.Split(hash, "$"), 6)

			require.NoError(t, h.Verify(tt.password, hash))
			require.ErrorIs(t, h.Verify(tt.password+"x", hash), cryptox.ErrPasswordMismatch)
		})
	}
}

func TestPasswordHasherPepperMatters(t *testing.T) {
	hash, err := cryptox.PasswordHasher{Pepper: "one"}.Hash("secret")
	require.NoError(t, err)

	err = cryptox.PasswordHasher{Pepper: "two"}.Verify("secret", hash)
	require.ErrorIs(t, err, cryptox.ErrPasswordMismatch)
}

func TestPasswordHasherUniqueSalts(t *testing.T) {
	h := cryptox.PasswordHasher{}
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	h := cryptox.PasswordHasher{}
	for name, in := range map[string]string{
		"empty":           "",
		"wrong algorithm": "$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"missing parts":   "$argon2id$v=19$m=19456",
		"bad parameters":  "$argon2id$v=19$invalid$c2FsdA$aGFzaA",
		"bad salt":        "$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA",
		"bad key":         "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$!!!",
		"wrong version":   "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
	} {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, h.Verify("x", in), cryptox.ErrInvalidHash)
		})
	}
}

func TestLoadPepper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pepper")

	first, err := cryptox.LoadPepper(path)
	require.NoError(t, err)
	require.Len(t, first, 43)

	second, err := cryptox.LoadPepper(path)
	require.NoError(t, err)
	require.Equal(t, first, second, "pepper must be stable across loads")

	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))
	_, err = cryptox.LoadPepper(path)
	require.Error(t, err)

	_, err = cryptox.LoadPepper("")
	require.Error(t, err)
}
