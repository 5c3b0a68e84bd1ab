package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	tests := []struct {
		name   string
		secret string
	}{
		{"password", "Abcd123!"},
		{"otp", "482913"},
		{"refresh secret", strings.Repeat("ab", 32)},
		{"unicode", "пароль🔒密码"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.secret)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$2a$"))
			require.NoError(t, h.Verify(tt.secret, hash))
			require.ErrorIs(t, h.Verify(tt.secret+"x", hash), ErrMismatch)
		})
	}
}

func TestHasherSaltsEveryHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestHasherRejectsOverlongSecret(t *testing.T) {
	_, err := NewHasher(bcrypt.MinCost).Hash(strings.Repeat("a", MaxSecretLength+1))
	require.Error(t, err)
}

func TestHasherVerifyMalformedHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	require.ErrorIs(t, h.Verify("x", ""), ErrMismatch)
	require.ErrorIs(t, h.Verify("x", "not-a-bcrypt-hash"), ErrMismatch)
}

func TestNewHasherCost(t *testing.T) {
	require.Equal(t, DefaultCost, NewHasher(0).Cost())
	require.Equal(t, bcrypt.MinCost, NewHasher(1).Cost())
	require.Equal(t, bcrypt.MaxCost, NewHasher(99).Cost())
	require.Equal(t, 12, NewHasher(12).Cost())
}
