package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/townhall-app/townhall/internal/auth/domain"
)

func TestParseRole(t *testing.T) {
	r, ok := domain.ParseRole("DEVELOPER")
	require.True(t, ok)
	require.Equal(t, domain.RoleDeveloper, r)

	for _, bad := range []string{"", "developer", "ADMIN"} {
		_, ok := domain.ParseRole(bad)
		require.False(t, ok, bad)
	}
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "alice@example.com", domain.NormalizeEmail("  Alice@Example.COM \n"))
}

func TestRefreshTokenUsable(t *testing.T) {
	now := time.Now()
	tok := domain.RefreshToken{ExpiresAt: now.Add(time.Minute)}
	require.True(t, tok.Usable(now))

	tok.Revoked = true
	require.False(t, tok.Usable(now))

	tok = domain.RefreshToken{ExpiresAt: now}
	require.False(t, tok.Usable(now))
}

func TestOTPChallengeExpired(t *testing.T) {
	now := time.Now()
	require.False(t, domain.OTPChallenge{ExpiresAt: now.Add(time.Second)}.Expired(now))
	require.True(t, domain.OTPChallenge{ExpiresAt: now}.Expired(now))
}

func TestFederatedIdentity(t *testing.T) {
	e := domain.ExistingIdentity(domain.User{ID: "u1"})
	require.False(t, e.IsPending())
	require.Equal(t, "u1", e.Existing.ID)

	p := domain.PendingIdentity(domain.ProfileDraft{Email: "x@y.z"})
	require.True(t, p.IsPending())
	require.Nil(t, p.Existing)
}
