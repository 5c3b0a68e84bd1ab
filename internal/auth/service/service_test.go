package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/townhall-app/townhall/internal/auth/domain"
	"github.com/townhall-app/townhall/internal/auth/mail"
	"github.com/townhall-app/townhall/internal/auth/store/drivers/sqlite"
	"github.com/townhall-app/townhall/pkg/cryptox"
	"github.com/townhall-app/townhall/pkg/jwtx"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var otpPattern = regexp.MustCompile(`^[0-9]{6}$`)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	// Close to wall time: jwt expiry is checked against the real clock.
	return &testClock{t: time.Now().UTC().Truncate(time.Millisecond)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type captureMailer struct {
	mu   sync.Mutex
	sent []mail.OTPMessage
	fail error
}

func (m *captureMailer) SendOTP(_ context.Context, msg mail.OTPMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) lastCode(t *testing.T, to string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == to {
			return m.sent[i].Code
		}
	}
	t.Fatalf("no code sent to %s", to)
	return ""
}

type fixture struct {
	store   *sqlite.Store
	clock   *testClock
	mailer  *captureMailer
	signer  *jwtx.HS256
	metrics *Metrics
	auth    *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	signer, err := jwtx.NewHS256([]byte(testSecret), "townhall-test")
	require.NoError(t, err)

	clock := newTestClock()
	hasher := cryptox.NewHasher(bcrypt.MinCost)
	mailer := &captureMailer{}
	metrics := NewMetrics(prometheus.NewRegistry())

	tokens := &TokenIssuer{Signer: signer, Now: clock.Now}
	return &fixture{
		store:   st,
		clock:   clock,
		mailer:  mailer,
		signer:  signer,
		metrics: metrics,
		auth: &AuthService{
			Store:      st,
			Hasher:     hasher,
			Tokens:     tokens,
			Ledger:     &RefreshLedger{Store: st, Hasher: hasher, Now: clock.Now},
			OTP:        &OTPService{Store: st, Hasher: hasher, Now: clock.Now},
			Federation: &FederationService{Store: st, Now: clock.Now},
			Mailer:     mailer,
			Metrics:    metrics,
			Now:        clock.Now,
		},
	}
}

func registerInput(email string) RegisterInput {
	return RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  "Str0ng!Pass",
		Role:      string(domain.RoleDeveloper),
	}
}

// registerVerified registers email and completes verification.
func (f *fixture) registerVerified(t *testing.T, email string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.auth.Register(ctx, registerInput(email)))
	require.NoError(t, f.auth.Verify(ctx, email, f.mailer.lastCode(t, email)))
}

// otherCode returns a six digit code different from code.
func otherCode(code string) string {
	if code == "123456" {
		return "654321"
	}
	return "123456"
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.auth.Register(ctx, registerInput("  Ada@Example.com ")))

	u, err := f.store.Users().GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.False(t, u.Verified)
	require.Equal(t, domain.ProviderLocal, u.AuthProvider)
	require.Equal(t, domain.RoleDeveloper, u.Role)
	require.NotEqual(t, "Str0ng!Pass", u.PasswordHash)

	code := f.mailer.lastCode(t, "ada@example.com")
	require.Regexp(t, otpPattern, code)
	require.Equal(t, "Ada Lovelace", f.mailer.sent[0].Name)

	active, err := f.store.OTPChallenges().ListActiveOTPChallenges(ctx, u.ID, f.clock.Now())
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, f.clock.Now().Add(domain.OTPTTL), active[0].ExpiresAt)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.auth.Register(ctx, registerInput("ada@example.com")))
	require.ErrorIs(t, f.auth.Register(ctx, registerInput("ADA@example.com")), ErrEmailTaken)

	f.registerVerified(t, "grace@example.com")
	require.ErrorIs(t, f.auth.Register(ctx, registerInput("grace@example.com")), ErrEmailTaken)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	f := newFixture(t)
	in := registerInput("ada@example.com")
	in.Role = "ADMIN"
	require.ErrorIs(t, f.auth.Register(context.Background(), in), ErrInvalidRole)
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mailer.fail = errors.New("smtp down")

	require.NoError(t, f.auth.Register(ctx, registerInput("ada@example.com")))
	_, err := f.store.Users().GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)

	f.mailer.fail = nil
	require.NoError(t, f.auth.ResendOTP(ctx, "ada@example.com"))
	require.NoError(t, f.auth.Verify(ctx, "ada@example.com", f.mailer.lastCode(t, "ada@example.com")))
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.auth.Register(ctx, registerInput("ada@example.com")))
	code := f.mailer.lastCode(t, "ada@example.com")

	t.Run("unknown email", func(t *testing.T) {
		require.ErrorIs(t, f.auth.Verify(ctx, "nobody@example.com", code), ErrUserNotFound)
	})

	t.Run("wrong code leaves account unverified", func(t *testing.T) {
		require.ErrorIs(t, f.auth.Verify(ctx, "ada@example.com", otherCode(code)), ErrOTPInvalid)
		u, err := f.store.Users().GetUserByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		require.False(t, u.Verified)
	})

	t.Run("correct code verifies and consumes the challenge", func(t *testing.T) {
		require.NoError(t, f.auth.Verify(ctx, "ada@example.com", code))

		u, err := f.store.Users().GetUserByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		require.True(t, u.Verified)

		active, err := f.store.OTPChallenges().ListActiveOTPChallenges(ctx, u.ID, f.clock.Now())
		require.NoError(t, err)
		require.Empty(t, active)
	})

	t.Run("code cannot be reused", func(t *testing.T) {
		require.ErrorIs(t, f.auth.Verify(ctx, "ada@example.com", code), ErrOTPExpired)
	})
}

func TestVerifyExpiredCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.auth.Register(ctx, registerInput("ada@example.com")))
	code := f.mailer.lastCode(t, "ada@example.com")

	f.clock.Advance(domain.OTPTTL)
	require.ErrorIs(t, f.auth.Verify(ctx, "ada@example.com", code), ErrOTPExpired)
}

func TestVerifyAcceptsAnyUnexpiredCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.auth.Register(ctx, registerInput("ada@example.com")))
	first := f.mailer.lastCode(t, "ada@example.com")

	f.clock.Advance(time.Minute)
	require.NoError(t, f.auth.ResendOTP(ctx, "ada@example.com"))
	require.Len(t, f.mailer.sent, 2)

	require.NoError(t, f.auth.Verify(ctx, "ada@example.com", first))
}

func TestResendOTP(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.ErrorIs(t, f.auth.ResendOTP(ctx, "nobody@example.com"), ErrUserNotFound)

	f.registerVerified(t, "ada@example.com")
	require.ErrorIs(t, f.auth.ResendOTP(ctx, "ada@example.com"), ErrAlreadyVerified)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.auth.Register(ctx, registerInput("ada@example.com")))

	t.Run("unverified account is refused whatever the password", func(t *testing.T) {
		_, err := f.auth.Login(ctx, "ada@example.com", "Str0ng!Pass")
		require.ErrorIs(t, err, ErrNotVerified)
		_, err = f.auth.Login(ctx, "ada@example.com", "wrong")
		require.ErrorIs(t, err, ErrNotVerified)
	})

	require.NoError(t, f.auth.Verify(ctx, "ada@example.com", f.mailer.lastCode(t, "ada@example.com")))

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.auth.Login(ctx, "nobody@example.com", "Str0ng!Pass")
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.auth.Login(ctx, "ada@example.com", "Wr0ng!Pass")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("success", func(t *testing.T) {
		res, err := f.auth.Login(ctx, " ADA@example.com", "Str0ng!Pass")
		require.NoError(t, err)
		require.Equal(t, "ada@example.com", res.User.Email)
		require.True(t, res.User.Verified)
		require.Len(t, res.Tokens.RefreshToken, 80)

		claims, err := f.auth.Tokens.VerifyAccessToken(res.Tokens.AccessToken)
		require.NoError(t, err)
		require.Equal(t, res.User.ID, claims.UserID)
		require.Equal(t, res.User.ID, claims.Subject)
		require.Equal(t, "DEVELOPER", claims.Role)
		require.Equal(t, "Ada", claims.FirstName)
		require.Equal(t, "Lovelace", claims.LastName)
		require.WithinDuration(t, f.clock.Now().Add(jwtx.DefaultAccessTokenTTL), claims.ExpiresAt.Time, time.Second)
	})
}

func TestLoginOAuthOnlyAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.auth.CompleteOAuth(ctx, domain.ProviderGoogle, domain.PendingIdentity(domain.ProfileDraft{
		Provider: domain.ProviderGoogle, ProviderUserID: "g-1", Email: "ada@example.com",
		FirstName: "Ada", LastName: "Lovelace",
	}), "TESTER")
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, "ada@example.com", "Str0ng!Pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginCleansDeadRefreshTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.registerVerified(t, "ada@example.com")

	first, err := f.auth.Login(ctx, "ada@example.com", "Str0ng!Pass")
	require.NoError(t, err)
	f.auth.Logout(ctx, first.Tokens.RefreshToken)

	_, err = f.auth.Login(ctx, "ada@example.com", "Str0ng!Pass")
	require.NoError(t, err)

	_, err = f.store.RefreshTokens().GetRefreshTokenBySelector(ctx, first.Tokens.RefreshToken[:cryptox.SelectorLength])
	require.Error(t, err)
}

func TestRefreshAndLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.registerVerified(t, "ada@example.com")

	res, err := f.auth.Login(ctx, "ada@example.com", "Str0ng!Pass")
	require.NoError(t, err)
	refresh := res.Tokens.RefreshToken

	access, err := f.auth.Refresh(ctx, refresh)
	require.NoError(t, err)
	claims, err := f.auth.Tokens.VerifyAccessToken(access)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, claims.UserID)

	row, err := f.store.RefreshTokens().GetRefreshTokenBySelector(ctx, refresh[:cryptox.SelectorLength])
	require.NoError(t, err)
	require.NotNil(t, row.LastUsedAt)

	t.Run("rejects malformed and tampered tokens", func(t *testing.T) {
		for _, tok := range []string{"", "not-a-token", refresh[:79] + "x", refresh[:79] + flip(refresh[79])} {
			_, err := f.auth.Refresh(ctx, tok)
			require.ErrorIs(t, err, ErrInvalidRefresh, tok)
		}
	})

	f.auth.Logout(ctx, refresh)
	_, err = f.auth.Refresh(ctx, refresh)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// Logging out twice, or with garbage, is harmless.
	f.auth.Logout(ctx, refresh)
	f.auth.Logout(ctx, "garbage")
	f.auth.Logout(ctx, "")
}

func TestRefreshExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.registerVerified(t, "ada@example.com")

	res, err := f.auth.Login(ctx, "ada@example.com", "Str0ng!Pass")
	require.NoError(t, err)

	f.clock.Advance(domain.RefreshTokenTTL)
	_, err = f.auth.Refresh(ctx, res.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func flip(c byte) string {
	if c == '0' {
		return "1"
	}
	return "0"
}

func TestCompleteOAuthCreatesVerifiedAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	draft := domain.ProfileDraft{
		Provider: domain.ProviderGitHub, ProviderUserID: "42", Email: "Octo@Example.com",
		FirstName: "Octo", LastName: "Cat", Picture: "https://avatars.example/42",
	}
	identity, err := f.auth.Federation.Resolve(ctx, draft)
	require.NoError(t, err)
	require.True(t, identity.IsPending())

	_, err = f.store.Users().GetUserByEmail(ctx, "octo@example.com")
	require.Error(t, err, "pending identities are not persisted")

	pair, err := f.auth.CompleteOAuth(ctx, domain.ProviderGitHub, identity, "TESTER")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.Len(t, pair.RefreshToken, 80)

	u, err := f.store.Users().GetUserByEmail(ctx, "octo@example.com")
	require.NoError(t, err)
	require.True(t, u.Verified)
	require.False(t, u.HasPassword())
	require.Equal(t, domain.RoleTester, u.Role)
	require.Equal(t, domain.ProviderGitHub, u.AuthProvider)
	require.Equal(t, "https://avatars.example/42", u.ProfilePicture)

	link, err := f.store.OAuthAccounts().GetOAuthAccount(ctx, u.ID, domain.ProviderGitHub)
	require.NoError(t, err)
	require.Equal(t, "42", link.ProviderUserID)

	_, err = f.auth.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
}

func TestCompleteOAuthInvalidRole(t *testing.T) {
	f := newFixture(t)
	identity := domain.PendingIdentity(domain.ProfileDraft{Provider: domain.ProviderGoogle, Email: "a@example.com"})

	for _, role := range []string{"", "tester", "ADMIN"} {
		_, err := f.auth.CompleteOAuth(context.Background(), domain.ProviderGoogle, identity, role)
		require.ErrorIs(t, err, ErrInvalidRole, role)
	}
	_, err := f.store.Users().GetUserByEmail(context.Background(), "a@example.com")
	require.Error(t, err)
}

func TestCompleteOAuthRoleMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.registerVerified(t, "ada@example.com")

	identity, err := f.auth.Federation.Resolve(ctx, domain.ProfileDraft{
		Provider: domain.ProviderGoogle, ProviderUserID: "g-7", Email: "ada@example.com",
	})
	require.NoError(t, err)
	require.False(t, identity.IsPending())

	_, err = f.auth.CompleteOAuth(ctx, domain.ProviderGoogle, identity, "TESTER")
	require.ErrorIs(t, err, ErrRoleMismatch)

	var mismatch *RoleMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, domain.RoleDeveloper, mismatch.Existing)
	require.Equal(t, "Account exists as DEVELOPER. Please use the DEVELOPER login.", err.Error())

	u, err := f.store.Users().GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, domain.RoleDeveloper, u.Role)
	require.Equal(t, domain.ProviderLocal, u.AuthProvider)

	pair, err := f.auth.CompleteOAuth(ctx, domain.ProviderGoogle, identity, "DEVELOPER")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
}

func TestFederationResolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.registerVerified(t, "ada@example.com")

	t.Run("missing email", func(t *testing.T) {
		_, err := f.auth.Federation.Resolve(ctx, domain.ProfileDraft{Provider: domain.ProviderGitHub})
		require.ErrorIs(t, err, ErrEmailUnavailable)
	})

	draft := domain.ProfileDraft{
		Provider: domain.ProviderGitHub, ProviderUserID: "99", Email: "ADA@example.com",
		Picture: "https://avatars.example/99",
	}

	t.Run("first sight links and backfills the picture", func(t *testing.T) {
		identity, err := f.auth.Federation.Resolve(ctx, draft)
		require.NoError(t, err)
		require.NotNil(t, identity.Existing)
		require.Equal(t, "https://avatars.example/99", identity.Existing.ProfilePicture)

		link, err := f.store.OAuthAccounts().GetOAuthAccount(ctx, identity.Existing.ID, domain.ProviderGitHub)
		require.NoError(t, err)
		require.Equal(t, "ada@example.com", link.ProviderEmail)
	})

	t.Run("repeat sight touches the link and keeps the picture", func(t *testing.T) {
		f.clock.Advance(time.Hour)
		draft.Picture = "https://avatars.example/other"

		identity, err := f.auth.Federation.Resolve(ctx, draft)
		require.NoError(t, err)
		require.Equal(t, "https://avatars.example/99", identity.Existing.ProfilePicture)

		link, err := f.store.OAuthAccounts().GetOAuthAccount(ctx, identity.Existing.ID, domain.ProviderGitHub)
		require.NoError(t, err)
		require.Equal(t, f.clock.Now(), link.UpdatedAt)
	})
}

func TestMe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.registerVerified(t, "ada@example.com")

	res, err := f.auth.Login(ctx, "ada@example.com", "Str0ng!Pass")
	require.NoError(t, err)

	p, err := f.auth.Me(ctx, res.User.ID)
	require.NoError(t, err)
	require.Equal(t, res.User, p)

	_, err = f.auth.Me(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestVerifyAccessTokenWrapsCause(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.Tokens.VerifyAccessToken("not.a.jwt")
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, jwtx.ErrMalformed)

	other, err := jwtx.NewHS256([]byte("ffffffffffffffffffffffffffffffff"), "townhall-test")
	require.NoError(t, err)
	tok, err := (&TokenIssuer{Signer: other}).IssueAccessToken(domain.User{ID: "u1", Role: domain.RoleTester})
	require.NoError(t, err)

	_, err = f.auth.Tokens.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

// The whole local account lifecycle end to end at the service level.
func TestLocalAccountScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	const email = "scenario@example.com"

	require.NoError(t, f.auth.Register(ctx, registerInput(email)))

	_, err := f.auth.Login(ctx, email, "Str0ng!Pass")
	require.ErrorIs(t, err, ErrNotVerified)

	require.NoError(t, f.auth.Verify(ctx, email, f.mailer.lastCode(t, email)))

	res, err := f.auth.Login(ctx, email, "Str0ng!Pass")
	require.NoError(t, err)

	_, err = f.auth.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)

	f.auth.Logout(ctx, res.Tokens.RefreshToken)

	_, err = f.auth.Refresh(ctx, res.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}
