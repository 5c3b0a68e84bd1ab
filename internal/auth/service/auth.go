package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/townhall-app/townhall/internal/auth/domain"
	"github.com/townhall-app/townhall/internal/auth/mail"
	"github.com/townhall-app/townhall/internal/auth/store"
	"github.com/townhall-app/townhall/pkg/cryptox"
	"github.com/townhall-app/townhall/pkg/idx"
	"github.com/townhall-app/townhall/pkg/slogx"
)

// AuthService implements the account and session use cases behind the
// /auth endpoints.
type AuthService struct {
	Store      store.Store
	Hasher     *cryptox.Hasher
	Tokens     *TokenIssuer
	Ledger     *RefreshLedger
	OTP        *OTPService
	Federation *FederationService
	Mailer     mail.Sender
	Metrics    *Metrics
	Now        func() time.Time
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      string
}

// LoginResult is a signed-in user with a fresh token pair.
type LoginResult struct {
	User   domain.Profile
	Tokens domain.TokenPair
}

// Register creates an unverified local account and e-mails it a code. The
// account and its first challenge are written together; a mail failure is
// logged and left for ResendOTP.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (err error) {
	defer func() { s.Metrics.registration(err) }()
	l := slogx.FromContext(ctx)

	role, ok := domain.ParseRole(in.Role)
	if !ok {
		return ErrInvalidRole
	}
	email := domain.NormalizeEmail(in.Email)

	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	code, err := s.OTP.Generate()
	if err != nil {
		return err
	}

	now := nowFrom(s.Now)
	u := domain.User{
		ID:           idx.NewAt(now).String(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         role,
		AuthProvider: domain.ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailTaken
			}
			return err
		}
		return s.OTP.Issue(ctx, tx, u.ID, code)
	})
	if err != nil {
		return err
	}
	l.Info("user registered", slog.String("user_id", u.ID), slog.String("role", string(role)))

	if err := s.sendOTP(ctx, u, code); err != nil {
		l.Error("failed to send verification email", slog.String("user_id", u.ID), slog.Any("error", err))
	}
	return nil
}

// Verify checks code against the account registered under email.
func (s *AuthService) Verify(ctx context.Context, email, code string) (err error) {
	defer func() { s.Metrics.verification(err) }()

	u, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.OTP.Verify(ctx, u.ID, code); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("user verified", slog.String("user_id", u.ID))
	return nil
}

// ResendOTP issues a fresh code to an unverified account. Earlier codes stay
// valid until they expire.
func (s *AuthService) ResendOTP(ctx context.Context, email string) error {
	u, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u.Verified {
		return ErrAlreadyVerified
	}

	code, err := s.OTP.Generate()
	if err != nil {
		return err
	}
	if err := s.OTP.Issue(ctx, nil, u.ID, code); err != nil {
		return fmt.Errorf("issue otp: %w", err)
	}
	return s.sendOTP(ctx, u, code)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (res LoginResult, err error) {
	defer func() { s.Metrics.login(err) }()

	u, err := s.userByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, err
	}
	if u.AuthProvider == domain.ProviderLocal && !u.Verified {
		return LoginResult{}, ErrNotVerified
	}
	if !u.HasPassword() {
		return LoginResult{}, ErrInvalidCredentials
	}
	if s.Hasher.Verify(password, u.PasswordHash) != nil {
		slogx.FromContext(ctx).Info("password login rejected", slog.String("user_id", u.ID))
		return LoginResult{}, ErrInvalidCredentials
	}

	pair, err := s.startSession(ctx, u)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: u.Profile(), Tokens: pair}, nil
}

// CompleteOAuth finishes a provider round trip. Pending identities become
// verified accounts with the role chosen before the redirect; existing ones
// must have been created with that same role.
func (s *AuthService) CompleteOAuth(
	ctx context.Context,
	provider domain.AuthProvider,
	identity domain.FederatedIdentity,
	stateRole string,
) (pair domain.TokenPair, err error) {
	defer func() { s.Metrics.oauthLogin(string(provider), err) }()

	role, ok := domain.ParseRole(stateRole)
	if !ok {
		return domain.TokenPair{}, ErrInvalidRole
	}

	var u domain.User
	switch {
	case identity.IsPending():
		u, err = s.createFederated(ctx, provider, *identity.Pending, role)
		if err != nil {
			return domain.TokenPair{}, err
		}
	case identity.Existing != nil:
		u = *identity.Existing
		if u.Role != role {
			return domain.TokenPair{}, &RoleMismatchError{Existing: u.Role}
		}
	default:
		return domain.TokenPair{}, errors.New("empty federated identity")
	}

	return s.startSession(ctx, u)
}

func (s *AuthService) createFederated(
	ctx context.Context,
	provider domain.AuthProvider,
	d domain.ProfileDraft,
	role domain.Role,
) (domain.User, error) {
	now := nowFrom(s.Now)
	u := domain.User{
		ID:             idx.NewAt(now).String(),
		Email:          domain.NormalizeEmail(d.Email),
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		Role:           role,
		Verified:       true,
		AuthProvider:   provider,
		ProfilePicture: d.Picture,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailTaken
			}
			return err
		}
		return tx.OAuthAccounts().CreateOAuthAccount(ctx, domain.OAuthAccount{
			ID:             idx.NewAt(now).String(),
			UserID:         u.ID,
			Provider:       provider,
			ProviderUserID: d.ProviderUserID,
			ProviderEmail:  u.Email,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	})
	if err != nil {
		return domain.User{}, err
	}
	slogx.FromContext(ctx).Info("federated user created",
		slog.String("user_id", u.ID),
		slog.String("provider", string(provider)),
		slog.String("role", string(role)),
	)
	return u, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, token string) (access string, err error) {
	defer func() { s.Metrics.refresh(err) }()

	if token == "" {
		return "", ErrInvalidRefresh
	}
	row, u, err := s.Ledger.FindAndValidate(ctx, token)
	if err != nil {
		return "", err
	}
	if err := s.Ledger.TouchLastUsed(ctx, row.ID); err != nil {
		slogx.FromContext(ctx).Warn("failed to record refresh token use", slog.Any("error", err))
	}
	return s.Tokens.IssueAccessToken(u)
}

// Logout revokes token if it is known and still active. It never fails.
func (s *AuthService) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	l := slogx.FromContext(ctx)

	row, err := s.Ledger.lookup(ctx, token)
	if err != nil {
		l.Warn("logout with unknown refresh token", slog.Any("error", err))
		return
	}
	if row.Revoked {
		return
	}
	if err := s.Ledger.Revoke(ctx, row.ID); err != nil {
		l.Warn("failed to revoke refresh token", slog.String("token_id", row.ID), slog.Any("error", err))
	}
}

// Me returns the profile of the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (domain.Profile, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Profile{}, ErrUserNotFound
		}
		return domain.Profile{}, err
	}
	return u.Profile(), nil
}

// startSession clears the user's dead refresh tokens and issues a new pair.
func (s *AuthService) startSession(ctx context.Context, u domain.User) (domain.TokenPair, error) {
	if err := s.Ledger.CleanExpired(ctx, u.ID); err != nil {
		return domain.TokenPair{}, fmt.Errorf("clean refresh tokens: %w", err)
	}

	access, err := s.Tokens.IssueAccessToken(u)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.Tokens.IssueRefreshToken()
	if err != nil {
		return domain.TokenPair{}, err
	}
	if err := s.Ledger.Save(ctx, u.ID, refresh); err != nil {
		return domain.TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) userByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

func (s *AuthService) sendOTP(ctx context.Context, u domain.User, code string) error {
	if s.Mailer == nil {
		return errors.New("no mail sender configured")
	}
	return s.Mailer.SendOTP(ctx, mail.OTPMessage{
		To:   u.Email,
		Name: u.FirstName + " " + u.LastName,
		Code: code,
	})
}
