package store

import (
	"context"
	"errors"
	"time"

	"github.com/townhall-app/townhall/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrNestedTx      = errors.New("store: nested transactions are not supported")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Repositories hang off the store, or off a Tx, so the same
// code runs inside and outside a transaction.
type Store interface {
	Users() Users
	OTPChallenges() OTPChallenges
	RefreshTokens() RefreshTokens
	OAuthAccounts() OAuthAccounts

	ApplyMigrations(ctx context.Context) error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. A non-nil error from fn rolls
	// the transaction back; nil commits it.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail expects an already normalised address.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser returns ErrAlreadyExists when the e-mail is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// MarkVerified sets verified=true. There is no way back.
	MarkVerified(ctx context.Context, userID string, at time.Time) error

	// SetProfilePictureIfEmpty backfills the picture without overwriting one
	// the user already has.
	SetProfilePictureIfEmpty(ctx context.Context, userID, url string, at time.Time) error
}

type OTPChallenges interface {
	CreateOTPChallenge(ctx context.Context, c domain.OTPChallenge) error

	// ListActiveOTPChallenges returns the user's challenges with
	// expires_at > now, newest first.
	ListActiveOTPChallenges(ctx context.Context, userID string, now time.Time) ([]domain.OTPChallenge, error)

	DeleteOTPChallenge(ctx context.Context, id string) error

	// DeleteExpiredOTPChallenges is housekeeping; it returns the rows removed.
	DeleteExpiredOTPChallenges(ctx context.Context, now time.Time) (int64, error)
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenBySelector returns the token regardless of state.
	GetRefreshTokenBySelector(ctx context.Context, selector string) (domain.RefreshToken, error)

	TouchRefreshToken(ctx context.Context, id string, at time.Time) error

	// RevokeRefreshToken flips revoked=true; revoking twice is not an error.
	RevokeRefreshToken(ctx context.Context, id string) error

	// DeleteUserStaleRefreshTokens removes the user's expired or revoked tokens.
	DeleteUserStaleRefreshTokens(ctx context.Context, userID string, now time.Time) (int64, error)

	// DeleteStaleRefreshTokens removes expired or revoked tokens of every user.
	DeleteStaleRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

type OAuthAccounts interface {
	GetOAuthAccount(ctx context.Context, userID string, provider domain.AuthProvider) (domain.OAuthAccount, error)

	// CreateOAuthAccount returns ErrAlreadyExists for a second link to the
	// same provider.
	CreateOAuthAccount(ctx context.Context, a domain.OAuthAccount) error

	TouchOAuthAccount(ctx context.Context, id string, at time.Time) error
}
