package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/townhall-app/townhall/internal/auth/domain"
	"github.com/townhall-app/townhall/internal/auth/store"
	"github.com/townhall-app/townhall/pkg/cryptox"
	"github.com/townhall-app/townhall/pkg/idx"
)

// RefreshLedger persists refresh tokens and checks presented ones. Tokens are
// found by their selector prefix, so a lookup never scans other users' rows.
type RefreshLedger struct {
	Store  store.Store
	Hasher *cryptox.Hasher
	TTL    time.Duration
	Now    func() time.Time
}

func (l *RefreshLedger) ttl() time.Duration {
	if l.TTL > 0 {
		return l.TTL
	}
	return domain.RefreshTokenTTL
}

// Save records token for userID. Only the selector and a hash of the secret
// are kept.
func (l *RefreshLedger) Save(ctx context.Context, userID, token string) error {
	selector, secret, err := cryptox.SplitToken(token)
	if err != nil {
		return err
	}
	hash, err := l.Hasher.Hash(secret)
	if err != nil {
		return err
	}

	now := nowFrom(l.Now)
	return l.Store.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:         idx.NewAt(now).String(),
		UserID:     userID,
		Selector:   selector,
		SecretHash: hash,
		ExpiresAt:  now.Add(l.ttl()),
		CreatedAt:  now,
	})
}

// CleanExpired drops the user's expired and revoked tokens.
func (l *RefreshLedger) CleanExpired(ctx context.Context, userID string) error {
	_, err := l.Store.RefreshTokens().DeleteUserStaleRefreshTokens(ctx, userID, nowFrom(l.Now))
	return err
}

// lookup finds the stored row whose selector and secret match token,
// regardless of its state.
func (l *RefreshLedger) lookup(ctx context.Context, token string) (domain.RefreshToken, error) {
	selector, secret, err := cryptox.SplitToken(token)
	if err != nil {
		return domain.RefreshToken{}, ErrInvalidRefresh
	}

	row, err := l.Store.RefreshTokens().GetRefreshTokenBySelector(ctx, selector)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.RefreshToken{}, ErrInvalidRefresh
		}
		return domain.RefreshToken{}, err
	}
	if l.Hasher.Verify(secret, row.SecretHash) != nil {
		return domain.RefreshToken{}, ErrInvalidRefresh
	}
	return row, nil
}

// FindAndValidate returns the live token matching token together with its
// owner. Every rejection is ErrInvalidRefresh.
func (l *RefreshLedger) FindAndValidate(ctx context.Context, token string) (domain.RefreshToken, domain.User, error) {
	row, err := l.lookup(ctx, token)
	if err != nil {
		return domain.RefreshToken{}, domain.User{}, err
	}
	if !row.Usable(nowFrom(l.Now)) {
		return domain.RefreshToken{}, domain.User{}, ErrInvalidRefresh
	}

	u, err := l.Store.Users().GetUserByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.RefreshToken{}, domain.User{}, ErrInvalidRefresh
		}
		return domain.RefreshToken{}, domain.User{}, fmt.Errorf("load token owner: %w", err)
	}
	return row, u, nil
}

func (l *RefreshLedger) TouchLastUsed(ctx context.Context, id string) error {
	return l.Store.RefreshTokens().TouchRefreshToken(ctx, id, nowFrom(l.Now))
}

func (l *RefreshLedger) Revoke(ctx context.Context, id string) error {
	return l.Store.RefreshTokens().RevokeRefreshToken(ctx, id)
}
