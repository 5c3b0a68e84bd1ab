package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/townhall-app/townhall/internal/auth/domain"
	"github.com/townhall-app/townhall/internal/auth/store"
	"github.com/townhall-app/townhall/pkg/idx"
	"github.com/townhall-app/townhall/pkg/slogx"
)

// FederationService maps provider profiles onto local accounts.
type FederationService struct {
	Store store.Store
	Now   func() time.Time
}

// Resolve returns the existing account for the profile's e-mail, linking the
// provider to it on first sight, or a pending draft when the e-mail is new.
// Nothing is written for pending identities.
func (s *FederationService) Resolve(ctx context.Context, draft domain.ProfileDraft) (domain.FederatedIdentity, error) {
	draft.Email = domain.NormalizeEmail(draft.Email)
	if draft.Email == "" {
		return domain.FederatedIdentity{}, ErrEmailUnavailable
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, draft.Email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.PendingIdentity(draft), nil
	}
	if err != nil {
		return domain.FederatedIdentity{}, fmt.Errorf("lookup user: %w", err)
	}

	u, err = s.link(ctx, u, draft)
	if err != nil {
		return domain.FederatedIdentity{}, err
	}
	return domain.ExistingIdentity(u), nil
}

func (s *FederationService) link(ctx context.Context, u domain.User, draft domain.ProfileDraft) (domain.User, error) {
	now := nowFrom(s.Now)
	accounts := s.Store.OAuthAccounts()

	existing, err := accounts.GetOAuthAccount(ctx, u.ID, draft.Provider)
	switch {
	case err == nil:
		if err := accounts.TouchOAuthAccount(ctx, existing.ID, now); err != nil {
			return u, fmt.Errorf("touch oauth account: %w", err)
		}
		return u, nil
	case !errors.Is(err, store.ErrNotFound):
		return u, fmt.Errorf("lookup oauth account: %w", err)
	}

	err = accounts.CreateOAuthAccount(ctx, domain.OAuthAccount{
		ID:             idx.NewAt(now).String(),
		UserID:         u.ID,
		Provider:       draft.Provider,
		ProviderUserID: draft.ProviderUserID,
		ProviderEmail:  draft.Email,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
		return u, fmt.Errorf("link oauth account: %w", err)
	}
	slogx.FromContext(ctx).Info("linked oauth account",
		slog.String("user_id", u.ID),
		slog.String("provider", string(draft.Provider)),
	)

	if u.ProfilePicture == "" && draft.Picture != "" {
		if err := s.Store.Users().SetProfilePictureIfEmpty(ctx, u.ID, draft.Picture, now); err != nil {
			return u, fmt.Errorf("backfill profile picture: %w", err)
		}
		u.ProfilePicture = draft.Picture
	}
	return u, nil
}
