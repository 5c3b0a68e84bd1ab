package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/townhall-app/townhall/internal/auth/domain"
)

type oauthAccountsRepo struct {
	q querier
}

func (r *oauthAccountsRepo) GetOAuthAccount(
	ctx context.Context,
	userID string,
	provider domain.AuthProvider,
) (domain.OAuthAccount, error) {
	var (
		a    domain.OAuthAccount
		prov string
	)
	err := r.q.QueryRow(ctx, `
		SELECT id, user_id, provider, provider_user_id, provider_email, created_at, updated_at
		FROM oauth_accounts
		WHERE user_id = $1 AND provider = $2`, userID, string(provider),
	).Scan(&a.ID, &a.UserID, &prov, &a.ProviderUserID, &a.ProviderEmail, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.OAuthAccount{}, mapNotFound(err)
	}
	a.Provider = domain.AuthProvider(prov)
	return a, nil
}

func (r *oauthAccountsRepo) CreateOAuthAccount(ctx context.Context, a domain.OAuthAccount) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO oauth_accounts (id, user_id, provider, provider_user_id, provider_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.UserID, string(a.Provider), a.ProviderUserID, a.ProviderEmail, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert oauth account: %w", mapWriteErr(err))
	}
	return nil
}

func (r *oauthAccountsRepo) TouchOAuthAccount(ctx context.Context, id string, at time.Time) error {
	return requireRow(r.q.Exec(ctx, `UPDATE oauth_accounts SET updated_at = $1 WHERE id = $2`, at, id))
}
