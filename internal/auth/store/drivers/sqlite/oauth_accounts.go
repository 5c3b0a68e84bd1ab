package sqlite

import (
	"context"
	"time"

	"github.com/townhall-app/townhall/internal/auth/domain"
)

type oauthAccountsRepo struct {
	db dbtx
}

func (r *oauthAccountsRepo) GetOAuthAccount(
	ctx context.Context,
	userID string,
	provider domain.AuthProvider,
) (domain.OAuthAccount, error) {
	var (
		a                domain.OAuthAccount
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider, provider_user_id, provider_email, created_at, updated_at
		FROM oauth_accounts
		WHERE user_id = ? AND provider = ?`, userID, string(provider),
	).Scan(&a.ID, &a.UserID, &a.Provider, &a.ProviderUserID, &a.ProviderEmail, &created, &updated)
	if err != nil {
		return domain.OAuthAccount{}, mapNotFound(err)
	}
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	return a, nil
}

func (r *oauthAccountsRepo) CreateOAuthAccount(ctx context.Context, a domain.OAuthAccount) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO oauth_accounts (id, user_id, provider, provider_user_id, provider_email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, string(a.Provider), a.ProviderUserID, a.ProviderEmail,
		toMillis(a.CreatedAt), toMillis(a.UpdatedAt))
	return mapWriteErr(err)
}

func (r *oauthAccountsRepo) TouchOAuthAccount(ctx context.Context, id string, at time.Time) error {
	return requireRow(r.db.ExecContext(ctx,
		`UPDATE oauth_accounts SET updated_at = ? WHERE id = ?`, toMillis(at), id))
}
