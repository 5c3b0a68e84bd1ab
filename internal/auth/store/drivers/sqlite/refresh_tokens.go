package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/townhall-app/townhall/internal/auth/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, selector, secret_hash, expires_at, revoked, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Selector, t.SecretHash, toMillis(t.ExpiresAt), t.Revoked, toMillis(t.CreatedAt))
	return mapWriteErr(err)
}

func (r *refreshTokensRepo) GetRefreshTokenBySelector(
	ctx context.Context,
	selector string,
) (domain.RefreshToken, error) {
	var (
		t                domain.RefreshToken
		expires, created int64
		lastUsed         sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, selector, secret_hash, expires_at, revoked, last_used_at, created_at
		FROM refresh_tokens
		WHERE selector = ?`, selector,
	).Scan(&t.ID, &t.UserID, &t.Selector, &t.SecretHash, &expires, &t.Revoked, &lastUsed, &created)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.ExpiresAt = fromMillis(expires)
	t.LastUsedAt = fromNullMillis(lastUsed)
	t.CreatedAt = fromMillis(created)
	return t, nil
}

func (r *refreshTokensRepo) TouchRefreshToken(ctx context.Context, id string, at time.Time) error {
	return requireRow(r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET last_used_at = ? WHERE id = ?`, toMillis(at), id))
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, id string) error {
	return requireRow(r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1 WHERE id = ?`, id))
}

func (r *refreshTokensRepo) DeleteUserStaleRefreshTokens(
	ctx context.Context,
	userID string,
	now time.Time,
) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM refresh_tokens
		WHERE user_id = ? AND (expires_at <= ? OR revoked = 1)`,
		userID, toMillis(now))
	if err != nil {
		return 0, err
	}
	return affected(res)
}

func (r *refreshTokensRepo) DeleteStaleRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= ? OR revoked = 1`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return affected(res)
}
