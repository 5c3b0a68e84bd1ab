package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/townhall-app/townhall/internal/auth/domain"
)

type refreshTokensRepo struct {
	q querier
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, selector, secret_hash, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.UserID, t.Selector, t.SecretHash, t.ExpiresAt, t.Revoked, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", mapWriteErr(err))
	}
	return nil
}

func (r *refreshTokensRepo) GetRefreshTokenBySelector(
	ctx context.Context,
	selector string,
) (domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.q.QueryRow(ctx, `
		SELECT id, user_id, selector, secret_hash, expires_at, revoked, last_used_at, created_at
		FROM refresh_tokens
		WHERE selector = $1`, selector,
	).Scan(&t.ID, &t.UserID, &t.Selector, &t.SecretHash, &t.ExpiresAt, &t.Revoked, &t.LastUsedAt, &t.CreatedAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *refreshTokensRepo) TouchRefreshToken(ctx context.Context, id string, at time.Time) error {
	return requireRow(r.q.Exec(ctx, `UPDATE refresh_tokens SET last_used_at = $1 WHERE id = $2`, at, id))
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, id string) error {
	return requireRow(r.q.Exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE id = $1`, id))
}

func (r *refreshTokensRepo) DeleteUserStaleRefreshTokens(
	ctx context.Context,
	userID string,
	now time.Time,
) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE user_id = $1 AND (expires_at <= $2 OR revoked)`,
		userID, now)
	if err != nil {
		return 0, fmt.Errorf("delete stale refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *refreshTokensRepo) DeleteStaleRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1 OR revoked`, now)
	if err != nil {
		return 0, fmt.Errorf("delete stale refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
