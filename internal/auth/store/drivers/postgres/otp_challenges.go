package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/townhall-app/townhall/internal/auth/domain"
)

type otpChallengesRepo struct {
	q querier
}

func (r *otpChallengesRepo) CreateOTPChallenge(ctx context.Context, c domain.OTPChallenge) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO otp_challenges (id, user_id, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.UserID, c.CodeHash, c.ExpiresAt, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert otp challenge: %w", mapWriteErr(err))
	}
	return nil
}

func (r *otpChallengesRepo) ListActiveOTPChallenges(
	ctx context.Context,
	userID string,
	now time.Time,
) ([]domain.OTPChallenge, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, code_hash, expires_at, created_at
		FROM otp_challenges
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY created_at DESC, id DESC`,
		userID, now)
	if err != nil {
		return nil, fmt.Errorf("list otp challenges: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OTPChallenge, error) {
		var c domain.OTPChallenge
		err := row.Scan(&c.ID, &c.UserID, &c.CodeHash, &c.ExpiresAt, &c.CreatedAt)
		return c, err
	})
}

func (r *otpChallengesRepo) DeleteOTPChallenge(ctx context.Context, id string) error {
	return requireRow(r.q.Exec(ctx, `DELETE FROM otp_challenges WHERE id = $1`, id))
}

func (r *otpChallengesRepo) DeleteExpiredOTPChallenges(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM otp_challenges WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired otp challenges: %w", err)
	}
	return tag.RowsAffected(), nil
}
