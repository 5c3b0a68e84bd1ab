package sqlite

import (
	"context"
	"time"

	"github.com/townhall-app/townhall/internal/auth/domain"
)

type otpChallengesRepo struct {
	db dbtx
}

func (r *otpChallengesRepo) CreateOTPChallenge(ctx context.Context, c domain.OTPChallenge) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO otp_challenges (id, user_id, code_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.CodeHash, toMillis(c.ExpiresAt), toMillis(c.CreatedAt))
	return mapWriteErr(err)
}

func (r *otpChallengesRepo) ListActiveOTPChallenges(
	ctx context.Context,
	userID string,
	now time.Time,
) ([]domain.OTPChallenge, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, code_hash, expires_at, created_at
		FROM otp_challenges
		WHERE user_id = ? AND expires_at > ?
		ORDER BY created_at DESC, id DESC`,
		userID, toMillis(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.OTPChallenge
	for rows.Next() {
		var (
			c                domain.OTPChallenge
			expires, created int64
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.CodeHash, &expires, &created); err != nil {
			return nil, err
		}
		c.ExpiresAt = fromMillis(expires)
		c.CreatedAt = fromMillis(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *otpChallengesRepo) DeleteOTPChallenge(ctx context.Context, id string) error {
	return requireRow(r.db.ExecContext(ctx, `DELETE FROM otp_challenges WHERE id = ?`, id))
}

func (r *otpChallengesRepo) DeleteExpiredOTPChallenges(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otp_challenges WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return affected(res)
}
