package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/townhall-app/townhall/internal/auth/domain"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, email, password_hash, first_name, last_name, role, verified,
	auth_provider, profile_picture, created_at, updated_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u                     domain.User
		role, provider        string
		passwordHash, picture *string
	)
	err := row.Scan(
		&u.ID, &u.Email, &passwordHash, &u.FirstName, &u.LastName, &role, &u.Verified,
		&provider, &picture, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Role = domain.Role(role)
	u.AuthProvider = domain.AuthProvider(provider)
	u.PasswordHash = deref(passwordHash)
	u.ProfilePicture = deref(picture)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, u.Email, optional(u.PasswordHash), u.FirstName, u.LastName, string(u.Role), u.Verified,
		string(u.AuthProvider), optional(u.ProfilePicture), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", mapWriteErr(err))
	}
	return nil
}

func (r *usersRepo) MarkVerified(ctx context.Context, userID string, at time.Time) error {
	return requireRow(r.q.Exec(ctx,
		`UPDATE users SET verified = TRUE, updated_at = $1 WHERE id = $2`, at, userID))
}

func (r *usersRepo) SetProfilePictureIfEmpty(ctx context.Context, userID, url string, at time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE users SET profile_picture = $1, updated_at = $2
		WHERE id = $3 AND (profile_picture IS NULL OR profile_picture = '')`,
		url, at, userID)
	return err
}
