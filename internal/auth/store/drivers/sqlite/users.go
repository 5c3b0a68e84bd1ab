package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/townhall-app/townhall/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, password_hash, first_name, last_name, role, verified,
	auth_provider, profile_picture, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u                   domain.User
		passwordHash, photo sql.NullString
		created, updated    int64
	)
	err := row.Scan(
		&u.ID, &u.Email, &passwordHash, &u.FirstName, &u.LastName, &u.Role, &u.Verified,
		&u.AuthProvider, &photo, &created, &updated,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.PasswordHash = passwordHash.String
	u.ProfilePicture = photo.String
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, nullString(u.PasswordHash), u.FirstName, u.LastName, string(u.Role), u.Verified,
		string(u.AuthProvider), nullString(u.ProfilePicture), toMillis(u.CreatedAt), toMillis(u.UpdatedAt),
	)
	return mapWriteErr(err)
}

func (r *usersRepo) MarkVerified(ctx context.Context, userID string, at time.Time) error {
	return requireRow(r.db.ExecContext(ctx,
		`UPDATE users SET verified = 1, updated_at = ? WHERE id = ?`,
		toMillis(at), userID))
}

func (r *usersRepo) SetProfilePictureIfEmpty(ctx context.Context, userID, url string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET profile_picture = ?, updated_at = ?
		WHERE id = ? AND (profile_picture IS NULL OR profile_picture = '')`,
		url, toMillis(at), userID)
	return err
}
