package domain

import "time"

// RefreshTokenTTL is the lifetime of a refresh token.
const RefreshTokenTTL = 30 * 24 * time.Hour

// TokenPair is what login and OAuth completion hand back to the client.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken models the stored refresh token record. The plaintext token
// is never persisted: Selector is its first 16 hex characters and SecretHash
// is the bcrypt of the remainder.
type RefreshToken struct {
	ID         string
	UserID     string
	Selector   string
	SecretHash string
	ExpiresAt  time.Time
	Revoked    bool
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// Usable reports whether the token may still be exchanged.
func (t RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
