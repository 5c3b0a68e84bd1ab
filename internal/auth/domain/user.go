package domain

import (
	"strings"
	"time"
)

// Role is the application role chosen at sign-up. It never changes afterwards.
type Role string

const (
	RoleDeveloper Role = "DEVELOPER"
	RoleTester    Role = "TESTER"
)

// ParseRole accepts only the two application roles, case-sensitively.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleDeveloper, RoleTester:
		return Role(s), true
	}
	return "", false
}

// AuthProvider records how an account was first created.
type AuthProvider string

const (
	ProviderLocal  AuthProvider = "LOCAL"
	ProviderGoogle AuthProvider = "GOOGLE"
	ProviderGitHub AuthProvider = "GITHUB"
)

type User struct {
	ID             string
	Email          string // lower-cased, trimmed
	PasswordHash   string // bcrypt; empty for OAuth-only accounts
	FirstName      string
	LastName       string
	Role           Role
	Verified       bool
	AuthProvider   AuthProvider
	ProfilePicture string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasPassword reports whether password login is possible for the account.
func (u User) HasPassword() bool { return u.PasswordHash != "" }

// NormalizeEmail is applied to every address before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Profile is the public view of a user returned to clients.
type Profile struct {
	ID             string       `json:"id"`
	Email          string       `json:"email"`
	FirstName      string       `json:"firstName"`
	LastName       string       `json:"lastName"`
	Role           Role         `json:"role"`
	Verified       bool         `json:"verified"`
	AuthProvider   AuthProvider `json:"authProvider"`
	ProfilePicture string       `json:"profilePicture,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Role:           u.Role,
		Verified:       u.Verified,
		AuthProvider:   u.AuthProvider,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
	}
}
