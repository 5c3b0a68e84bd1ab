package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultAccessTokenTTL is how long an access token stays valid.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultStateTTL bounds the OAuth round trip between consent and callback.
	DefaultStateTTL = 10 * time.Minute

	// AudienceAPI is carried by access tokens.
	AudienceAPI = "townhall-api"

	// AudienceOAuthState is carried by OAuth state tokens so they can never be
	// replayed as access tokens and vice versa.
	AudienceOAuthState = "townhall-oauth-state"
)

// Claims are the access-token claims every Town Hall service reads. The
// field names are part of the front-end contract.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// StateClaims ride through the OAuth provider as the opaque state parameter.
type StateClaims struct {
	jwt.RegisteredClaims

	Role     string `json:"role"`
	Provider string `json:"provider"`
}

// Identity is the subset of a user that gets embedded in an access token.
type Identity struct {
	ID        string
	Email     string
	Role      string
	FirstName string
	LastName  string
}

// NewAccessClaims builds access claims for id valid from now for ttl.
func NewAccessClaims(id Identity, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: registered(id.ID, issuer, AudienceAPI, ttl, now),
		UserID:           id.ID,
		Email:            id.Email,
		Role:             id.Role,
		FirstName:        id.FirstName,
		LastName:         id.LastName,
	}
}

// NewStateClaims builds a state token body for an OAuth initiation. The jti
// doubles as a nonce so two initiations never produce the same state.
func NewStateClaims(provider, role, issuer string, ttl time.Duration, now time.Time) StateClaims {
	return StateClaims{
		RegisteredClaims: registered("", issuer, AudienceOAuthState, ttl, now),
		Role:             role,
		Provider:         provider,
	}
}

func registered(subject, issuer, audience string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
