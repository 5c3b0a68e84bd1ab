package service

import (
	"fmt"
	"time"

	"github.com/townhall-app/townhall/internal/auth/domain"
	"github.com/townhall-app/townhall/pkg/cryptox"
	"github.com/townhall-app/townhall/pkg/jwtx"
)

// TokenIssuer mints access tokens and opaque refresh tokens.
type TokenIssuer struct {
	Signer    *jwtx.HS256
	AccessTTL time.Duration
	Now       func() time.Time
}

// IssueAccessToken signs a short-lived JWT describing u.
func (t *TokenIssuer) IssueAccessToken(u domain.User) (string, error) {
	ttl := t.AccessTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}
	claims := jwtx.NewAccessClaims(jwtx.Identity{
		ID:        u.ID,
		Email:     u.Email,
		Role:      string(u.Role),
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}, t.Signer.Issuer(), ttl, nowFrom(t.Now))

	tok, err := t.Signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return tok, nil
}

// IssueRefreshToken returns 80 random hex characters.
func (t *TokenIssuer) IssueRefreshToken() (string, error) {
	return cryptox.GenerateToken(cryptox.RefreshTokenSize)
}

func (t *TokenIssuer) VerifyAccessToken(token string) (jwtx.Claims, error) {
	claims, err := t.Signer.Verify(token)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

// Verify lets the issuer serve as the bearer middleware's verifier.
func (t *TokenIssuer) Verify(token string) (jwtx.Claims, error) {
	return t.VerifyAccessToken(token)
}
