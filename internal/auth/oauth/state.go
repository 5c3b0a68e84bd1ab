package oauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/townhall-app/townhall/internal/auth/domain"
	"github.com/townhall-app/townhall/pkg/jwtx"
)

var ErrInvalidState = errors.New("oauth: invalid state")

// StateCodec signs the role selected before the provider redirect so it
// comes back unmodified on the callback.
type StateCodec struct {
	Signer *jwtx.HS256
	TTL    time.Duration
	Now    func() time.Time
}

func (c *StateCodec) Encode(provider domain.AuthProvider, role domain.Role) (string, error) {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultStateTTL
	}
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	claims := jwtx.NewStateClaims(string(provider), string(role), c.Signer.Issuer(), ttl, now)
	return c.Signer.Sign(claims)
}

// Decode verifies state and returns the role it carries. The role is not
// checked here; the caller decides what an unknown role means.
func (c *StateCodec) Decode(provider domain.AuthProvider, state string) (string, error) {
	if state == "" {
		return "", ErrInvalidState
	}
	claims, err := c.Signer.VerifyState(state)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if claims.Provider != string(provider) {
		return "", fmt.Errorf("%w: issued for %s", ErrInvalidState, claims.Provider)
	}
	return claims.Role, nil
}
