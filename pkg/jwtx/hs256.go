package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HMAC secret accepted outside of tests.
const MinSecretLength = 32

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrAudience    = errors.New("jwtx: audience mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
	ErrInvalid     = errors.New("jwtx: invalid token")
	ErrWeakSecret  = errors.New("jwtx: signing secret too short")
)

// Verifier validates an access token and returns its claims.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// HS256 signs and verifies tokens with a single shared secret.
type HS256 struct {
	secret []byte
	issuer string
}

// NewHS256 returns an HS256 signer/verifier. Secrets shorter than
// MinSecretLength are refused.
func NewHS256(secret []byte, issuer string) (*HS256, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &HS256{secret: key, issuer: issuer}, nil
}

func (h *HS256) Issuer() string { return h.issuer }

// Sign serialises and signs any claim set.
func (h *HS256) Sign(claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return s, nil
}

// Verify validates an access token: algorithm, signature, issuer, audience
// and the exp/nbf window.
func (h *HS256) Verify(token string) (Claims, error) {
	var c Claims
	if err := h.parse(token, AudienceAPI, &c); err != nil {
		return Claims{}, err
	}
	if c.UserID == "" {
		return Claims{}, ErrInvalid
	}
	return c, nil
}

// VerifyState validates an OAuth state token.
func (h *HS256) VerifyState(token string) (StateClaims, error) {
	var c StateClaims
	if err := h.parse(token, AudienceOAuthState, &c); err != nil {
		return StateClaims{}, err
	}
	return c, nil
}

func (h *HS256) parse(token, audience string, into jwt.Claims) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(h.issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)

	t, err := parser.ParseWithClaims(token, into, func(*jwt.Token) (any, error) {
		return h.secret, nil
	})
	if err != nil {
		return classify(err)
	}
	if !t.Valid {
		return ErrInvalid
	}
	return nil
}

// classify folds the jwt library's error tree into our sentinels while
// keeping the original error in the chain.
func classify(err error) error {
	var sentinel error
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		sentinel = ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		sentinel = ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenExpired):
		sentinel = ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		sentinel = ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		sentinel = ErrIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		sentinel = ErrAudience
	default:
		sentinel = ErrInvalid
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}
