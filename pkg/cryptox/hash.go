package cryptox

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the cost the service has always hashed with. Raising it
// only affects new hashes; bcrypt embeds the cost in every stored hash.
const DefaultCost = 10

// MaxSecretLength is the largest input bcrypt will hash. Longer passwords are
// rejected at validation time rather than being silently truncated.
const MaxSecretLength = 72

var ErrMismatch = errors.New("cryptox: secret does not match hash")

// Hasher produces and checks one-way salted hashes for passwords, OTP codes
// and the secret half of refresh tokens.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using cost, clamped to bcrypt's supported range.
// A zero cost selects DefaultCost.
func NewHasher(cost int) *Hasher {
	switch {
	case cost == 0:
		cost = DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Cost() int { return h.cost }

// Hash returns the bcrypt encoding of secret.
func (h *Hasher) Hash(secret string) (string, error) {
	if len(secret) > MaxSecretLength {
		return "", fmt.Errorf("cryptox: secret longer than %d bytes", MaxSecretLength)
	}
	out, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("cryptox: hash: %w", err)
	}
	return string(out), nil
}

// Verify compares secret with a hash produced by Hash. Any failure, including
// a malformed hash, is reported as ErrMismatch wrapped with the cause.
func (h *Hasher) Verify(secret, hash string) error {
	if hash == "" {
		return ErrMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return fmt.Errorf("%w: %v", ErrMismatch, err)
	}
	return nil
}
