package cryptox

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

const (
	// RefreshTokenSize is the number of random bytes behind a refresh token
	// (80 hex characters once encoded).
	RefreshTokenSize = 40

	// SelectorLength is the number of leading hex characters of a refresh
	// token that are stored in clear as its lookup key.
	SelectorLength = 16

	otpMin = 100000
	otpMax = 999999
)

var ErrMalformedToken = errors.New("cryptox: malformed token")

// GenerateToken returns size bytes from crypto/rand, hex encoded.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// SplitToken separates a refresh token into its public selector and the
// secret remainder that is only ever stored hashed.
func SplitToken(token string) (selector, secret string, err error) {
	if len(token) != RefreshTokenSize*2 {
		return "", "", ErrMalformedToken
	}
	if _, err := hex.DecodeString(token); err != nil {
		return "", "", ErrMalformedToken
	}
	return token[:SelectorLength], token[SelectorLength:], nil
}

// GenerateOTP draws a six digit code uniformly from [100000, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+otpMin), nil
}
