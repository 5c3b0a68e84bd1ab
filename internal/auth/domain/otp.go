package domain

import "time"

// OTPTTL is how long an e-mailed verification code stays valid.
const OTPTTL = 10 * time.Minute

// OTPChallenge is one outstanding e-mail verification code.
type OTPChallenge struct {
	ID        string
	UserID    string
	CodeHash  string // bcrypt of the 6-digit code
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (c OTPChallenge) Expired(now time.Time) bool { return !now.Before(c.ExpiresAt) }
