// Package mail delivers one-time verification codes to users.
package mail

import (
	"context"
	"errors"
)

const (
	DefaultFrom = "Town Hall <townhall@gmail.com>"
	otpSubject  = "Verify Your Email - OTP"
)

var ErrMissingRecipient = errors.New("mail: recipient and code are required")

// OTPMessage is a verification code addressed to one user.
type OTPMessage struct {
	To   string
	Name string
	Code string
}

func (m OTPMessage) validate() error {
	if m.To == "" || m.Code == "" {
		return ErrMissingRecipient
	}
	return nil
}

// greeting falls back to a neutral salutation when no name is known.
func (m OTPMessage) greeting() string {
	if m.Name == "" {
		return "there"
	}
	return m.Name
}

type Sender interface {
	SendOTP(ctx context.Context, msg OTPMessage) error
}
