package mail

import (
	"context"
	"log/slog"
)

// LogSender writes codes to the log instead of sending them. Development only.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) SendOTP(ctx context.Context, msg OTPMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.WarnContext(ctx, "mail delivery disabled, logging otp",
		slog.String("to", msg.To),
		slog.String("otp", msg.Code),
	)
	return nil
}
