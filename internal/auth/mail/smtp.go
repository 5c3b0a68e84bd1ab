package mail

import (
	"context"
	"errors"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers mail through an SMTP relay. STARTTLS is used when the
// server offers it.
type SMTPSender struct {
	client *gomail.Client
	from   string
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, errors.New("mail: smtp host is required")
	}
	opts := []gomail.Option{
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Port > 0 {
		opts = append(opts, gomail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail: smtp client: %w", err)
	}

	from := cfg.From
	if from == "" {
		from = DefaultFrom
	}
	return &SMTPSender{client: client, from: from}, nil
}

func (s *SMTPSender) SendOTP(ctx context.Context, msg OTPMessage) error {
	m, err := buildOTPMessage(s.from, msg)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("mail: send otp: %w", err)
	}
	return nil
}

func buildOTPMessage(from string, msg OTPMessage) (*gomail.Msg, error) {
	if err := msg.validate(); err != nil {
		return nil, err
	}

	m := gomail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("mail: from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("mail: to address: %w", err)
	}
	m.Subject(otpSubject)

	data := templateData{Name: msg.greeting(), Code: msg.Code}
	if err := m.SetBodyTextTemplate(otpText, data); err != nil {
		return nil, fmt.Errorf("mail: text body: %w", err)
	}
	if err := m.AddAlternativeHTMLTemplate(otpHTML, data); err != nil {
		return nil, fmt.Errorf("mail: html body: %w", err)
	}
	return m, nil
}
