package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/townhall-app/townhall/internal/auth/domain"
	"github.com/townhall-app/townhall/internal/auth/store"
	"github.com/townhall-app/townhall/pkg/cryptox"
	"github.com/townhall-app/townhall/pkg/idx"
)

// OTPService issues and checks e-mail verification codes.
type OTPService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
	TTL    time.Duration
	Now    func() time.Time
}

func (s *OTPService) Generate() (string, error) {
	return cryptox.GenerateOTP()
}

// Issue stores a hashed challenge for code. When st is nil the service's own
// store is used; pass a store.Tx to issue inside a transaction.
func (s *OTPService) Issue(ctx context.Context, st store.Store, userID, code string) error {
	if st == nil {
		st = s.Store
	}
	hash, err := s.Hasher.Hash(code)
	if err != nil {
		return err
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = domain.OTPTTL
	}
	now := nowFrom(s.Now)
	return st.OTPChallenges().CreateOTPChallenge(ctx, domain.OTPChallenge{
		ID:        idx.NewAt(now).String(),
		UserID:    userID,
		CodeHash:  hash,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
}

// Verify accepts code if it matches any of the user's unexpired challenges,
// trying the newest first. A match marks the user verified and consumes the
// challenge atomically.
func (s *OTPService) Verify(ctx context.Context, userID, code string) error {
	now := nowFrom(s.Now)
	active, err := s.Store.OTPChallenges().ListActiveOTPChallenges(ctx, userID, now)
	if err != nil {
		return fmt.Errorf("list otp challenges: %w", err)
	}
	if len(active) == 0 {
		return ErrOTPExpired
	}

	var matched *domain.OTPChallenge
	for i := range active {
		if s.Hasher.Verify(code, active[i].CodeHash) == nil {
			matched = &active[i]
			break
		}
	}
	if matched == nil {
		return ErrOTPInvalid
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().MarkVerified(ctx, userID, now); err != nil {
			return err
		}
		if err := tx.OTPChallenges().DeleteOTPChallenge(ctx, matched.ID); err != nil {
			// Consumed by a concurrent verify.
			if errors.Is(err, store.ErrNotFound) {
				return ErrOTPExpired
			}
			return err
		}
		return nil
	})
}
