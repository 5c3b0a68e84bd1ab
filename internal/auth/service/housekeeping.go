package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/townhall-app/townhall/internal/auth/store"
)

// HousekeepingService periodically removes expired OTP challenges and
// expired or revoked refresh tokens so neither table grows without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Metrics  *Metrics
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// SweepResult reports how many rows one sweep removed.
type SweepResult struct {
	OTPChallenges int64
	RefreshTokens int64
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs a sweep immediately and then once per interval until Stop.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep performs one cleanup pass. A failure on one table does not stop the
// other.
func (s *HousekeepingService) Sweep(ctx context.Context) SweepResult {
	now := nowFrom(s.Now)
	var res SweepResult

	n, err := s.Store.OTPChallenges().DeleteExpiredOTPChallenges(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired otp challenges", "error", err)
	} else {
		res.OTPChallenges = n
		s.Metrics.swept("otp_challenges", n)
	}

	n, err = s.Store.RefreshTokens().DeleteStaleRefreshTokens(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete stale refresh tokens", "error", err)
	} else {
		res.RefreshTokens = n
		s.Metrics.swept("refresh_tokens", n)
	}

	s.Logger.Info("housekeeping sweep completed",
		"otp_challenges_deleted", res.OTPChallenges,
		"refresh_tokens_deleted", res.RefreshTokens,
	)
	return res
}
