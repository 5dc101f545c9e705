// Package sweeper reconciles status flags with the clock. Verification
// and acceptance compare timestamps at read time, so a stale row is
// already inert before the sweep; flipping it just makes the stored
// status truthful for reporting and keeps the expired state reachable.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// codeGrace is how long past expiry an access code keeps its active
// status before the sweep flips it. The school's pointer always names
// exactly one active row; the grace window keeps that property visible
// across a regeneration racing the sweep.
const codeGrace = 24 * time.Hour

// CodeStore exposes expiry for stale access codes.
type CodeStore interface {
	ExpireStale(ctx context.Context, cutoff time.Time) (int, error)
}

// InviteStore exposes expiry for stale pending invitations.
type InviteStore interface {
	ExpireStale(ctx context.Context, cutoff time.Time) (int, error)
}

// SweepResult summarizes the flips performed by one sweep.
type SweepResult struct {
	ExpiredCodes   int
	ExpiredInvites int
}

// Sweeper periodically expires stale join codes and invitations.
type Sweeper struct {
	codes    CodeStore
	invites  InviteStore
	interval time.Duration
	logger   *slog.Logger
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithInterval overrides the sweep interval when greater than zero.
func WithInterval(interval time.Duration) Option {
	return func(s *Sweeper) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithLogger overrides the logger used for sweep errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Sweeper with required stores and options applied.
func New(codes CodeStore, invites InviteStore, opts ...Option) (*Sweeper, error) {
	if codes == nil || invites == nil {
		return nil, fmt.Errorf("codes and invites stores are required")
	}
	s := &Sweeper{
		codes:    codes,
		invites:  invites,
		interval: 10 * time.Minute,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Start runs sweeps periodically until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "sweep failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single sweep: pending invitations past expiry flip
// to expired immediately, access codes only after the grace window.
// Errors from the two stores are aggregated; one store failing does not
// stop the other's sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	now := time.Now()
	var res SweepResult
	var errs []error

	expiredCodes, err := s.codes.ExpireStale(ctx, now.Add(-codeGrace))
	if err != nil {
		errs = append(errs, fmt.Errorf("expire stale join codes: %w", err))
	} else {
		res.ExpiredCodes = expiredCodes
	}

	expiredInvites, err := s.invites.ExpireStale(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("expire stale invitations: %w", err))
	} else {
		res.ExpiredInvites = expiredInvites
	}

	if len(errs) > 0 {
		return res, errors.Join(errs...)
	}

	if res.ExpiredCodes > 0 || res.ExpiredInvites > 0 {
		s.logger.InfoContext(ctx, "sweep flipped stale rows",
			"expired_codes", res.ExpiredCodes,
			"expired_invites", res.ExpiredInvites,
		)
	}
	return res, nil
}
