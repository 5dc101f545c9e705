package identity

import (
	"context"
	"errors"
	"log/slog"

	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
	"homeroom/pkg/platform/circuit"
)

// ResilientGateway wraps a Gateway with circuit breaker protection.
// Provisioning calls always reach the delegate; their infrastructure
// failures feed the breaker. Verification-link sends are the one call
// with a safe fallback: when the circuit is open they are dropped,
// because callers already treat them as best-effort and a struggling
// provider should not be hammered with mail requests.
type ResilientGateway struct {
	delegate Gateway
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

// ResilientOption configures the resilient gateway.
type ResilientOption func(*ResilientGateway)

// WithBreaker substitutes a pre-configured circuit breaker.
func WithBreaker(b *circuit.Breaker) ResilientOption {
	return func(g *ResilientGateway) {
		if b != nil {
			g.breaker = b
		}
	}
}

// NewResilientGateway creates a circuit-breaker-protected identity gateway.
func NewResilientGateway(delegate Gateway, logger *slog.Logger, opts ...ResilientOption) *ResilientGateway {
	g := &ResilientGateway{
		delegate: delegate,
		breaker:  circuit.New("identity_gateway"),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *ResilientGateway) CreateIdentity(ctx context.Context, newIdentity NewIdentity) (id.IdentityID, error) {
	identityID, err := g.delegate.CreateIdentity(ctx, newIdentity)
	g.record(ctx, err)
	return identityID, err
}

func (g *ResilientGateway) FindByAddress(ctx context.Context, address string) (id.IdentityID, error) {
	identityID, err := g.delegate.FindByAddress(ctx, address)
	g.record(ctx, err)
	return identityID, err
}

func (g *ResilientGateway) DeleteIdentity(ctx context.Context, identityID id.IdentityID) error {
	err := g.delegate.DeleteIdentity(ctx, identityID)
	g.record(ctx, err)
	return err
}

func (g *ResilientGateway) SendVerificationLink(ctx context.Context, identityID id.IdentityID, redirectTarget string) error {
	if g.breaker.IsOpen() {
		g.logger.WarnContext(ctx, "circuit open, dropping verification link",
			"identity_id", identityID,
			"circuit", g.breaker.Name(),
		)
		return dErrors.New(dErrors.CodeUnavailable, "identity provider unavailable")
	}
	err := g.delegate.SendVerificationLink(ctx, identityID, redirectTarget)
	g.record(ctx, err)
	return err
}

// record feeds the breaker. Domain outcomes are successes: a duplicate
// address or a missing identity means the provider answered.
func (g *ResilientGateway) record(ctx context.Context, err error) {
	if err == nil || errors.Is(err, sentinel.ErrAlreadyUsed) || errors.Is(err, sentinel.ErrNotFound) {
		_, change := g.breaker.RecordSuccess()
		if change.Closed {
			g.logger.InfoContext(ctx, "circuit breaker closed", "circuit", g.breaker.Name())
		}
		return
	}
	_, change := g.breaker.RecordFailure()
	if change.Opened {
		g.logger.ErrorContext(ctx, "circuit breaker opened",
			"circuit", g.breaker.Name(),
			"error", err,
		)
	}
}

var _ Gateway = (*ResilientGateway)(nil)
