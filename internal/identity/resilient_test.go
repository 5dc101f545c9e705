package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
	"homeroom/pkg/platform/circuit"
)

type stubGateway struct {
	err   error
	sends int
}

func (s *stubGateway) CreateIdentity(context.Context, NewIdentity) (id.IdentityID, error) {
	return id.IdentityID(uuid.New()), s.err
}

func (s *stubGateway) FindByAddress(context.Context, string) (id.IdentityID, error) {
	return id.IdentityID(uuid.New()), s.err
}

func (s *stubGateway) DeleteIdentity(context.Context, id.IdentityID) error {
	return s.err
}

func (s *stubGateway) SendVerificationLink(context.Context, id.IdentityID, string) error {
	s.sends++
	return s.err
}

func newResilient(stub *stubGateway) *ResilientGateway {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	breaker := circuit.New("identity_gateway",
		circuit.WithFailureThreshold(2),
		circuit.WithSuccessThreshold(1),
	)
	return NewResilientGateway(stub, logger, WithBreaker(breaker))
}

func TestResilientGatewayDropsLinksWhenOpen(t *testing.T) {
	stub := &stubGateway{err: errors.New("provider down")}
	gw := newResilient(stub)

	for range 2 {
		_, err := gw.CreateIdentity(context.Background(), NewIdentity{Address: "a@oak.edu", Secret: "s"})
		require.Error(t, err)
	}

	err := gw.SendVerificationLink(context.Background(), id.IdentityID(uuid.New()), "https://app.example/welcome")
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	assert.Zero(t, stub.sends, "open circuit must not reach the delegate")
}

func TestResilientGatewayTreatsDomainOutcomesAsHealthy(t *testing.T) {
	stub := &stubGateway{err: sentinel.ErrAlreadyUsed}
	gw := newResilient(stub)

	for range 5 {
		_, err := gw.CreateIdentity(context.Background(), NewIdentity{Address: "a@oak.edu", Secret: "s"})
		require.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
	}

	stub.err = nil
	require.NoError(t, gw.SendVerificationLink(context.Background(), id.IdentityID(uuid.New()), "https://app.example/welcome"))
	assert.Equal(t, 1, stub.sends)
}

func TestResilientGatewayRecoversAfterSuccess(t *testing.T) {
	stub := &stubGateway{err: errors.New("provider down")}
	gw := newResilient(stub)

	for range 2 {
		_, _ = gw.FindByAddress(context.Background(), "a@oak.edu")
	}

	// Provisioning calls still reach the delegate while open; a success
	// closes the circuit and lets links flow again.
	stub.err = nil
	_, err := gw.FindByAddress(context.Background(), "a@oak.edu")
	require.NoError(t, err)

	require.NoError(t, gw.SendVerificationLink(context.Background(), id.IdentityID(uuid.New()), "https://app.example/welcome"))
	assert.Equal(t, 1, stub.sends)
}

func TestResilientGatewayPassesThroughDelegateErrors(t *testing.T) {
	stub := &stubGateway{err: sentinel.ErrNotFound}
	gw := newResilient(stub)

	_, err := gw.FindByAddress(context.Background(), "nobody@oak.edu")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}
