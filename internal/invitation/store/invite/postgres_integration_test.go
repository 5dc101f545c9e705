//go:build integration

package invite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"homeroom/internal/invitation/models"
	invitestore "homeroom/internal/invitation/store/invite"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
	"homeroom/pkg/testutil"
	"homeroom/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *invitestore.PostgresStore
	schoolID id.SchoolID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = invitestore.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()

	err := s.postgres.TruncateTables(ctx, "invitations", "schools")
	s.Require().NoError(err)

	s.schoolID = s.postgres.CreateTestSchool(ctx, s.T())
}

func (s *PostgresStoreSuite) claim(code string) *models.InvitationCode {
	invite := testutil.NewInvitationBuilder().
		WithCode(code).
		WithSchool(s.schoolID).
		Build()
	s.Require().NoError(s.store.ClaimIfAvailable(context.Background(), invite))
	return invite
}

func (s *PostgresStoreSuite) TestClaimIsFirstWriterWins() {
	ctx := context.Background()
	s.claim("CLAIMCD2")

	dup := testutil.NewInvitationBuilder().
		WithCode("CLAIMCD2").
		WithSchool(s.schoolID).
		Build()
	err := s.store.ClaimIfAvailable(ctx, dup)
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
}

// TestConcurrentAccept verifies the conditional flip admits exactly one
// acceptor when many race on the same code.
func (s *PostgresStoreSuite) TestConcurrentAccept() {
	ctx := context.Background()
	s.claim("RACECDE2")

	result := testutil.RunConcurrent(20, func(_ int) error {
		return s.store.MarkAccepted(ctx, "RACECDE2", id.IdentityID(uuid.New()), time.Now().UTC())
	})

	s.Equal(int32(1), result.Successes)
	s.Equal(int32(19), result.Conflicts)

	row, err := s.store.FindByCode(ctx, "RACECDE2")
	s.Require().NoError(err)
	s.Equal(models.InviteStatusAccepted, row.Status)
	s.Require().NotNil(row.AcceptedBy)
}

func (s *PostgresStoreSuite) TestReopenRevertsAcceptance() {
	ctx := context.Background()
	s.claim("REOPNCD2")

	err := s.store.MarkAccepted(ctx, "REOPNCD2", id.IdentityID(uuid.New()), time.Now().UTC())
	s.Require().NoError(err)

	s.Require().NoError(s.store.Reopen(ctx, "REOPNCD2"))

	row, err := s.store.FindByCode(ctx, "REOPNCD2")
	s.Require().NoError(err)
	s.Equal(models.InviteStatusPending, row.Status)
	s.Nil(row.AcceptedBy)
}

func (s *PostgresStoreSuite) TestExpireStale() {
	ctx := context.Background()

	stale := testutil.NewInvitationBuilder().
		WithCode("STALECD2").
		WithSchool(s.schoolID).
		ExpiresAt(time.Now().UTC().Add(-time.Minute)).
		Build()
	s.Require().NoError(s.store.ClaimIfAvailable(ctx, stale))
	s.claim("FRESHCD2")

	n, err := s.store.ExpireStale(ctx, time.Now().UTC())
	s.Require().NoError(err)
	s.Equal(1, n)

	count, err := s.store.CountPendingBySchool(ctx, s.schoolID)
	s.Require().NoError(err)
	s.Equal(1, count)
}
