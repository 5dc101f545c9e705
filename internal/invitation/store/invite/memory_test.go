package invite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeroom/internal/invitation/models"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
)

func newInvite(t *testing.T, code string, schoolID id.SchoolID) *models.InvitationCode {
	t.Helper()
	inv, err := models.NewInvitation(
		id.InviteID(uuid.New()),
		code,
		schoolID,
		id.IdentityID(uuid.New()),
		id.RoleStudent,
		nil,
		time.Now().UTC(),
	)
	require.NoError(t, err)
	return inv
}

func TestClaimIfAvailable(t *testing.T) {
	store := NewInMemory()
	schoolID := id.SchoolID(uuid.New())

	require.NoError(t, store.ClaimIfAvailable(context.Background(), newInvite(t, "WXYZ6789", schoolID)))

	err := store.ClaimIfAvailable(context.Background(), newInvite(t, "WXYZ6789", schoolID))
	require.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestFindByCode_ReturnsCopy(t *testing.T) {
	store := NewInMemory()
	inv := newInvite(t, "WXYZ6789", id.SchoolID(uuid.New()))
	require.NoError(t, store.ClaimIfAvailable(context.Background(), inv))

	found, err := store.FindByCode(context.Background(), "WXYZ6789")
	require.NoError(t, err)
	found.Status = models.InviteStatusExpired

	again, err := store.FindByCode(context.Background(), "WXYZ6789")
	require.NoError(t, err)
	assert.Equal(t, models.InviteStatusPending, again.Status,
		"mutating a returned row must not touch the store")
}

func TestFindByCode_NotFound(t *testing.T) {
	store := NewInMemory()
	_, err := store.FindByCode(context.Background(), "MISSING2")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMarkAccepted(t *testing.T) {
	store := NewInMemory()
	inv := newInvite(t, "WXYZ6789", id.SchoolID(uuid.New()))
	require.NoError(t, store.ClaimIfAvailable(context.Background(), inv))

	acceptor := id.IdentityID(uuid.New())
	now := time.Now().UTC()
	require.NoError(t, store.MarkAccepted(context.Background(), "WXYZ6789", acceptor, now))

	found, err := store.FindByCode(context.Background(), "WXYZ6789")
	require.NoError(t, err)
	assert.Equal(t, models.InviteStatusAccepted, found.Status)
	require.NotNil(t, found.AcceptedBy)
	assert.Equal(t, acceptor, *found.AcceptedBy)
}

func TestMarkAccepted_SecondAcceptorLoses(t *testing.T) {
	store := NewInMemory()
	inv := newInvite(t, "WXYZ6789", id.SchoolID(uuid.New()))
	require.NoError(t, store.ClaimIfAvailable(context.Background(), inv))

	now := time.Now().UTC()
	require.NoError(t, store.MarkAccepted(context.Background(), "WXYZ6789", id.IdentityID(uuid.New()), now))

	err := store.MarkAccepted(context.Background(), "WXYZ6789", id.IdentityID(uuid.New()), now)
	require.ErrorIs(t, err, sentinel.ErrVersionConflict)
}

func TestMarkAccepted_NotFound(t *testing.T) {
	store := NewInMemory()
	err := store.MarkAccepted(context.Background(), "MISSING2", id.IdentityID(uuid.New()), time.Now().UTC())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestReopen(t *testing.T) {
	store := NewInMemory()
	inv := newInvite(t, "WXYZ6789", id.SchoolID(uuid.New()))
	require.NoError(t, store.ClaimIfAvailable(context.Background(), inv))
	require.NoError(t, store.MarkAccepted(context.Background(), "WXYZ6789", id.IdentityID(uuid.New()), time.Now().UTC()))

	require.NoError(t, store.Reopen(context.Background(), "WXYZ6789"))

	found, err := store.FindByCode(context.Background(), "WXYZ6789")
	require.NoError(t, err)
	assert.Equal(t, models.InviteStatusPending, found.Status)
	assert.Nil(t, found.AcceptedBy)
	assert.Nil(t, found.AcceptedAt)
}

func TestReopen_RequiresAccepted(t *testing.T) {
	store := NewInMemory()
	inv := newInvite(t, "WXYZ6789", id.SchoolID(uuid.New()))
	require.NoError(t, store.ClaimIfAvailable(context.Background(), inv))

	err := store.Reopen(context.Background(), "WXYZ6789")
	require.ErrorIs(t, err, sentinel.ErrVersionConflict)
}

func TestCountPendingBySchool(t *testing.T) {
	store := NewInMemory()
	schoolID := id.SchoolID(uuid.New())
	require.NoError(t, store.ClaimIfAvailable(context.Background(), newInvite(t, "AAAA2222", schoolID)))
	require.NoError(t, store.ClaimIfAvailable(context.Background(), newInvite(t, "BBBB3333", schoolID)))
	require.NoError(t, store.ClaimIfAvailable(context.Background(), newInvite(t, "CCCC4444", id.SchoolID(uuid.New()))))
	require.NoError(t, store.MarkAccepted(context.Background(), "BBBB3333", id.IdentityID(uuid.New()), time.Now().UTC()))

	count, err := store.CountPendingBySchool(context.Background(), schoolID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestExpireStale(t *testing.T) {
	store := NewInMemory()
	schoolID := id.SchoolID(uuid.New())

	stale := newInvite(t, "AAAA2222", schoolID)
	stale.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.ClaimIfAvailable(context.Background(), stale))

	fresh := newInvite(t, "BBBB3333", schoolID)
	require.NoError(t, store.ClaimIfAvailable(context.Background(), fresh))

	n, err := store.ExpireStale(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	found, err := store.FindByCode(context.Background(), "AAAA2222")
	require.NoError(t, err)
	assert.Equal(t, models.InviteStatusExpired, found.Status)

	kept, err := store.FindByCode(context.Background(), "BBBB3333")
	require.NoError(t, err)
	assert.Equal(t, models.InviteStatusPending, kept.Status)
}
