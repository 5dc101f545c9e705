package link

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeroom/internal/invitation/models"
	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
)

func newInvite(t *testing.T, now time.Time) *models.InvitationCode {
	t.Helper()
	email := "kim@oak.edu"
	inv, err := models.NewInvitation(
		id.InviteID(uuid.New()),
		"WXYZ6789",
		id.SchoolID(uuid.New()),
		id.IdentityID(uuid.New()),
		id.RoleTeacher,
		&email,
		now,
	)
	require.NoError(t, err)
	return inv
}

func TestSignAndParse(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	signer := NewSigner([]byte("test-key"), "https://homeroom.test/invitations/accept")
	inv := newInvite(t, now)

	token, err := signer.Sign(inv)
	require.NoError(t, err)

	code, err := signer.Parse(token, now)
	require.NoError(t, err)
	assert.Equal(t, "WXYZ6789", code)
}

func TestParse_ExpiredToken(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	signer := NewSigner([]byte("test-key"), "https://homeroom.test/invitations/accept")
	inv := newInvite(t, now)

	token, err := signer.Sign(inv)
	require.NoError(t, err)

	_, err = signer.Parse(token, inv.ExpiresAt.Add(time.Second))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidOrExpiredCode))
}

func TestParse_WrongKey(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	inv := newInvite(t, now)

	token, err := NewSigner([]byte("test-key"), "https://homeroom.test").Sign(inv)
	require.NoError(t, err)

	_, err = NewSigner([]byte("other-key"), "https://homeroom.test").Parse(token, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidOrExpiredCode))
}

func TestParse_Garbage(t *testing.T) {
	signer := NewSigner([]byte("test-key"), "https://homeroom.test")
	_, err := signer.Parse("not-a-token", time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidOrExpiredCode))
}

func TestBuildURL(t *testing.T) {
	signer := NewSigner([]byte("test-key"), "https://homeroom.test/invitations/accept")
	url := signer.BuildURL("abc.def.ghi")
	assert.True(t, strings.HasPrefix(url, "https://homeroom.test/invitations/accept?token="))
	assert.Contains(t, url, "abc.def.ghi")
}
