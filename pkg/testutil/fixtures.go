package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	invmodels "homeroom/internal/invitation/models"
	membermodels "homeroom/internal/member/models"
	schoolmodels "homeroom/internal/school/models"
	id "homeroom/pkg/domain"
)

// TestIDs provides convenient pre-generated IDs for tests.
// Use these for deterministic test data.
var TestIDs = struct {
	SchoolID1   id.SchoolID
	SchoolID2   id.SchoolID
	IdentityID1 id.IdentityID
	IdentityID2 id.IdentityID
	ProfileID1  id.ProfileID
	ProfileID2  id.ProfileID
	InviteID1   id.InviteID
	InviteID2   id.InviteID
}{
	SchoolID1:   id.SchoolID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	SchoolID2:   id.SchoolID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	IdentityID1: id.IdentityID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000001")),
	IdentityID2: id.IdentityID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000002")),
	ProfileID1:  id.ProfileID(uuid.MustParse("cccc0000-0000-0000-0000-000000000001")),
	ProfileID2:  id.ProfileID(uuid.MustParse("cccc0000-0000-0000-0000-000000000002")),
	InviteID1:   id.InviteID(uuid.MustParse("eeee0000-0000-0000-0000-000000000001")),
	InviteID2:   id.InviteID(uuid.MustParse("eeee0000-0000-0000-0000-000000000002")),
}

// SchoolBuilder provides a fluent interface for building test schools.
type SchoolBuilder struct {
	school *schoolmodels.School
}

// NewSchoolBuilder creates a new SchoolBuilder with sensible defaults.
func NewSchoolBuilder() *SchoolBuilder {
	now := time.Now().UTC()
	return &SchoolBuilder{
		school: &schoolmodels.School{
			ID:         id.SchoolID(uuid.New()),
			Name:       "Test School",
			ActiveCode: "TESTCD22",
			Status:     schoolmodels.SchoolStatusActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}
}

func (b *SchoolBuilder) WithID(schoolID id.SchoolID) *SchoolBuilder {
	b.school.ID = schoolID
	return b
}

func (b *SchoolBuilder) WithName(name string) *SchoolBuilder {
	b.school.Name = name
	return b
}

func (b *SchoolBuilder) WithActiveCode(code string) *SchoolBuilder {
	b.school.ActiveCode = code
	return b
}

func (b *SchoolBuilder) Inactive() *SchoolBuilder {
	b.school.Status = schoolmodels.SchoolStatusInactive
	return b
}

func (b *SchoolBuilder) Build() *schoolmodels.School {
	school := *b.school
	return &school
}

// ProfileBuilder provides a fluent interface for building test profiles.
type ProfileBuilder struct {
	profile *membermodels.ProfileRecord
}

// NewProfileBuilder creates a new ProfileBuilder with sensible defaults.
func NewProfileBuilder() *ProfileBuilder {
	return &ProfileBuilder{
		profile: &membermodels.ProfileRecord{
			ID:          id.ProfileID(uuid.New()),
			IdentityID:  TestIDs.IdentityID1,
			SchoolID:    TestIDs.SchoolID1,
			Role:        id.RoleStudent,
			DisplayName: "Test Member",
			CreatedAt:   time.Now().UTC(),
		},
	}
}

func (b *ProfileBuilder) WithID(profileID id.ProfileID) *ProfileBuilder {
	b.profile.ID = profileID
	return b
}

func (b *ProfileBuilder) WithIdentity(identityID id.IdentityID) *ProfileBuilder {
	b.profile.IdentityID = identityID
	return b
}

func (b *ProfileBuilder) WithSchool(schoolID id.SchoolID) *ProfileBuilder {
	b.profile.SchoolID = schoolID
	return b
}

func (b *ProfileBuilder) WithRole(role id.Role) *ProfileBuilder {
	b.profile.Role = role
	return b
}

func (b *ProfileBuilder) WithDisplayName(name string) *ProfileBuilder {
	b.profile.DisplayName = name
	return b
}

func (b *ProfileBuilder) Build() *membermodels.ProfileRecord {
	profile := *b.profile
	return &profile
}

// InvitationBuilder provides a fluent interface for building test invitations.
type InvitationBuilder struct {
	invite *invmodels.InvitationCode
}

// NewInvitationBuilder creates a new InvitationBuilder with sensible defaults:
// a pending open invitation for a student, expiring in seven days.
func NewInvitationBuilder() *InvitationBuilder {
	now := time.Now().UTC()
	return &InvitationBuilder{
		invite: &invmodels.InvitationCode{
			ID:        id.InviteID(uuid.New()),
			Code:      "INVTCD22",
			SchoolID:  TestIDs.SchoolID1,
			IssuedBy:  TestIDs.IdentityID1,
			Role:      id.RoleStudent,
			Status:    invmodels.InviteStatusPending,
			IssuedAt:  now,
			ExpiresAt: now.Add(invmodels.InviteTTL),
		},
	}
}

func (b *InvitationBuilder) WithCode(code string) *InvitationBuilder {
	b.invite.Code = code
	return b
}

func (b *InvitationBuilder) WithSchool(schoolID id.SchoolID) *InvitationBuilder {
	b.invite.SchoolID = schoolID
	return b
}

func (b *InvitationBuilder) WithIssuer(identityID id.IdentityID) *InvitationBuilder {
	b.invite.IssuedBy = identityID
	return b
}

func (b *InvitationBuilder) WithRole(role id.Role) *InvitationBuilder {
	b.invite.Role = role
	return b
}

func (b *InvitationBuilder) WithEmail(email string) *InvitationBuilder {
	b.invite.Email = &email
	return b
}

func (b *InvitationBuilder) ExpiresAt(t time.Time) *InvitationBuilder {
	b.invite.ExpiresAt = t
	return b
}

func (b *InvitationBuilder) Build() *invmodels.InvitationCode {
	invite := *b.invite
	return &invite
}

// UniqueEmail returns a unique address for tests that hit unique constraints.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@example.com", prefix, uuid.NewString()[:8])
}
