package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"homeroom/internal/school/models"
	schoolstore "homeroom/internal/school/store/school"
	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
	auditmemory "homeroom/pkg/platform/audit/store/memory"
	"homeroom/pkg/platform/audit/publisher"
	"homeroom/pkg/requestcontext"
)

type stubMemberCounter struct {
	teachers int
	students int
}

func (c *stubMemberCounter) CountBySchoolAndRole(_ context.Context, _ id.SchoolID, role id.Role) (int, error) {
	if role == id.RoleTeacher {
		return c.teachers, nil
	}
	return c.students, nil
}

type stubInviteCounter struct {
	pending int
}

func (c *stubInviteCounter) CountPendingBySchool(_ context.Context, _ id.SchoolID) (int, error) {
	return c.pending, nil
}

func seedSchool(t *testing.T, store *schoolstore.InMemory, name string) *models.School {
	t.Helper()
	school, err := models.NewSchool(id.SchoolID(uuid.New()), name, "ABCD2345", time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error building school: %v", err)
	}
	if err := store.CreateIfNameAvailable(context.Background(), school); err != nil {
		t.Fatalf("unexpected error seeding school: %v", err)
	}
	return school
}

func TestGetSchoolValidation(t *testing.T) {
	svc := NewSchoolService(schoolstore.NewInMemory(), nil, nil)

	if _, err := svc.GetSchool(context.Background(), id.SchoolID{}); err == nil {
		t.Fatalf("expected error for nil school ID")
	}

	if _, err := svc.GetSchool(context.Background(), id.SchoolID(uuid.New())); !dErrors.HasCode(err, dErrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetSchoolByName(t *testing.T) {
	store := schoolstore.NewInMemory()
	svc := NewSchoolService(store, nil, nil)
	seeded := seedSchool(t, store, "Oak Elementary")

	if _, err := svc.GetSchoolByName(context.Background(), "   "); !dErrors.HasCode(err, dErrors.CodeBadRequest) {
		t.Fatalf("expected bad request for blank name, got %v", err)
	}

	found, err := svc.GetSchoolByName(context.Background(), "oak elementary")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.ID != seeded.ID {
		t.Fatalf("expected school %s, got %s", seeded.ID, found.ID)
	}
}

func TestGetSchoolDetails(t *testing.T) {
	store := schoolstore.NewInMemory()
	members := &stubMemberCounter{teachers: 2, students: 30}
	invites := &stubInviteCounter{pending: 3}
	svc := NewSchoolService(store, members, invites)
	seeded := seedSchool(t, store, "Oak Elementary")

	details, err := svc.GetSchoolDetails(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if details.TeacherCount != 2 || details.StudentCount != 30 {
		t.Fatalf("unexpected member counts: %d teachers, %d students", details.TeacherCount, details.StudentCount)
	}
	if details.PendingInvites != 3 {
		t.Fatalf("expected 3 pending invites, got %d", details.PendingInvites)
	}
	if details.Name != seeded.Name {
		t.Fatalf("expected name %s, got %s", seeded.Name, details.Name)
	}
}

func TestGetSchoolDetailsWithoutCounters(t *testing.T) {
	store := schoolstore.NewInMemory()
	svc := NewSchoolService(store, nil, nil)
	seeded := seedSchool(t, store, "Oak Elementary")

	details, err := svc.GetSchoolDetails(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if details.TeacherCount != 0 || details.StudentCount != 0 || details.PendingInvites != 0 {
		t.Fatalf("expected zero counts without counters")
	}
}

func TestDeactivateAndReactivateSchool(t *testing.T) {
	store := schoolstore.NewInMemory()
	auditStore := auditmemory.NewInMemoryStore()
	pub := publisher.NewPublisher(auditStore)
	svc := NewSchoolService(store, nil, nil, WithAuditPublisher(pub))
	seeded := seedSchool(t, store, "Oak Elementary")

	deactivated, err := svc.DeactivateSchool(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("unexpected error deactivating: %v", err)
	}
	if deactivated.Status != models.SchoolStatusInactive {
		t.Fatalf("expected inactive status, got %s", deactivated.Status)
	}

	if _, err := svc.DeactivateSchool(context.Background(), seeded.ID); !dErrors.HasCode(err, dErrors.CodeConflict) {
		t.Fatalf("expected conflict for double deactivation, got %v", err)
	}

	reactivated, err := svc.ReactivateSchool(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("unexpected error reactivating: %v", err)
	}
	if reactivated.Status != models.SchoolStatusActive {
		t.Fatalf("expected active status, got %s", reactivated.Status)
	}

	events, err := auditStore.ListAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 audit events, got %d", len(events))
	}
	if events[0].Action != "school_deactivated" || events[1].Action != "school_reactivated" {
		t.Fatalf("unexpected audit actions: %s, %s", events[0].Action, events[1].Action)
	}
	if events[0].SchoolID != seeded.ID.String() {
		t.Fatalf("expected audit event for school %s, got %s", seeded.ID, events[0].SchoolID)
	}
}

func TestDeactivateUsesRequestTime(t *testing.T) {
	store := schoolstore.NewInMemory()
	svc := NewSchoolService(store, nil, nil)
	seeded := seedSchool(t, store, "Oak Elementary")

	frozen := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), frozen)

	deactivated, err := svc.DeactivateSchool(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deactivated.UpdatedAt.Equal(frozen) {
		t.Fatalf("expected UpdatedAt %s, got %s", frozen, deactivated.UpdatedAt)
	}
}
