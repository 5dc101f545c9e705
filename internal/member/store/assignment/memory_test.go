package assignment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeroom/internal/member/models"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
)

func newTeacher(t *testing.T, supervisor bool) *models.TeacherRecord {
	t.Helper()
	rec, err := models.NewTeacherRecord(id.ProfileID(uuid.New()), id.SchoolID(uuid.New()), supervisor, time.Now().UTC())
	require.NoError(t, err)
	return rec
}

func newStudent(t *testing.T) *models.StudentRecord {
	t.Helper()
	rec, err := models.NewStudentRecord(id.ProfileID(uuid.New()), id.SchoolID(uuid.New()), time.Now().UTC())
	require.NoError(t, err)
	return rec
}

func TestCreateTeacher_Success(t *testing.T) {
	store := NewInMemory()
	rec := newTeacher(t, true)

	require.NoError(t, store.CreateTeacher(context.Background(), rec))

	found, err := store.FindTeacherByProfile(context.Background(), rec.ProfileID)
	require.NoError(t, err)
	assert.True(t, found.Supervisor)
}

func TestCreateStudent_Success(t *testing.T) {
	store := NewInMemory()
	rec := newStudent(t)

	require.NoError(t, store.CreateStudent(context.Background(), rec))

	found, err := store.FindStudentByProfile(context.Background(), rec.ProfileID)
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusEnrolled, found.Status)
}

func TestCreate_RejectsSecondAssignment(t *testing.T) {
	store := NewInMemory()
	teacher := newTeacher(t, false)
	require.NoError(t, store.CreateTeacher(context.Background(), teacher))

	again, err := models.NewTeacherRecord(teacher.ProfileID, teacher.SchoolID, true, time.Now().UTC())
	require.NoError(t, err)
	require.ErrorIs(t, store.CreateTeacher(context.Background(), again), sentinel.ErrAlreadyUsed)

	// A student record for the same profile is just as much a duplicate.
	student, err := models.NewStudentRecord(teacher.ProfileID, teacher.SchoolID, time.Now().UTC())
	require.NoError(t, err)
	require.ErrorIs(t, store.CreateStudent(context.Background(), student), sentinel.ErrAlreadyUsed)
}

func TestFind_NotFound(t *testing.T) {
	store := NewInMemory()

	_, err := store.FindTeacherByProfile(context.Background(), id.ProfileID(uuid.New()))
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = store.FindStudentByProfile(context.Background(), id.ProfileID(uuid.New()))
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestDeleteByProfile_EitherKind(t *testing.T) {
	store := NewInMemory()
	teacher := newTeacher(t, true)
	student := newStudent(t)
	require.NoError(t, store.CreateTeacher(context.Background(), teacher))
	require.NoError(t, store.CreateStudent(context.Background(), student))

	require.NoError(t, store.DeleteByProfile(context.Background(), teacher.ProfileID))
	require.NoError(t, store.DeleteByProfile(context.Background(), student.ProfileID))

	_, err := store.FindTeacherByProfile(context.Background(), teacher.ProfileID)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = store.FindStudentByProfile(context.Background(), student.ProfileID)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestDeleteByProfile_NotFound(t *testing.T) {
	store := NewInMemory()

	err := store.DeleteByProfile(context.Background(), id.ProfileID(uuid.New()))
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}
