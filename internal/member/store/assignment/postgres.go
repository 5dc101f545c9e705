package assignment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"homeroom/internal/member/models"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
	"homeroom/pkg/platform/tx"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists assignment records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed assignment store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateTeacher(ctx context.Context, rec *models.TeacherRecord) error {
	if rec == nil {
		return fmt.Errorf("teacher record is required")
	}
	query := `
		INSERT INTO teacher_records (profile_id, school_id, supervisor, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(rec.ProfileID),
		uuid.UUID(rec.SchoolID),
		rec.Supervisor,
		rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("profile already has an assignment: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create teacher record: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateStudent(ctx context.Context, rec *models.StudentRecord) error {
	if rec == nil {
		return fmt.Errorf("student record is required")
	}
	query := `
		INSERT INTO student_records (profile_id, school_id, status, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(rec.ProfileID),
		uuid.UUID(rec.SchoolID),
		string(rec.Status),
		rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("profile already has an assignment: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create student record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindTeacherByProfile(ctx context.Context, profileID id.ProfileID) (*models.TeacherRecord, error) {
	query := `
		SELECT profile_id, school_id, supervisor, created_at
		FROM teacher_records
		WHERE profile_id = $1
	`
	var rec models.TeacherRecord
	var pID, schoolID uuid.UUID
	err := tx.QuerierFor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(profileID)).
		Scan(&pID, &schoolID, &rec.Supervisor, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("teacher record not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find teacher record: %w", err)
	}
	rec.ProfileID = id.ProfileID(pID)
	rec.SchoolID = id.SchoolID(schoolID)
	return &rec, nil
}

func (s *PostgresStore) FindStudentByProfile(ctx context.Context, profileID id.ProfileID) (*models.StudentRecord, error) {
	query := `
		SELECT profile_id, school_id, status, created_at
		FROM student_records
		WHERE profile_id = $1
	`
	var rec models.StudentRecord
	var pID, schoolID uuid.UUID
	var status string
	err := tx.QuerierFor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(profileID)).
		Scan(&pID, &schoolID, &status, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("student record not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find student record: %w", err)
	}
	rec.ProfileID = id.ProfileID(pID)
	rec.SchoolID = id.SchoolID(schoolID)
	rec.Status = models.StudentStatus(status)
	return &rec, nil
}

// DeleteByProfile removes the profile's assignment record, whichever kind
// it is. Compensation calls this without knowing the role.
func (s *PostgresStore) DeleteByProfile(ctx context.Context, profileID id.ProfileID) error {
	q := tx.QuerierFor(ctx, s.db)

	res, err := q.ExecContext(ctx, `DELETE FROM teacher_records WHERE profile_id = $1`, uuid.UUID(profileID))
	if err != nil {
		return fmt.Errorf("delete teacher record: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete teacher record rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	res, err = q.ExecContext(ctx, `DELETE FROM student_records WHERE profile_id = $1`, uuid.UUID(profileID))
	if err != nil {
		return fmt.Errorf("delete student record: %w", err)
	}
	rows, err = res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student record rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("assignment not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
