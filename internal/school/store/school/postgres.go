package school

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"homeroom/internal/school/models"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
	"homeroom/pkg/platform/tx"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists schools in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed school store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateIfNameAvailable atomically creates the school if the name is not already taken (case-insensitive).
func (s *PostgresStore) CreateIfNameAvailable(ctx context.Context, school *models.School) error {
	if school == nil {
		return fmt.Errorf("school is required")
	}
	query := `
		INSERT INTO schools (id, name, active_code, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(school.ID),
		school.Name,
		school.ActiveCode,
		string(school.Status),
		school.CreatedAt,
		school.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("school name must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create school: %w", err)
	}
	return nil
}

// FindByID retrieves a school by its UUID.
func (s *PostgresStore) FindByID(ctx context.Context, schoolID id.SchoolID) (*models.School, error) {
	query := `
		SELECT id, name, active_code, status, created_at, updated_at
		FROM schools
		WHERE id = $1
	`
	school, err := scanSchool(tx.QuerierFor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(schoolID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find school by id: %w", err)
	}
	return school, nil
}

// FindByName retrieves a school by name (case-insensitive).
func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.School, error) {
	query := `
		SELECT id, name, active_code, status, created_at, updated_at
		FROM schools
		WHERE lower(name) = lower($1)
	`
	school, err := scanSchool(tx.QuerierFor(ctx, s.db).QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find school by name: %w", err)
	}
	return school, nil
}

// SwapActiveCode replaces the school's join code iff the row has not moved
// since the caller read it. The updated_at predicate is the optimistic lock.
func (s *PostgresStore) SwapActiveCode(ctx context.Context, schoolID id.SchoolID, code string, expectedUpdatedAt, now time.Time) error {
	query := `
		UPDATE schools
		SET active_code = $2, updated_at = $3
		WHERE id = $1 AND updated_at = $4
	`
	res, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(schoolID),
		code,
		now,
		expectedUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("swap active code: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("swap active code rows: %w", err)
	}
	if rows == 0 {
		// Either the row is gone or someone else swapped first; disambiguate.
		if _, ferr := s.FindByID(ctx, schoolID); errors.Is(ferr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("school row changed underneath regeneration: %w", sentinel.ErrVersionConflict)
	}
	return nil
}

// Update updates an existing school. Used for status transitions.
func (s *PostgresStore) Update(ctx context.Context, school *models.School) error {
	if school == nil {
		return fmt.Errorf("school is required")
	}
	query := `
		UPDATE schools
		SET name = $2, active_code = $3, status = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(school.ID),
		school.Name,
		school.ActiveCode,
		string(school.Status),
		school.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update school: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update school rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Delete removes a school row. Registration compensation uses this.
func (s *PostgresStore) Delete(ctx context.Context, schoolID id.SchoolID) error {
	res, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, `DELETE FROM schools WHERE id = $1`, uuid.UUID(schoolID))
	if err != nil {
		return fmt.Errorf("delete school: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete school rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Count returns the total number of schools.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := tx.QuerierFor(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM schools`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count schools: %w", err)
	}
	return count, nil
}

type schoolRow interface {
	Scan(dest ...any) error
}

func scanSchool(row schoolRow) (*models.School, error) {
	var school models.School
	var status string
	var schoolID uuid.UUID
	if err := row.Scan(&schoolID, &school.Name, &school.ActiveCode, &status, &school.CreatedAt, &school.UpdatedAt); err != nil {
		return nil, err
	}
	school.ID = id.SchoolID(schoolID)
	school.Status = models.SchoolStatus(status)
	return &school, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
