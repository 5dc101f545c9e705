package code

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"homeroom/internal/joincode/models"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
	"homeroom/pkg/platform/tx"

	"github.com/google/uuid"
)

// PostgresStore persists access codes in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed access-code store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateIfAvailable atomically claims the code string. ON CONFLICT DO
// NOTHING instead of catching 23505: a unique-violation error would
// poison an enclosing transaction, and regeneration retries collisions
// inside one.
func (s *PostgresStore) CreateIfAvailable(ctx context.Context, code *models.AccessCode) error {
	if code == nil {
		return fmt.Errorf("code is required")
	}
	query := `
		INSERT INTO join_codes (code, school_id, owner_name, status, generated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO NOTHING
	`
	res, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, query,
		code.Code,
		schoolIDParam(code.SchoolID),
		code.OwnerName,
		string(code.Status),
		code.GeneratedAt,
		code.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create join code: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create join code rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("join code already claimed: %w", sentinel.ErrAlreadyUsed)
	}
	return nil
}

// FindByCode retrieves a code row.
func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*models.AccessCode, error) {
	query := `
		SELECT code, school_id, owner_name, status, generated_at, expires_at
		FROM join_codes
		WHERE code = $1
	`
	c, err := scanCode(tx.QuerierFor(ctx, s.db).QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find join code: %w", err)
	}
	return c, nil
}

// Update replaces a code row. Used for binding reservations and status flips.
func (s *PostgresStore) Update(ctx context.Context, code *models.AccessCode) error {
	if code == nil {
		return fmt.Errorf("code is required")
	}
	query := `
		UPDATE join_codes
		SET school_id = $2, owner_name = $3, status = $4, expires_at = $5
		WHERE code = $1
	`
	res, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, query,
		code.Code,
		schoolIDParam(code.SchoolID),
		code.OwnerName,
		string(code.Status),
		code.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("update join code: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update join code rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Delete removes a code row. Registration compensation releases unclaimed
// reservations this way.
func (s *PostgresStore) Delete(ctx context.Context, code string) error {
	res, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, `DELETE FROM join_codes WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("delete join code: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete join code rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ListBySchool returns all code rows bound to a school, newest first.
func (s *PostgresStore) ListBySchool(ctx context.Context, schoolID id.SchoolID) ([]*models.AccessCode, error) {
	query := `
		SELECT code, school_id, owner_name, status, generated_at, expires_at
		FROM join_codes
		WHERE school_id = $1
		ORDER BY generated_at DESC
	`
	rows, err := tx.QuerierFor(ctx, s.db).QueryContext(ctx, query, uuid.UUID(schoolID))
	if err != nil {
		return nil, fmt.Errorf("list join codes by school: %w", err)
	}
	defer rows.Close()

	var out []*models.AccessCode
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan join code: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate join codes: %w", err)
	}
	return out, nil
}

// ExpireStale flips active rows whose expiry passed before the cutoff to
// expired and returns how many rows changed.
func (s *PostgresStore) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		UPDATE join_codes
		SET status = $1
		WHERE status = $2 AND expires_at IS NOT NULL AND expires_at < $3
	`
	res, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, query,
		string(models.CodeStatusExpired),
		string(models.CodeStatusActive),
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("expire stale join codes: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire stale join codes rows: %w", err)
	}
	return int(rows), nil
}

type codeRow interface {
	Scan(dest ...any) error
}

func scanCode(row codeRow) (*models.AccessCode, error) {
	var c models.AccessCode
	var status string
	var schoolID *uuid.UUID
	var expiresAt sql.NullTime
	if err := row.Scan(&c.Code, &schoolID, &c.OwnerName, &status, &c.GeneratedAt, &expiresAt); err != nil {
		return nil, err
	}
	c.Status = models.CodeStatus(status)
	if schoolID != nil {
		sid := id.SchoolID(*schoolID)
		c.SchoolID = &sid
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		c.ExpiresAt = &t
	}
	return &c, nil
}

func schoolIDParam(schoolID *id.SchoolID) *uuid.UUID {
	if schoolID == nil {
		return nil
	}
	u := uuid.UUID(*schoolID)
	return &u
}
