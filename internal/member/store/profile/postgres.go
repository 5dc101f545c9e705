package profile

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

// PostgresStore persists profiles in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed profile store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts the profile. The unique (identity_id, school_id) index is
// the authoritative guard against an identity joining a school twice.
func (s *PostgresStore) Create(ctx context.Context, profile *models.ProfileRecord) error {
	if profile == nil {
		return fmt.Errorf("profile is required")
	}
	query := `
		INSERT INTO profiles (id, identity_id, school_id, role, display_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(profile.ID),
		uuid.UUID(profile.IdentityID),
		uuid.UUID(profile.SchoolID),
		string(profile.Role),
		profile.DisplayName,
		profile.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("identity already has a profile in this school: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, profileID id.ProfileID) (*models.ProfileRecord, error) {
	query := `
		SELECT id, identity_id, school_id, role, display_name, created_at
		FROM profiles
		WHERE id = $1
	`
	profile, err := scanProfile(tx.QuerierFor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(profileID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find profile by id: %w", err)
	}
	return profile, nil
}

func (s *PostgresStore) FindByIdentityAndSchool(ctx context.Context, identityID id.IdentityID, schoolID id.SchoolID) (*models.ProfileRecord, error) {
	query := `
		SELECT id, identity_id, school_id, role, display_name, created_at
		FROM profiles
		WHERE identity_id = $1 AND school_id = $2
	`
	profile, err := scanProfile(tx.QuerierFor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(identityID), uuid.UUID(schoolID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find profile by identity and school: %w", err)
	}
	return profile, nil
}

func (s *PostgresStore) Delete(ctx context.Context, profileID id.ProfileID) error {
	res, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, uuid.UUID(profileID))
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete profile rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CountBySchoolAndRole(ctx context.Context, schoolID id.SchoolID, role id.Role) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM profiles WHERE school_id = $1 AND role = $2`
	if err := tx.QuerierFor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(schoolID), string(role)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count profiles by school and role: %w", err)
	}
	return count, nil
}

type profileRow interface {
	Scan(dest ...any) error
}

func scanProfile(row profileRow) (*models.ProfileRecord, error) {
	var profile models.ProfileRecord
	var profileID, identityID, schoolID uuid.UUID
	var role string
	if err := row.Scan(&profileID, &identityID, &schoolID, &role, &profile.DisplayName, &profile.CreatedAt); err != nil {
		return nil, err
	}
	profile.ID = id.ProfileID(profileID)
	profile.IdentityID = id.IdentityID(identityID)
	profile.SchoolID = id.SchoolID(schoolID)
	profile.Role = id.Role(role)
	return &profile, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
