package invite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"homeroom/internal/invitation/models"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
	"homeroom/pkg/platform/tx"

	"github.com/google/uuid"
)

// PostgresStore persists invitations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed invitation store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ClaimIfAvailable atomically claims the code string. ON CONFLICT DO
// NOTHING so a collision never poisons an enclosing transaction; the
// caller redraws on ErrAlreadyUsed.
func (s *PostgresStore) ClaimIfAvailable(ctx context.Context, invite *models.InvitationCode) error {
	if invite == nil {
		return fmt.Errorf("invitation is required")
	}
	query := `
		INSERT INTO invitations (id, code, school_id, issued_by, role, email, status, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code) DO NOTHING
	`
	res, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(invite.ID),
		invite.Code,
		uuid.UUID(invite.SchoolID),
		uuid.UUID(invite.IssuedBy),
		invite.Role.String(),
		invite.Email,
		string(invite.Status),
		invite.IssuedAt,
		invite.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create invitation: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create invitation rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("invitation code already claimed: %w", sentinel.ErrAlreadyUsed)
	}
	return nil
}

// FindByCode retrieves an invitation row.
func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*models.InvitationCode, error) {
	query := `
		SELECT id, code, school_id, issued_by, role, email, status, issued_at, expires_at, accepted_by, accepted_at
		FROM invitations
		WHERE code = $1
	`
	inv, err := scanInvite(tx.QuerierFor(ctx, s.db).QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("invitation not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find invitation: %w", err)
	}
	return inv, nil
}

// MarkAccepted flips pending -> accepted with the status check inside the
// same statement. Zero rows with the row present means another acceptor
// won the race.
func (s *PostgresStore) MarkAccepted(ctx context.Context, code string, identityID id.IdentityID, now time.Time) error {
	query := `
		UPDATE invitations
		SET status = $2, accepted_by = $3, accepted_at = $4
		WHERE code = $1 AND status = $5
	`
	res, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, query,
		code,
		string(models.InviteStatusAccepted),
		uuid.UUID(identityID),
		now,
		string(models.InviteStatusPending),
	)
	if err != nil {
		return fmt.Errorf("accept invitation: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("accept invitation rows: %w", err)
	}
	if rows == 0 {
		return s.transitionConflict(ctx, code)
	}
	return nil
}

// Reopen reverts accepted -> pending. Acceptance compensation calls this
// when the member rows could not be created after the flip.
func (s *PostgresStore) Reopen(ctx context.Context, code string) error {
	query := `
		UPDATE invitations
		SET status = $2, accepted_by = NULL, accepted_at = NULL
		WHERE code = $1 AND status = $3
	`
	res, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, query,
		code,
		string(models.InviteStatusPending),
		string(models.InviteStatusAccepted),
	)
	if err != nil {
		return fmt.Errorf("reopen invitation: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reopen invitation rows: %w", err)
	}
	if rows == 0 {
		return s.transitionConflict(ctx, code)
	}
	return nil
}

// transitionConflict distinguishes a missing row from a lost conditional
// write after a zero-row update.
func (s *PostgresStore) transitionConflict(ctx context.Context, code string) error {
	var status string
	err := tx.QuerierFor(ctx, s.db).QueryRowContext(ctx,
		`SELECT status FROM invitations WHERE code = $1`, code,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("invitation not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("inspect invitation: %w", err)
	}
	return fmt.Errorf("invitation is %s: %w", status, sentinel.ErrVersionConflict)
}

// CountPendingBySchool reports how many invitations are still open for a
// school.
func (s *PostgresStore) CountPendingBySchool(ctx context.Context, schoolID id.SchoolID) (int, error) {
	query := `SELECT COUNT(*) FROM invitations WHERE school_id = $1 AND status = $2`
	var count int
	err := tx.QuerierFor(ctx, s.db).QueryRowContext(ctx, query,
		uuid.UUID(schoolID),
		string(models.InviteStatusPending),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending invitations: %w", err)
	}
	return count, nil
}

// ExpireStale flips pending rows whose expiry passed before the cutoff to
// expired and returns how many rows changed.
func (s *PostgresStore) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		UPDATE invitations
		SET status = $1
		WHERE status = $2 AND expires_at < $3
	`
	res, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, query,
		string(models.InviteStatusExpired),
		string(models.InviteStatusPending),
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("expire stale invitations: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire stale invitations rows: %w", err)
	}
	return int(rows), nil
}

func scanInvite(row *sql.Row) (*models.InvitationCode, error) {
	var inv models.InvitationCode
	var inviteID, schoolID, issuedBy uuid.UUID
	var role, status string
	var email sql.NullString
	var acceptedBy *uuid.UUID
	var acceptedAt sql.NullTime
	if err := row.Scan(&inviteID, &inv.Code, &schoolID, &issuedBy, &role, &email, &status, &inv.IssuedAt, &inv.ExpiresAt, &acceptedBy, &acceptedAt); err != nil {
		return nil, err
	}
	inv.ID = id.InviteID(inviteID)
	inv.SchoolID = id.SchoolID(schoolID)
	inv.IssuedBy = id.IdentityID(issuedBy)
	inv.Role = id.Role(role)
	inv.Status = models.InviteStatus(status)
	if email.Valid {
		e := email.String
		inv.Email = &e
	}
	if acceptedBy != nil {
		a := id.IdentityID(*acceptedBy)
		inv.AcceptedBy = &a
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		inv.AcceptedAt = &t
	}
	return &inv, nil
}
