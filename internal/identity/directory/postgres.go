package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"homeroom/internal/identity"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
	"homeroom/pkg/platform/tx"
	"homeroom/pkg/secrets"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore is the Postgres-backed identity directory.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed identity directory.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateIdentity(ctx context.Context, newIdentity identity.NewIdentity) (id.IdentityID, error) {
	hash, err := secrets.Hash(newIdentity.Secret)
	if err != nil {
		return id.IdentityID{}, err
	}
	metadata, err := json.Marshal(newIdentity.Metadata)
	if err != nil {
		return id.IdentityID{}, fmt.Errorf("marshal identity metadata: %w", err)
	}

	identityID := id.IdentityID(uuid.New())
	query := `
		INSERT INTO identities (id, address, secret_hash, metadata, created_at)
		VALUES ($1, $2, $3, $4, now())
	`
	_, err = tx.QuerierFor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(identityID),
		newIdentity.Address,
		hash,
		metadata,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return id.IdentityID{}, fmt.Errorf("address already registered: %w", sentinel.ErrAlreadyUsed)
		}
		return id.IdentityID{}, fmt.Errorf("create identity: %w", err)
	}
	return identityID, nil
}

func (s *PostgresStore) FindByAddress(ctx context.Context, address string) (id.IdentityID, error) {
	var identityID uuid.UUID
	query := `SELECT id FROM identities WHERE address = $1`
	if err := tx.QuerierFor(ctx, s.db).QueryRowContext(ctx, query, address).Scan(&identityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return id.IdentityID{}, fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
		}
		return id.IdentityID{}, fmt.Errorf("find identity by address: %w", err)
	}
	return id.IdentityID(identityID), nil
}

func (s *PostgresStore) DeleteIdentity(ctx context.Context, identityID id.IdentityID) error {
	res, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, `DELETE FROM identities WHERE id = $1`, uuid.UUID(identityID))
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete identity rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// SendVerificationLink marks the identity as having a confirmation link
// outstanding. A real mailer hangs off this table; the directory only
// records that the send was requested.
func (s *PostgresStore) SendVerificationLink(ctx context.Context, identityID id.IdentityID, redirectTarget string) error {
	query := `
		UPDATE identities
		SET verification_sent_at = now(), verification_redirect = $2
		WHERE id = $1
	`
	res, err := tx.QuerierFor(ctx, s.db).ExecContext(ctx, query, uuid.UUID(identityID), redirectTarget)
	if err != nil {
		return fmt.Errorf("record verification link: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record verification link rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
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

var _ identity.Gateway = (*PostgresStore)(nil)
