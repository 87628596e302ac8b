package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/poyrazK/licenseHub/internal/core/domain"
)

// PostgresRepository implements ports.RegistrationRepository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates and returns a new PostgresRepository instance.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the registrations table if it does not exist yet.
// Called once at startup; a real migration tool is out of scope for a
// single-table service.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS registrations (
	            id BIGSERIAL PRIMARY KEY,
	            client_key TEXT UNIQUE NOT NULL,
	            status TEXT NOT NULL DEFAULT 'Pending',
	            requested_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	            decided_at TIMESTAMPTZ,
	            notes TEXT
	          )`
	_, err := r.db.ExecContext(ctx, query)
	return err
}

func (r *PostgresRepository) CreateIfAbsent(ctx context.Context, clientKey string) (bool, int64, error) {
	// The unique constraint on client_key is the sole arbiter for
	// concurrent registers; DO NOTHING leaves the existing row untouched.
	query := `INSERT INTO registrations (client_key) VALUES ($1)
	          ON CONFLICT (client_key) DO NOTHING RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, query, clientKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	return true, id, nil
}

func (r *PostgresRepository) GetByKey(ctx context.Context, clientKey string) (*domain.Registration, error) {
	query := `SELECT id, client_key, status, requested_at, decided_at, notes
	          FROM registrations WHERE client_key = $1`
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, clientKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]domain.Registration, error) {
	query := `SELECT id, client_key, status, requested_at, decided_at, notes
	          FROM registrations ORDER BY id DESC`
	return r.list(ctx, query)
}

func (r *PostgresRepository) ListPending(ctx context.Context) ([]domain.Registration, error) {
	query := `SELECT id, client_key, status, requested_at, decided_at, notes
	          FROM registrations WHERE status = 'Pending' ORDER BY requested_at DESC`
	return r.list(ctx, query)
}

func (r *PostgresRepository) Decide(ctx context.Context, id int64, status domain.Status, decidedAt time.Time) (int64, error) {
	// Affects a row only while it is still Pending; a second decision on
	// the same id reports zero rows.
	query := `UPDATE registrations SET status = $1, decided_at = $2
	          WHERE id = $3 AND status = 'Pending'`
	res, err := r.db.ExecContext(ctx, query, string(status), decidedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) (int64, error) {
	query := `DELETE FROM registrations WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*domain.Registration, error) {
	var reg domain.Registration
	var decidedAt sql.NullTime
	var notes sql.NullString
	if err := row.Scan(&reg.ID, &reg.ClientKey, &reg.Status, &reg.RequestedAt, &decidedAt, &notes); err != nil {
		return nil, err
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		reg.DecidedAt = &t
	}
	if notes.Valid {
		n := notes.String
		reg.Notes = &n
	}
	return &reg, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string) ([]domain.Registration, error) {
	rows, errQuery := r.db.QueryContext(ctx, query)
	if errQuery != nil {
		return nil, errQuery
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil {
			log.Printf("failed to close rows: %v", errClose)
		}
	}()

	var regs []domain.Registration
	for rows.Next() {
		reg, errScan := scanRegistration(rows)
		if errScan != nil {
			return nil, errScan
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}
