package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MimoJanra/UptimeGuard/internal/models"
)

const pgUniqueViolation = "23505"

// PostgresStore is the TargetStore backed by a pgx connection pool.
type PostgresStore struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// OpenPostgres connects, pings and migrates.
func OpenPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	store := &PostgresStore{db: pool, now: time.Now}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS targets (
		id               TEXT PRIMARY KEY,
		url              TEXT NOT NULL UNIQUE,
		status           TEXT NOT NULL DEFAULT 'PENDING',
		response_time_ms INTEGER NOT NULL DEFAULT 0,
		certificate      JSONB,
		domain_expiry    TEXT NOT NULL DEFAULT '',
		ip_address       TEXT NOT NULL DEFAULT '',
		hosting          TEXT NOT NULL DEFAULT '',
		last_checked     TIMESTAMPTZ,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_targets_last_checked ON targets (last_checked DESC NULLS LAST, created_at DESC);
	`
	_, err := s.db.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) FindAll(ctx context.Context) ([]models.Target, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+selectTargetColumns+" FROM targets ORDER BY last_checked DESC NULLS LAST, created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query targets: %w", err)
	}
	defer rows.Close()

	var targets []models.Target
	for rows.Next() {
		t, err := scanPostgresTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan target row: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

func (s *PostgresStore) FindByURL(ctx context.Context, url string) (models.Target, error) {
	row := s.db.QueryRow(ctx, "SELECT "+selectTargetColumns+" FROM targets WHERE url = $1", url)
	t, err := scanPostgresTarget(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Target{}, ErrNotFound
	}
	return t, err
}

func (s *PostgresStore) Insert(ctx context.Context, t models.Target) (models.Target, error) {
	t = prepareInsert(t, s.now())

	cert, err := encodeCertificate(t.Certificate)
	if err != nil {
		return models.Target{}, err
	}

	query := `INSERT INTO targets (` + selectTargetColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = s.db.Exec(ctx, query,
		t.ID, t.URL, string(t.Status), t.ResponseTimeMS, cert,
		t.DomainExpiry, t.IPAddress, t.Hosting, nullableTime(t.LastChecked), t.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return models.Target{}, fmt.Errorf("insert target %q: %w", t.URL, ErrDuplicate)
		}
		return models.Target{}, fmt.Errorf("failed to create target: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) UpdateByID(ctx context.Context, id string, changes models.TargetChanges) error {
	cols := changedColumns(changes)
	if len(cols) == 0 {
		return nil
	}

	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		v := c.value
		if cert, ok := v.(*models.Certificate); ok {
			data, err := encodeCertificate(cert)
			if err != nil {
				return fmt.Errorf("update target %s: %w", id, err)
			}
			v = data
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", c.name, i+1))
		args = append(args, v)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE targets SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update target %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteByID(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM targets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete target %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPostgresTarget(row pgx.Row) (models.Target, error) {
	var (
		t           models.Target
		status      string
		cert        []byte
		lastChecked *time.Time
	)
	if err := row.Scan(&t.ID, &t.URL, &status, &t.ResponseTimeMS, &cert,
		&t.DomainExpiry, &t.IPAddress, &t.Hosting, &lastChecked, &t.CreatedAt); err != nil {
		return models.Target{}, err
	}
	t.Status = models.Status(status)
	if lastChecked != nil {
		t.LastChecked = lastChecked.UTC()
	}
	t.CreatedAt = t.CreatedAt.UTC()

	c, err := decodeCertificate(cert)
	if err != nil {
		return models.Target{}, fmt.Errorf("target %s: %w", t.ID, err)
	}
	t.Certificate = c
	return t, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
