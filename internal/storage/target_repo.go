package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/MimoJanra/UptimeGuard/internal/models"
)

// TargetRepo is the SQLite TargetStore. Timestamps are stored as Unix
// nanoseconds so ordering by last_checked is numeric.
type TargetRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewTargetRepo(db *sql.DB) *TargetRepo { return &TargetRepo{db: db, now: time.Now} }

// OpenSQLite opens path, migrates it and returns a ready store.
func OpenSQLite(ctx context.Context, path string) (*TargetRepo, error) {
	db, err := InitDB(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewTargetRepo(db), nil
}

func (r *TargetRepo) Close() error { return r.db.Close() }

func (r *TargetRepo) FindAll(ctx context.Context) ([]models.Target, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+selectTargetColumns+" FROM targets ORDER BY last_checked DESC, created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("query targets: %w", err)
	}
	defer rows.Close()

	var targets []models.Target
	for rows.Next() {
		t, err := scanSQLiteTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

func (r *TargetRepo) FindByURL(ctx context.Context, url string) (models.Target, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+selectTargetColumns+" FROM targets WHERE url = ?", url)
	t, err := scanSQLiteTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Target{}, ErrNotFound
	}
	return t, err
}

func (r *TargetRepo) Insert(ctx context.Context, t models.Target) (models.Target, error) {
	t = prepareInsert(t, r.now())

	cert, err := encodeCertificate(t.Certificate)
	if err != nil {
		return models.Target{}, err
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO targets("+selectTargetColumns+") VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		t.ID, t.URL, string(t.Status), t.ResponseTimeMS, nullableText(cert),
		t.DomainExpiry, t.IPAddress, t.Hosting, unixNanos(t.LastChecked), unixNanos(t.CreatedAt),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return models.Target{}, fmt.Errorf("insert target %q: %w", t.URL, ErrDuplicate)
		}
		return models.Target{}, fmt.Errorf("insert target %q: %w", t.URL, err)
	}
	return t, nil
}

func (r *TargetRepo) UpdateByID(ctx context.Context, id string, changes models.TargetChanges) error {
	cols := changedColumns(changes)
	if len(cols) == 0 {
		return nil
	}

	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for _, c := range cols {
		v, err := encodeSQLiteValue(c.value)
		if err != nil {
			return fmt.Errorf("update target %s: %w", id, err)
		}
		sets = append(sets, c.name+" = ?")
		args = append(args, v)
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, "UPDATE targets SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update target %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TargetRepo) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM targets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete target %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTarget(row rowScanner) (models.Target, error) {
	var (
		t           models.Target
		status      string
		cert        sql.NullString
		lastChecked int64
		createdAt   int64
	)
	if err := row.Scan(&t.ID, &t.URL, &status, &t.ResponseTimeMS, &cert,
		&t.DomainExpiry, &t.IPAddress, &t.Hosting, &lastChecked, &createdAt); err != nil {
		return models.Target{}, err
	}
	t.Status = models.Status(status)
	t.LastChecked = fromUnixNanos(lastChecked)
	t.CreatedAt = fromUnixNanos(createdAt)

	c, err := decodeCertificate([]byte(cert.String))
	if err != nil {
		return models.Target{}, fmt.Errorf("target %s: %w", t.ID, err)
	}
	t.Certificate = c
	return t, nil
}

func encodeSQLiteValue(v any) (any, error) {
	switch val := v.(type) {
	case time.Time:
		return unixNanos(val), nil
	case *models.Certificate:
		data, err := encodeCertificate(val)
		if err != nil {
			return nil, err
		}
		return nullableText(data), nil
	default:
		return v, nil
	}
}

func nullableText(data []byte) sql.NullString {
	if data == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

func unixNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
