package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MimoJanra/UptimeGuard/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// TargetStore persists targets. UpdateByID writes only the columns named in
// the change set, so concurrent updates to different targets never touch the
// same row.
type TargetStore interface {
	FindAll(ctx context.Context) ([]models.Target, error)
	FindByURL(ctx context.Context, url string) (models.Target, error)
	Insert(ctx context.Context, t models.Target) (models.Target, error)
	UpdateByID(ctx context.Context, id string, changes models.TargetChanges) error
	DeleteByID(ctx context.Context, id string) error
	Close() error
}

const selectTargetColumns = `id, url, status, response_time_ms, certificate, domain_expiry, ip_address, hosting, last_checked, created_at`

// prepareInsert fills the fields a new target gets from the store.
func prepareInsert(t models.Target, now time.Time) models.Target {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = models.StatusPending
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now.UTC()
	}
	return t
}

type column struct {
	name  string
	value any
}

// changedColumns flattens a change set into column assignments. Values are
// Go-native (string, int, time.Time, *models.Certificate); each backend
// encodes them for its driver.
func changedColumns(c models.TargetChanges) []column {
	var cols []column
	if c.Status != nil {
		cols = append(cols, column{"status", string(*c.Status)})
	}
	if c.ResponseTimeMS != nil {
		cols = append(cols, column{"response_time_ms", *c.ResponseTimeMS})
	}
	if c.Certificate != nil {
		cols = append(cols, column{"certificate", c.Certificate})
	}
	if c.DomainExpiry != nil {
		cols = append(cols, column{"domain_expiry", *c.DomainExpiry})
	}
	if c.IPAddress != nil {
		cols = append(cols, column{"ip_address", *c.IPAddress})
	}
	if c.Hosting != nil {
		cols = append(cols, column{"hosting", *c.Hosting})
	}
	if c.LastChecked != nil {
		cols = append(cols, column{"last_checked", *c.LastChecked})
	}
	return cols
}

func encodeCertificate(c *models.Certificate) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal certificate: %w", err)
	}
	return data, nil
}

func decodeCertificate(data []byte) (*models.Certificate, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var c models.Certificate
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal certificate: %w", err)
	}
	return &c, nil
}
