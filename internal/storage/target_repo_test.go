package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MimoJanra/UptimeGuard/internal/models"
)

func newTestRepo(t *testing.T) *TargetRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "targets.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestInsert_AssignsDefaults(t *testing.T) {
	repo := newTestRepo(t)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	got, err := repo.Insert(context.Background(), models.Target{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if got.ID == "" {
		t.Error("ID not assigned")
	}
	if got.Status != models.StatusPending {
		t.Errorf("Status = %q, want PENDING", got.Status)
	}
	if !got.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, fixed)
	}

	loaded, err := repo.FindByURL(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("FindByURL() error = %v", err)
	}
	if loaded.ID != got.ID || loaded.Certificate != nil || !loaded.LastChecked.IsZero() {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestInsert_Duplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Insert(ctx, models.Target{URL: "https://example.com"}); err != nil {
		t.Fatalf("first Insert() error = %v", err)
	}
	_, err := repo.Insert(ctx, models.Target{URL: "https://example.com"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second Insert() error = %v, want ErrDuplicate", err)
	}
}

func TestFindByURL_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.FindByURL(context.Background(), "https://missing.example"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestUpdateByID_WritesOnlyChangedFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tg, err := repo.Insert(ctx, models.Target{URL: "https://example.com", Hosting: "Old Host"})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	up := models.StatusUp
	rt := 120
	checked := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)
	cert := &models.Certificate{Valid: true, DaysRemaining: 25, ValidTo: "2025-03-26T12:00:00Z", AlertSent30: true}

	err = repo.UpdateByID(ctx, tg.ID, models.TargetChanges{
		Status:         &up,
		ResponseTimeMS: &rt,
		Certificate:    cert,
		LastChecked:    &checked,
	})
	if err != nil {
		t.Fatalf("UpdateByID() error = %v", err)
	}

	got, err := repo.FindByURL(ctx, tg.URL)
	if err != nil {
		t.Fatalf("FindByURL() error = %v", err)
	}
	if got.Status != models.StatusUp || got.ResponseTimeMS != 120 {
		t.Errorf("status/rt = %s/%d", got.Status, got.ResponseTimeMS)
	}
	if got.Certificate == nil || *got.Certificate != *cert {
		t.Errorf("Certificate = %+v, want %+v", got.Certificate, cert)
	}
	if !got.LastChecked.Equal(checked) {
		t.Errorf("LastChecked = %v, want %v", got.LastChecked, checked)
	}
	if got.Hosting != "Old Host" {
		t.Errorf("untouched Hosting changed to %q", got.Hosting)
	}
}

func TestUpdateByID_EmptyChangesIsNoop(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.UpdateByID(context.Background(), "does-not-exist", models.TargetChanges{}); err != nil {
		t.Fatalf("UpdateByID() with no changes error = %v", err)
	}
}

func TestUpdateByID_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	down := models.StatusDown
	err := repo.UpdateByID(context.Background(), "does-not-exist", models.TargetChanges{Status: &down})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestDeleteByID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tg, _ := repo.Insert(ctx, models.Target{URL: "https://example.com"})
	if err := repo.DeleteByID(ctx, tg.ID); err != nil {
		t.Fatalf("DeleteByID() error = %v", err)
	}
	if err := repo.DeleteByID(ctx, tg.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteByID() error = %v, want ErrNotFound", err)
	}
}

func TestFindAll_OrdersByLastCheckedDesc(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	never, _ := repo.Insert(ctx, models.Target{URL: "https://never.example"})
	old, _ := repo.Insert(ctx, models.Target{URL: "https://old.example", LastChecked: base})
	recent, _ := repo.Insert(ctx, models.Target{URL: "https://recent.example", LastChecked: base.Add(time.Hour)})

	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	want := []string{recent.ID, old.ID, never.ID}
	if len(all) != len(want) {
		t.Fatalf("got %d targets, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, all[i].URL, id)
		}
	}
}

func TestChangedColumns(t *testing.T) {
	host := "Hetzner"
	cols := changedColumns(models.TargetChanges{Hosting: &host})
	if len(cols) != 1 || cols[0].name != "hosting" || cols[0].value != "Hetzner" {
		t.Errorf("cols = %+v", cols)
	}
	if len(changedColumns(models.TargetChanges{})) != 0 {
		t.Error("empty change set produced columns")
	}
}
