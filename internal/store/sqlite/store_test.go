package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pwcal/internal/models"
	"pwcal/internal/store"
	"pwcal/internal/store/storetest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "pwcal.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return openTestStore(t)
	})
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pwcal.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	ctx := context.Background()
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	if err := first.CreateProject(ctx, models.Project{ID: "p1", Name: "P", Creator: "a@x.com", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	_ = first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen should skip applied migrations: %v", err)
	}
	defer second.Close()
	if _, err := second.GetProject(ctx, "p1"); err != nil {
		t.Fatalf("get project after reopen: %v", err)
	}
}

func TestMillisecondPrecisionKeepsAllDayBounds(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 10, 23, 59, 59, 999_000_000, time.UTC)
	ev := models.Event{ID: "e1", ProjectID: "p1", Title: "Day", Start: start, End: end, AllDay: true, CreatedAt: start, UpdatedAt: start}
	if err := s.CreateEvent(ctx, ev); err != nil {
		t.Fatalf("create event: %v", err)
	}
	got, err := s.GetEvent(ctx, "e1")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if !got.End.Equal(end) || !got.AllDay {
		t.Fatalf("expected end %v all-day, got %v %v", end, got.End, got.AllDay)
	}
	if got.Participants == nil {
		t.Fatal("expected empty participants slice, got nil")
	}
}
