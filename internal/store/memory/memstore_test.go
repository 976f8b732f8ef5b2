package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pwcal/internal/models"
	"pwcal/internal/store"
	"pwcal/internal/store/storetest"
)

func TestMemStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return NewMemStore(nil, nil)
	})
}

func TestMemStore_ReturnsCopies(t *testing.T) {
	ms := NewMemStore(nil, nil)
	ctx := context.Background()
	p := models.Project{ID: "p1", Name: "P", Creator: "a@x.com", Editors: []string{"b@x.com"}}
	if err := ms.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	p.Editors[0] = "mutated@x.com"

	got, _ := ms.GetProject(ctx, "p1")
	if got.Editors[0] != "b@x.com" {
		t.Errorf("Store shares caller slice: %v", got.Editors)
	}
	got.Editors[0] = "mutated@x.com"
	again, _ := ms.GetProject(ctx, "p1")
	if again.Editors[0] != "b@x.com" {
		t.Errorf("Store leaks internal slice: %v", again.Editors)
	}
}

func TestMemStore_PersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "pwcal.json")
	ctx := context.Background()
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	ms, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := ms.CreateProject(ctx, models.Project{ID: "p1", Name: "P", Creator: "a@x.com", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if err := ms.AddProjectEditor(ctx, "p1", "b@x.com", now); err != nil {
		t.Fatalf("AddProjectEditor failed: %v", err)
	}
	if err := ms.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	got, err := reopened.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProject after reopen failed: %v", err)
	}
	if len(got.Editors) != 1 || got.Editors[0] != "b@x.com" {
		t.Errorf("Expected persisted editor, got %v", got.Editors)
	}
}

func TestPersistence_DropsStaleSnapshots(t *testing.T) {
	p, err := NewPersistence(filepath.Join(t.TempDir(), "pwcal.json"))
	if err != nil {
		t.Fatalf("NewPersistence failed: %v", err)
	}
	newer := snapshot{Projects: map[string]models.Project{"new": {ID: "new"}}}
	older := snapshot{Projects: map[string]models.Project{"old": {ID: "old"}}}
	if err := p.Save(2, newer); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := p.Save(1, older); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	snap, err := p.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := snap.Projects["new"]; !ok {
		t.Errorf("Expected newest snapshot to win, got %v", snap.Projects)
	}
}
