// Package storetest is a conformance suite shared by store backends.
package storetest

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"pwcal/internal/models"
	"pwcal/internal/store"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

var base = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

// Run executes every conformance check against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("ProjectLifecycle", func(t *testing.T) { testProjectLifecycle(t, newStore(t)) })
	t.Run("EditorSetSemantics", func(t *testing.T) { testEditorSet(t, newStore(t)) })
	t.Run("ListProjectsByMember", func(t *testing.T) { testListProjectsByMember(t, newStore(t)) })
	t.Run("EventUpdateAppendsLog", func(t *testing.T) { testEventUpdate(t, newStore(t)) })
	t.Run("SoftDeleteHidesEvent", func(t *testing.T) { testSoftDelete(t, newStore(t)) })
	t.Run("ListEventsOrder", func(t *testing.T) { testListEventsOrder(t, newStore(t)) })
	t.Run("InvitationFilters", func(t *testing.T) { testInvitationFilters(t, newStore(t)) })
	t.Run("InvitationStatusGuard", func(t *testing.T) { testInvitationStatusGuard(t, newStore(t)) })
	t.Run("AtomicallyRollsBack", func(t *testing.T) { testAtomicallyRollsBack(t, newStore(t)) })
}

func project(id, creator string) models.Project {
	return models.Project{
		ID:        id,
		Name:      "Project " + id,
		Creator:   creator,
		Editors:   []string{},
		CreatedAt: base,
		UpdatedAt: base,
	}
}

func event(id, projectID string, start time.Time) models.Event {
	return models.Event{
		ID:           id,
		ProjectID:    projectID,
		Title:        "Event " + id,
		Participants: []string{"a@x.com"},
		Start:        start,
		End:          start.Add(time.Hour),
		Logs: []models.EventLog{{
			Timestamp: base,
			Timezone:  "UTC",
			User:      "a@x.com",
			Action:    models.ActionCreate,
			Details:   "Created this event",
		}},
		CreatedAt: base,
		UpdatedAt: base,
	}
}

func testProjectLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := project("p1", "a@x.com")
	p.Description = "desc"
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if err := s.CreateProject(ctx, p); !errors.Is(err, store.ErrConflict) {
		t.Errorf("Expected ErrConflict on duplicate id, got %v", err)
	}

	name := "Renamed"
	launch := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	later := base.Add(time.Hour)
	if err := s.UpdateProject(ctx, "p1", models.ProjectPatch{Name: &name, LaunchDate: &launch}, later); err != nil {
		t.Fatalf("UpdateProject failed: %v", err)
	}
	got, err := s.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if got.Name != "Renamed" || got.Description != "desc" {
		t.Errorf("Unexpected project after update: %+v", got)
	}
	if got.LaunchDate == nil || !got.LaunchDate.Equal(launch) {
		t.Errorf("Expected launch date %v, got %v", launch, got.LaunchDate)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Errorf("Expected updatedAt %v, got %v", later, got.UpdatedAt)
	}

	if err := s.UpdateProject(ctx, "missing", models.ProjectPatch{Name: &name}, later); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound updating missing project, got %v", err)
	}
	inv := models.Invitation{ID: "i1", ProjectID: "p1", InviteeEmail: "b@x.com", Role: models.RoleEditor, Status: models.StatusPending, CreatedAt: base, ExpiresAt: base.Add(time.Hour)}
	other := inv
	other.ID, other.ProjectID = "i2", "p2"
	for _, i := range []models.Invitation{inv, other} {
		if err := s.CreateInvitation(ctx, i); err != nil {
			t.Fatalf("CreateInvitation failed: %v", err)
		}
	}
	if err := s.DeleteProject(ctx, "p1"); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	if _, err := s.GetInvitation(ctx, "i1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected project invitation to be deleted, got %v", err)
	}
	if _, err := s.GetInvitation(ctx, "i2"); err != nil {
		t.Errorf("Invitation of another project was removed: %v", err)
	}
	if _, err := s.GetProject(ctx, "p1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteProject(ctx, "p1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func testEditorSet(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := s.CreateProject(ctx, project("p1", "a@x.com")); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.AddProjectEditor(ctx, "p1", "b@x.com", base); err != nil {
			t.Fatalf("AddProjectEditor failed: %v", err)
		}
	}
	if err := s.AddProjectEditor(ctx, "p1", "c@x.com", base); err != nil {
		t.Fatalf("AddProjectEditor failed: %v", err)
	}
	got, _ := s.GetProject(ctx, "p1")
	if !slices.Equal(got.Editors, []string{"b@x.com", "c@x.com"}) {
		t.Errorf("Expected [b@x.com c@x.com], got %v", got.Editors)
	}

	if err := s.RemoveProjectEditor(ctx, "p1", "b@x.com", base); err != nil {
		t.Fatalf("RemoveProjectEditor failed: %v", err)
	}
	if err := s.RemoveProjectEditor(ctx, "p1", "nobody@x.com", base); err != nil {
		t.Errorf("Removing an absent editor should be a no-op, got %v", err)
	}
	got, _ = s.GetProject(ctx, "p1")
	if !slices.Equal(got.Editors, []string{"c@x.com"}) {
		t.Errorf("Expected [c@x.com], got %v", got.Editors)
	}

	if err := s.AddProjectEditor(ctx, "missing", "b@x.com", base); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing project, got %v", err)
	}
}

func testListProjectsByMember(t *testing.T, s store.Store) {
	ctx := context.Background()
	p1 := project("p1", "a@x.com")
	p2 := project("p2", "b@x.com")
	p2.CreatedAt = base.Add(time.Minute)
	p3 := project("p3", "c@x.com")
	for _, p := range []models.Project{p1, p2, p3} {
		if err := s.CreateProject(ctx, p); err != nil {
			t.Fatalf("CreateProject failed: %v", err)
		}
	}
	if err := s.AddProjectEditor(ctx, "p2", "a@x.com", base); err != nil {
		t.Fatalf("AddProjectEditor failed: %v", err)
	}

	list, err := s.ListProjectsByMember(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("ListProjectsByMember failed: %v", err)
	}
	var ids []string
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	if !slices.Equal(ids, []string{"p1", "p2"}) {
		t.Errorf("Expected [p1 p2], got %v", ids)
	}
}

func testEventUpdate(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := s.CreateEvent(ctx, event("e1", "p1", base)); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	title := "New"
	participants := []string{"a@x.com", "b@x.com"}
	allDay := true
	entry := models.EventLog{
		Timestamp: base.Add(time.Minute),
		Timezone:  "Asia/Taipei",
		User:      "b@x.com",
		Action:    models.ActionUpdate,
		Details:   `Changed title from "Event e1" to "New"`,
	}
	patch := models.EventPatch{Title: &title, Participants: &participants, AllDay: &allDay}
	if err := s.UpdateEvent(ctx, "e1", patch, entry); err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}

	got, err := s.GetEvent(ctx, "e1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if got.Title != "New" || !got.AllDay || !slices.Equal(got.Participants, participants) {
		t.Errorf("Patch not applied: %+v", got)
	}
	if !got.UpdatedAt.Equal(entry.Timestamp) {
		t.Errorf("Expected updatedAt %v, got %v", entry.Timestamp, got.UpdatedAt)
	}
	if len(got.Logs) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(got.Logs))
	}
	if got.Logs[0].Action != models.ActionCreate || got.Logs[1].Action != models.ActionUpdate {
		t.Errorf("Logs out of order: %+v", got.Logs)
	}
	if got.Logs[1].Timezone != "Asia/Taipei" || got.Logs[1].Details != entry.Details {
		t.Errorf("Unexpected appended log: %+v", got.Logs[1])
	}

	if err := s.UpdateEvent(ctx, "missing", patch, entry); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing event, got %v", err)
	}
}

func testSoftDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := s.CreateEvent(ctx, event("e1", "p1", base)); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	entry := models.EventLog{Timestamp: base.Add(time.Hour), Timezone: "UTC", User: "a@x.com", Action: models.ActionDelete, Details: "Deleted this event"}
	if err := s.SoftDeleteEvent(ctx, "e1", entry); err != nil {
		t.Fatalf("SoftDeleteEvent failed: %v", err)
	}
	if err := s.SoftDeleteEvent(ctx, "e1", entry); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}
	title := "x"
	if err := s.UpdateEvent(ctx, "e1", models.EventPatch{Title: &title}, entry); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound updating deleted event, got %v", err)
	}

	got, err := s.GetEvent(ctx, "e1")
	if err != nil {
		t.Fatalf("Deleted event should stay readable: %v", err)
	}
	if !got.Deleted || len(got.Logs) != 2 || got.Logs[1].Action != models.ActionDelete {
		t.Errorf("Unexpected deleted event: %+v", got)
	}

	list, err := s.ListProjectEvents(ctx, "p1")
	if err != nil {
		t.Fatalf("ListProjectEvents failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("Expected no live events, got %d", len(list))
	}
}

func testListEventsOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	evs := []models.Event{
		event("e3", "p1", base.Add(2*time.Hour)),
		event("e1", "p1", base),
		event("e2", "p1", base.Add(time.Hour)),
		event("other", "p2", base.Add(-time.Hour)),
	}
	for _, ev := range evs {
		if err := s.CreateEvent(ctx, ev); err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
	}
	list, err := s.ListProjectEvents(ctx, "p1")
	if err != nil {
		t.Fatalf("ListProjectEvents failed: %v", err)
	}
	var ids []string
	for _, ev := range list {
		ids = append(ids, ev.ID)
		if len(ev.Logs) != 1 {
			t.Errorf("Expected listed event %s to carry its log, got %d entries", ev.ID, len(ev.Logs))
		}
	}
	if !slices.Equal(ids, []string{"e1", "e2", "e3"}) {
		t.Errorf("Expected [e1 e2 e3], got %v", ids)
	}
}

func testInvitationFilters(t *testing.T, s store.Store) {
	ctx := context.Background()
	invs := []models.Invitation{
		{ID: "i1", ProjectID: "p1", InviteeEmail: "b@x.com", Role: models.RoleEditor, Status: models.StatusPending, CreatedAt: base, ExpiresAt: base.Add(7 * 24 * time.Hour)},
		{ID: "i2", ProjectID: "p2", InviteeEmail: "b@x.com", Role: models.RoleEditor, Status: models.StatusPending, CreatedAt: base.Add(time.Minute), ExpiresAt: base.Add(time.Hour)},
		{ID: "i3", ProjectID: "p1", InviteeEmail: "c@x.com", Role: models.RoleEditor, Status: models.StatusRejected, CreatedAt: base, ExpiresAt: base.Add(7 * 24 * time.Hour)},
	}
	for _, inv := range invs {
		if err := s.CreateInvitation(ctx, inv); err != nil {
			t.Fatalf("CreateInvitation failed: %v", err)
		}
	}

	now := base.Add(2 * time.Hour)
	list, err := s.ListInvitations(ctx, store.InvitationFilter{InviteeEmail: "b@x.com", Status: models.StatusPending, ExpiresAfter: now})
	if err != nil {
		t.Fatalf("ListInvitations failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "i1" {
		t.Errorf("Expected only i1, got %+v", list)
	}

	list, _ = s.ListInvitations(ctx, store.InvitationFilter{ProjectID: "p1"})
	if len(list) != 2 {
		t.Errorf("Expected 2 invitations for p1, got %d", len(list))
	}

	got, err := s.GetInvitation(ctx, "i1")
	if err != nil {
		t.Fatalf("GetInvitation failed: %v", err)
	}
	if !got.ExpiresAt.Equal(invs[0].ExpiresAt) || got.Role != models.RoleEditor {
		t.Errorf("Unexpected invitation: %+v", got)
	}
}

func testInvitationStatusGuard(t *testing.T, s store.Store) {
	ctx := context.Background()
	inv := models.Invitation{ID: "i1", ProjectID: "p1", InviteeEmail: "b@x.com", Role: models.RoleEditor, Status: models.StatusPending, CreatedAt: base, ExpiresAt: base.Add(time.Hour)}
	if err := s.CreateInvitation(ctx, inv); err != nil {
		t.Fatalf("CreateInvitation failed: %v", err)
	}

	err := s.UpdateInvitationStatus(ctx, "i1", models.StatusPending, models.StatusAccepted, base.Add(2*time.Hour))
	if !errors.Is(err, store.ErrConflict) {
		t.Errorf("Expected ErrConflict for expired invitation, got %v", err)
	}
	if err := s.UpdateInvitationStatus(ctx, "i1", models.StatusPending, models.StatusRejected, base); err != nil {
		t.Fatalf("UpdateInvitationStatus failed: %v", err)
	}
	err = s.UpdateInvitationStatus(ctx, "i1", models.StatusPending, models.StatusAccepted, base)
	if !errors.Is(err, store.ErrConflict) {
		t.Errorf("Expected ErrConflict for non-pending invitation, got %v", err)
	}
	err = s.UpdateInvitationStatus(ctx, "missing", models.StatusPending, models.StatusAccepted, base)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	got, _ := s.GetInvitation(ctx, "i1")
	if got.Status != models.StatusRejected {
		t.Errorf("Expected rejected, got %s", got.Status)
	}
}

func testAtomicallyRollsBack(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := s.CreateProject(ctx, project("p1", "a@x.com")); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	inv := models.Invitation{ID: "i1", ProjectID: "p1", InviteeEmail: "b@x.com", Role: models.RoleEditor, Status: models.StatusPending, CreatedAt: base, ExpiresAt: base.Add(time.Hour)}
	if err := s.CreateInvitation(ctx, inv); err != nil {
		t.Fatalf("CreateInvitation failed: %v", err)
	}

	boom := errors.New("boom")
	err := s.Atomically(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.UpdateInvitationStatus(ctx, "i1", models.StatusPending, models.StatusAccepted, base); err != nil {
			return err
		}
		if err := tx.AddProjectEditor(ctx, "p1", "b@x.com", base); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	got, _ := s.GetInvitation(ctx, "i1")
	if got.Status != models.StatusPending {
		t.Errorf("Expected rollback to pending, got %s", got.Status)
	}
	p, _ := s.GetProject(ctx, "p1")
	if len(p.Editors) != 0 {
		t.Errorf("Expected rollback of editor set, got %v", p.Editors)
	}

	err = s.Atomically(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.UpdateInvitationStatus(ctx, "i1", models.StatusPending, models.StatusAccepted, base); err != nil {
			return err
		}
		return tx.AddProjectEditor(ctx, "p1", "b@x.com", base)
	})
	if err != nil {
		t.Fatalf("Atomically failed: %v", err)
	}
	p, _ = s.GetProject(ctx, "p1")
	if !slices.Equal(p.Editors, []string{"b@x.com"}) {
		t.Errorf("Expected committed editor, got %v", p.Editors)
	}
}
