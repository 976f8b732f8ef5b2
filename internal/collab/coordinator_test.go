package collab

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"pwcal/internal/ident"
	"pwcal/internal/invitation"
	"pwcal/internal/models"
	"pwcal/internal/notify"
	"pwcal/internal/store"
	"pwcal/internal/store/memory"
)

var t0 = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

type nopNotifier struct{ sent int }

func (n *nopNotifier) NotifyInvitation(context.Context, notify.InvitationNotice) error {
	n.sent++
	return nil
}

func setup(t *testing.T) (*Coordinator, *nopNotifier) {
	t.Helper()
	s := memory.NewMemStore(nil, nil)
	n := &nopNotifier{}
	clock := ident.Fixed(t0)
	inv := invitation.NewEngine(s, n, invitation.Config{BaseURL: "http://localhost:8080"}, clock, nil)
	return NewCoordinator(s, inv, clock, nil), n
}

func TestProjectCRUD(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()

	launch := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p, err := c.CreateProject(ctx, ProjectDraft{Name: "Launch", Location: "Taipei", LaunchDate: &launch, Creator: "a@x.com"})
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if p.Creator != "a@x.com" || len(p.Editors) != 0 || p.LaunchDate == nil || !p.LaunchDate.Equal(launch) {
		t.Errorf("Unexpected project %+v", p)
	}

	name := "Launch v2"
	updated, err := c.UpdateProject(ctx, p.ID, models.ProjectPatch{Name: &name})
	if err != nil {
		t.Fatalf("UpdateProject failed: %v", err)
	}
	if updated.Name != name || updated.Location != "Taipei" {
		t.Errorf("Unexpected updated project %+v", updated)
	}

	blank := " "
	if _, err := c.UpdateProject(ctx, p.ID, models.ProjectPatch{Name: &blank}); !errors.Is(err, ErrInvalidProject) {
		t.Errorf("Blank name update = %v, want ErrInvalidProject", err)
	}
	if _, err := c.CreateProject(ctx, ProjectDraft{Name: "x"}); !errors.Is(err, ErrInvalidProject) {
		t.Errorf("Create without creator = %v, want ErrInvalidProject", err)
	}

	list, err := c.ListUserProjects(ctx, "a@x.com")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListUserProjects = %v, %v", list, err)
	}

	if err := c.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	if _, err := c.GetProject(ctx, p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetProject after delete = %v, want ErrNotFound", err)
	}
	if err := c.DeleteProject(ctx, p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Second delete = %v, want ErrNotFound", err)
	}
}

func TestDeleteProjectDropsPendingInvitations(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()
	p, _ := c.CreateProject(ctx, ProjectDraft{Name: "Launch", Creator: "a@x.com"})
	keep, _ := c.CreateProject(ctx, ProjectDraft{Name: "Other", Creator: "a@x.com"})

	inv, err := c.Invite(ctx, p.ID, "b@x.com")
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if _, err := c.Invite(ctx, keep.ID, "b@x.com"); err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if err := c.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}

	pending, err := c.PendingInvitations(ctx, "b@x.com")
	if err != nil {
		t.Fatalf("PendingInvitations failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ProjectID != keep.ID {
		t.Errorf("PendingInvitations = %+v, want only the invitation to %s", pending, keep.ID)
	}
	if done, err := c.Respond(ctx, inv.ID, invitation.Accept); done || err != nil {
		t.Errorf("Respond on deleted project = %v, %v, want false, nil", done, err)
	}
}

func TestInviteAndRespond(t *testing.T) {
	c, n := setup(t)
	ctx := context.Background()
	p, _ := c.CreateProject(ctx, ProjectDraft{Name: "Launch", Creator: "a@x.com"})

	inv, err := c.Invite(ctx, p.ID, "b@x.com")
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if n.sent != 1 {
		t.Errorf("Expected one notice, got %d", n.sent)
	}
	if pending, _ := c.PendingInvitations(ctx, "b@x.com"); len(pending) != 1 {
		t.Errorf("PendingInvitations = %v", pending)
	}

	if ok, err := c.Respond(ctx, inv.ID, invitation.Accept); err != nil || !ok {
		t.Fatalf("Respond = %v, %v", ok, err)
	}
	got, _ := c.GetProject(ctx, p.ID)
	if !got.IsEditor("b@x.com") {
		t.Errorf("Editors = %v", got.Editors)
	}
	if list, _ := c.ListUserProjects(ctx, "b@x.com"); len(list) != 1 {
		t.Errorf("Editor should see the project, got %v", list)
	}
	if pending, _ := c.ProjectInvitations(ctx, p.ID); len(pending) != 0 {
		t.Errorf("ProjectInvitations after accept = %v", pending)
	}
}

func TestReconcileEditors(t *testing.T) {
	c, n := setup(t)
	ctx := context.Background()
	p, _ := c.CreateProject(ctx, ProjectDraft{Name: "Launch", Creator: "a@x.com"})

	// Make b an editor through the invitation flow.
	inv, _ := c.Invite(ctx, p.ID, "b@x.com")
	if ok, err := c.Respond(ctx, inv.ID, invitation.Accept); !ok || err != nil {
		t.Fatalf("Respond = %v, %v", ok, err)
	}
	n.sent = 0

	desired := []string{"a@x.com", "c@x.com", "d@x.com", "c@x.com"}
	r, err := c.ReconcileEditors(ctx, p.ID, desired)
	if err != nil {
		t.Fatalf("ReconcileEditors failed: %v", err)
	}
	if !slices.Equal(r.Removed, []string{"b@x.com"}) {
		t.Errorf("Removed = %v", r.Removed)
	}
	if len(r.Invited) != 2 || r.Invited[0].InviteeEmail != "c@x.com" || r.Invited[1].InviteeEmail != "d@x.com" {
		t.Errorf("Invited = %+v", r.Invited)
	}
	if n.sent != 2 {
		t.Errorf("Expected 2 notices, got %d", n.sent)
	}
	got, _ := c.GetProject(ctx, p.ID)
	if len(got.Editors) != 0 {
		t.Errorf("Editors = %v, want none until invitations are accepted", got.Editors)
	}

	// A second run changes nothing.
	r, err = c.ReconcileEditors(ctx, p.ID, desired)
	if err != nil {
		t.Fatalf("Second ReconcileEditors failed: %v", err)
	}
	if len(r.Invited) != 0 || len(r.Removed) != 0 || !slices.Equal(r.AlreadyInvited, []string{"c@x.com", "d@x.com"}) {
		t.Errorf("Second run = %+v", r)
	}
	if n.sent != 2 {
		t.Errorf("Second run sent notices: %d", n.sent)
	}
	pending, _ := c.ProjectInvitations(ctx, p.ID)
	if len(pending) != 2 {
		t.Errorf("Expected 2 pending invitations, got %d", len(pending))
	}
}

func TestReconcileUnknownProject(t *testing.T) {
	c, _ := setup(t)
	if _, err := c.ReconcileEditors(context.Background(), "missing", []string{"b@x.com"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ReconcileEditors = %v, want ErrNotFound", err)
	}
}
