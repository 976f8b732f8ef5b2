// Package collab ties projects, editors and invitations together.
// It performs no authorization; callers decide who may act.
package collab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"pwcal/internal/ident"
	"pwcal/internal/invitation"
	"pwcal/internal/models"
	"pwcal/internal/store"
)

// ErrInvalidProject is returned for projects without a name or creator.
var ErrInvalidProject = errors.New("invalid project")

// ProjectDraft carries the fields needed to create a project.
type ProjectDraft struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	LaunchDate  *time.Time `json:"launchDate,omitempty"`
	Creator     string     `json:"creatorEmail"`
}

// Reconciliation reports what ReconcileEditors did.
type Reconciliation struct {
	Invited            []models.Invitation `json:"invited"`
	AlreadyInvited     []string            `json:"alreadyInvited"`
	Removed            []string            `json:"removed"`
	NotificationFailed []string            `json:"notificationFailed"`
}

// Coordinator is the entry point for project and collaboration operations.
type Coordinator struct {
	store   store.Store
	invites *invitation.Engine
	now     ident.Clock
	logger  *slog.Logger
}

// NewCoordinator returns a coordinator. A nil clock uses the wall clock.
func NewCoordinator(s store.Store, invites *invitation.Engine, clock ident.Clock, logger *slog.Logger) *Coordinator {
	if clock == nil {
		clock = ident.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{store: s, invites: invites, now: clock, logger: logger}
}

// CreateProject stores a new project with an empty editor set.
func (c *Coordinator) CreateProject(ctx context.Context, d ProjectDraft) (models.Project, error) {
	if strings.TrimSpace(d.Name) == "" {
		return models.Project{}, fmt.Errorf("%w: name is required", ErrInvalidProject)
	}
	creator := strings.TrimSpace(d.Creator)
	if creator == "" {
		return models.Project{}, fmt.Errorf("%w: creator is required", ErrInvalidProject)
	}

	now := c.now()
	p := models.Project{
		ID:          ident.New(),
		Name:        d.Name,
		Description: d.Description,
		Location:    d.Location,
		Creator:     creator,
		Editors:     []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if d.LaunchDate != nil {
		ld := d.LaunchDate.UTC()
		p.LaunchDate = &ld
	}
	if err := c.store.CreateProject(ctx, p); err != nil {
		return models.Project{}, fmt.Errorf("failed to create project: %w", err)
	}
	c.logger.InfoContext(ctx, "Created project", "projectID", p.ID, "creator", creator)
	return p, nil
}

// GetProject returns a project or store.ErrNotFound.
func (c *Coordinator) GetProject(ctx context.Context, id string) (models.Project, error) {
	return c.store.GetProject(ctx, id)
}

// UpdateProject applies patch and returns the updated project.
func (c *Coordinator) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.Project, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return models.Project{}, fmt.Errorf("%w: name cannot be blank", ErrInvalidProject)
	}
	if err := c.store.UpdateProject(ctx, id, patch, c.now()); err != nil {
		return models.Project{}, fmt.Errorf("failed to update project %s: %w", id, err)
	}
	return c.store.GetProject(ctx, id)
}

// DeleteProject removes a project permanently, along with its invitations.
func (c *Coordinator) DeleteProject(ctx context.Context, id string) error {
	err := c.store.Atomically(ctx, func(ctx context.Context, s store.Store) error {
		return s.DeleteProject(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}
	c.logger.InfoContext(ctx, "Deleted project", "projectID", id)
	return nil
}

// ListUserProjects returns projects the user created or edits.
func (c *Coordinator) ListUserProjects(ctx context.Context, email string) ([]models.Project, error) {
	list, err := c.store.ListProjectsByMember(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return list, nil
}

// Invite issues an editor invitation.
func (c *Coordinator) Invite(ctx context.Context, projectID, invitee string) (models.Invitation, error) {
	return c.invites.Issue(ctx, projectID, invitee)
}

// Respond accepts or rejects an invitation.
func (c *Coordinator) Respond(ctx context.Context, invitationID string, d invitation.Decision) (bool, error) {
	return c.invites.Resolve(ctx, invitationID, d)
}

// PendingInvitations returns the live invitations addressed to email.
func (c *Coordinator) PendingInvitations(ctx context.Context, email string) ([]models.Invitation, error) {
	return c.invites.ListPending(ctx, email)
}

// ProjectInvitations returns a project's live invitations.
func (c *Coordinator) ProjectInvitations(ctx context.Context, projectID string) ([]models.Invitation, error) {
	return c.invites.ListPendingForProject(ctx, projectID)
}

// ReconcileEditors moves the project's editors towards desired. Emails that
// are not yet editors are invited rather than added; editors missing from
// desired are removed. The creator is ignored on both sides.
func (c *Coordinator) ReconcileEditors(ctx context.Context, projectID string, desired []string) (Reconciliation, error) {
	var r Reconciliation
	project, err := c.store.GetProject(ctx, projectID)
	if err != nil {
		return r, fmt.Errorf("failed to load project %s: %w", projectID, err)
	}

	want := make([]string, 0, len(desired))
	for _, email := range desired {
		email = strings.TrimSpace(email)
		if email == "" || email == project.Creator || slices.Contains(want, email) {
			continue
		}
		want = append(want, email)
	}

	for _, email := range project.Editors {
		if email == project.Creator || slices.Contains(want, email) {
			continue
		}
		if err := c.store.RemoveProjectEditor(ctx, projectID, email, c.now()); err != nil {
			return r, fmt.Errorf("failed to remove editor %s: %w", email, err)
		}
		r.Removed = append(r.Removed, email)
	}

	for _, email := range want {
		if project.IsEditor(email) {
			continue
		}
		inv, err := c.invites.Issue(ctx, projectID, email)
		switch {
		case err == nil:
			r.Invited = append(r.Invited, inv)
		case errors.Is(err, invitation.ErrAlreadyInvited):
			r.AlreadyInvited = append(r.AlreadyInvited, email)
		case errors.Is(err, invitation.ErrNotificationFailed):
			r.Invited = append(r.Invited, inv)
			r.NotificationFailed = append(r.NotificationFailed, email)
		default:
			return r, fmt.Errorf("failed to invite %s: %w", email, err)
		}
	}

	c.logger.InfoContext(ctx, "Reconciled editors",
		"projectID", projectID,
		"invited", len(r.Invited),
		"alreadyInvited", len(r.AlreadyInvited),
		"removed", len(r.Removed),
	)
	return r, nil
}
