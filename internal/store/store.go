// Package store defines the document store contract used by the engines.
// Backends live in the memory, sqlite and mongo subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"pwcal/internal/models"
)

var (
	// ErrNotFound is returned when an identifier does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional update finds the document
	// in a state other than the one required.
	ErrConflict = errors.New("conflict")
)

// ProjectStore persists projects and their editor sets.
type ProjectStore interface {
	CreateProject(ctx context.Context, p models.Project) error
	GetProject(ctx context.Context, id string) (models.Project, error)
	UpdateProject(ctx context.Context, id string, patch models.ProjectPatch, now time.Time) error
	// DeleteProject removes the project together with its invitations.
	DeleteProject(ctx context.Context, id string) error
	// ListProjectsByMember returns projects where email is the creator or an editor.
	ListProjectsByMember(ctx context.Context, email string) ([]models.Project, error)
	// AddProjectEditor adds email to the editor set. Adding an existing editor is a no-op.
	AddProjectEditor(ctx context.Context, projectID, email string, now time.Time) error
	RemoveProjectEditor(ctx context.Context, projectID, email string, now time.Time) error
}

// EventStore persists events. Updates and deletes only match live events and
// append their log entry in the same write as the field changes.
type EventStore interface {
	CreateEvent(ctx context.Context, ev models.Event) error
	// GetEvent returns the event even when it is soft-deleted.
	GetEvent(ctx context.Context, id string) (models.Event, error)
	// UpdateEvent applies patch and appends entry. ErrNotFound if no live event matches.
	UpdateEvent(ctx context.Context, id string, patch models.EventPatch, entry models.EventLog) error
	// SoftDeleteEvent marks the event deleted and appends entry. ErrNotFound if no live event matches.
	SoftDeleteEvent(ctx context.Context, id string, entry models.EventLog) error
	// ListProjectEvents returns live events ordered by start, then creation time, then ID.
	ListProjectEvents(ctx context.Context, projectID string) ([]models.Event, error)
}

// InvitationFilter selects invitations. Zero fields do not filter.
type InvitationFilter struct {
	ProjectID    string
	InviteeEmail string
	Status       models.InvitationStatus
	ExpiresAfter time.Time
}

// Match reports whether inv satisfies the filter.
func (f InvitationFilter) Match(inv models.Invitation) bool {
	if f.ProjectID != "" && inv.ProjectID != f.ProjectID {
		return false
	}
	if f.InviteeEmail != "" && inv.InviteeEmail != f.InviteeEmail {
		return false
	}
	if f.Status != "" && inv.Status != f.Status {
		return false
	}
	if !f.ExpiresAfter.IsZero() && !inv.ExpiresAt.After(f.ExpiresAfter) {
		return false
	}
	return true
}

// InvitationStore persists invitations.
type InvitationStore interface {
	CreateInvitation(ctx context.Context, inv models.Invitation) error
	GetInvitation(ctx context.Context, id string) (models.Invitation, error)
	// ListInvitations returns matches ordered by creation time.
	ListInvitations(ctx context.Context, filter InvitationFilter) ([]models.Invitation, error)
	// UpdateInvitationStatus moves an invitation from one status to another.
	// When liveAt is non-zero the invitation must also expire after liveAt.
	// Returns ErrNotFound for unknown IDs and ErrConflict when the guard fails.
	UpdateInvitationStatus(ctx context.Context, id string, from, to models.InvitationStatus, liveAt time.Time) error
}

// Store is the full document store.
type Store interface {
	ProjectStore
	EventStore
	InvitationStore

	// Atomically runs fn so that its writes commit together, when the backend
	// supports it. Backends without multi-document transactions run fn directly.
	Atomically(ctx context.Context, fn func(ctx context.Context, s Store) error) error
	Close() error
}
