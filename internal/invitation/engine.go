// Package invitation issues and resolves project editor invitations.
//
// An invitation is pending until it is accepted or rejected. Expiry is never
// stored: a pending invitation whose ExpiresAt has passed is simply dead.
package invitation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"pwcal/internal/ident"
	"pwcal/internal/models"
	"pwcal/internal/notify"
	"pwcal/internal/store"
)

// DefaultTTL is how long an invitation stays actionable.
const DefaultTTL = 7 * 24 * time.Hour

var (
	// ErrAlreadyCollaborator is returned when the invitee already owns or edits the project.
	ErrAlreadyCollaborator = errors.New("invitee is already a collaborator")
	// ErrAlreadyInvited is returned when a live invitation exists for the same project and invitee.
	ErrAlreadyInvited = errors.New("invitee already has a pending invitation")
	// ErrNotificationFailed wraps notifier errors. The invitation itself was stored.
	ErrNotificationFailed = errors.New("invitation notification failed")
	// ErrInvalidEmail is returned for invitee addresses that do not parse.
	ErrInvalidEmail = errors.New("invalid invitee email")
)

// Decision is an invitee's answer to an invitation.
type Decision string

const (
	Accept Decision = "accept"
	Reject Decision = "reject"
)

// ParseDecision maps the wire form of a decision.
func ParseDecision(s string) (Decision, bool) {
	switch Decision(strings.ToLower(strings.TrimSpace(s))) {
	case Accept:
		return Accept, true
	case Reject:
		return Reject, true
	}
	return "", false
}

// Config holds the engine settings.
type Config struct {
	TTL     time.Duration // Zero means DefaultTTL
	BaseURL string        // Prefix of the accept and reject links
}

// Engine drives the invitation state machine.
type Engine struct {
	store    store.Store
	notifier notify.Notifier
	now      ident.Clock
	cfg      Config
	logger   *slog.Logger
}

// NewEngine returns an invitation engine. A nil clock uses the wall clock.
func NewEngine(s store.Store, n notify.Notifier, cfg Config, clock ident.Clock, logger *slog.Logger) *Engine {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if clock == nil {
		clock = ident.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: s, notifier: n, now: clock, cfg: cfg, logger: logger}
}

// Issue creates a pending invitation and notifies the invitee.
//
// When only the notification fails, the stored invitation is returned along
// with an error wrapping ErrNotificationFailed.
func (e *Engine) Issue(ctx context.Context, projectID, invitee string) (models.Invitation, error) {
	invitee = strings.TrimSpace(invitee)
	if addr, err := mail.ParseAddress(invitee); err != nil || addr.Address != invitee {
		return models.Invitation{}, fmt.Errorf("%w: %q", ErrInvalidEmail, invitee)
	}

	project, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return models.Invitation{}, fmt.Errorf("failed to load project %s: %w", projectID, err)
	}
	if project.IsMember(invitee) {
		return models.Invitation{}, ErrAlreadyCollaborator
	}

	now := e.now()
	live, err := e.store.ListInvitations(ctx, store.InvitationFilter{
		ProjectID:    projectID,
		InviteeEmail: invitee,
		Status:       models.StatusPending,
		ExpiresAfter: now,
	})
	if err != nil {
		return models.Invitation{}, fmt.Errorf("failed to check pending invitations: %w", err)
	}
	if len(live) > 0 {
		return models.Invitation{}, ErrAlreadyInvited
	}

	inv := models.Invitation{
		ID:           ident.New(),
		ProjectID:    projectID,
		InviteeEmail: invitee,
		Role:         models.RoleEditor,
		Status:       models.StatusPending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(e.cfg.TTL),
	}
	if err := e.store.CreateInvitation(ctx, inv); err != nil {
		return models.Invitation{}, fmt.Errorf("failed to create invitation: %w", err)
	}
	e.logger.InfoContext(ctx, "Created invitation", "invitationID", inv.ID, "projectID", projectID, "invitee", invitee)

	accept, reject := e.Links(inv.ID)
	notice := notify.InvitationNotice{Invitation: inv, Project: project, AcceptURL: accept, RejectURL: reject}
	if err := e.notifier.NotifyInvitation(ctx, notice); err != nil {
		e.logger.ErrorContext(ctx, "Failed to send invitation notice", "invitationID", inv.ID, "error", err)
		return inv, fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}
	return inv, nil
}

// Resolve applies decision to a live invitation. It returns false, without
// changing anything, when the invitation is unknown, already resolved or
// expired. Accepting adds the invitee to the project's editors in the same
// atomic step as the status change.
func (e *Engine) Resolve(ctx context.Context, id string, decision Decision) (bool, error) {
	now := e.now()
	inv, err := e.store.GetInvitation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load invitation %s: %w", id, err)
	}
	if !inv.Live(now) {
		e.logger.DebugContext(ctx, "Invitation is not actionable", "invitationID", id, "status", inv.Status, "expiresAt", inv.ExpiresAt)
		return false, nil
	}

	switch decision {
	case Reject:
		err = e.store.UpdateInvitationStatus(ctx, id, models.StatusPending, models.StatusRejected, now)
	case Accept:
		err = e.store.Atomically(ctx, func(ctx context.Context, s store.Store) error {
			return e.accept(ctx, s, inv, now)
		})
	default:
		return false, fmt.Errorf("unknown decision %q", decision)
	}

	if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to %s invitation %s: %w", decision, id, err)
	}
	e.logger.InfoContext(ctx, "Resolved invitation", "invitationID", id, "decision", decision, "projectID", inv.ProjectID)
	return true, nil
}

// accept moves the invitation to accepted and grants the editor role.
// On stores without transactions a failed grant is undone by moving the
// invitation back to pending.
func (e *Engine) accept(ctx context.Context, s store.Store, inv models.Invitation, now time.Time) error {
	if err := s.UpdateInvitationStatus(ctx, inv.ID, models.StatusPending, models.StatusAccepted, now); err != nil {
		return err
	}
	if err := s.AddProjectEditor(ctx, inv.ProjectID, inv.InviteeEmail, now); err != nil {
		if rerr := s.UpdateInvitationStatus(ctx, inv.ID, models.StatusAccepted, models.StatusPending, time.Time{}); rerr != nil {
			e.logger.ErrorContext(ctx, "Failed to revert accepted invitation", "invitationID", inv.ID, "error", rerr)
		}
		return fmt.Errorf("failed to add editor: %w", err)
	}
	return nil
}

// Get returns the stored invitation. Use Invitation.Live to check expiry.
func (e *Engine) Get(ctx context.Context, id string) (models.Invitation, error) {
	return e.store.GetInvitation(ctx, id)
}

// ListPending returns the live invitations addressed to inviteeEmail.
func (e *Engine) ListPending(ctx context.Context, inviteeEmail string) ([]models.Invitation, error) {
	return e.listLive(ctx, store.InvitationFilter{InviteeEmail: strings.TrimSpace(inviteeEmail)})
}

// ListPendingForProject returns the live invitations of a project.
func (e *Engine) ListPendingForProject(ctx context.Context, projectID string) ([]models.Invitation, error) {
	return e.listLive(ctx, store.InvitationFilter{ProjectID: projectID})
}

func (e *Engine) listLive(ctx context.Context, f store.InvitationFilter) ([]models.Invitation, error) {
	f.Status = models.StatusPending
	f.ExpiresAfter = e.now()
	list, err := e.store.ListInvitations(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return list, nil
}

// Links returns the accept and reject URLs for an invitation.
func (e *Engine) Links(id string) (accept, reject string) {
	base := strings.TrimRight(e.cfg.BaseURL, "/") + "/api/projects/invitations/" + url.PathEscape(id)
	return base + "/accept", base + "/reject"
}
