// Package event creates, updates and soft-deletes project events while
// keeping each event's audit trail.
package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pwcal/internal/ident"
	"pwcal/internal/models"
	"pwcal/internal/store"
)

var (
	// ErrInvalidTimeRange is returned when an event would start after it ends.
	ErrInvalidTimeRange = errors.New("event starts after it ends")
	// ErrInvalidEvent is returned for drafts or patches with a blank title.
	ErrInvalidEvent = errors.New("invalid event")
)

const (
	createdDetails = "Created this event"
	deletedDetails = "Deleted this event"
)

// Engine owns the event mutation pipeline.
type Engine struct {
	store    store.Store
	now      ident.Clock
	timezone string
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(c ident.Clock) Option {
	return func(e *Engine) { e.now = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine returns an engine that records timezone on every log entry.
func NewEngine(s store.Store, timezone string, opts ...Option) *Engine {
	if timezone == "" {
		timezone = "UTC"
	}
	e := &Engine{
		store:    s,
		now:      ident.Now,
		timezone: timezone,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Create stores a new event with its initial create log entry.
func (e *Engine) Create(ctx context.Context, draft models.EventDraft) (models.Event, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return models.Event{}, fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	if draft.Start.After(draft.End) {
		return models.Event{}, ErrInvalidTimeRange
	}
	if _, err := e.store.GetProject(ctx, draft.ProjectID); err != nil {
		return models.Event{}, fmt.Errorf("failed to load project %s: %w", draft.ProjectID, err)
	}

	now := e.now()
	ev := models.Event{
		ID:           ident.New(),
		ProjectID:    draft.ProjectID,
		Title:        draft.Title,
		Description:  draft.Description,
		Participants: dedupe(draft.Participants),
		Start:        draft.Start.UTC(),
		End:          draft.End.UTC(),
		AllDay:       draft.AllDay,
		Logs:         []models.EventLog{e.entry(now, draft.CreatorEmail, models.ActionCreate, createdDetails)},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.CreateEvent(ctx, ev); err != nil {
		return models.Event{}, fmt.Errorf("failed to create event: %w", err)
	}
	e.logger.InfoContext(ctx, "Created event", "eventID", ev.ID, "projectID", ev.ProjectID, "user", draft.CreatorEmail)
	return ev, nil
}

// Update applies patch to a live event and appends one update log entry
// describing the change. It returns false when the event is missing or
// deleted. A patch that changes nothing succeeds without writing.
func (e *Engine) Update(ctx context.Context, id string, patch models.EventPatch, actor string) (bool, error) {
	old, ok, err := e.live(ctx, id)
	if err != nil || !ok {
		return false, err
	}

	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return false, fmt.Errorf("%w: title cannot be blank", ErrInvalidEvent)
	}
	if patch.Participants != nil {
		p := dedupe(*patch.Participants)
		patch.Participants = &p
	}
	if merged := patch.Apply(old); merged.Start.After(merged.End) {
		return false, ErrInvalidTimeRange
	}

	changes := Diff(old, patch)
	if len(changes) == 0 {
		e.logger.DebugContext(ctx, "Update changes nothing, skipping write", "eventID", id)
		return true, nil
	}

	entry := e.entry(e.now(), actor, models.ActionUpdate, Details(changes))
	if err := e.store.UpdateEvent(ctx, id, patch, entry); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to update event %s: %w", id, err)
	}
	e.logger.InfoContext(ctx, "Updated event", "eventID", id, "user", actor, "details", entry.Details)
	return true, nil
}

// SoftDelete hides a live event from listings and exports. The record and
// its log stay readable through Get.
func (e *Engine) SoftDelete(ctx context.Context, id string, actor string) (bool, error) {
	_, ok, err := e.live(ctx, id)
	if err != nil || !ok {
		return false, err
	}

	entry := e.entry(e.now(), actor, models.ActionDelete, deletedDetails)
	if err := e.store.SoftDeleteEvent(ctx, id, entry); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete event %s: %w", id, err)
	}
	e.logger.InfoContext(ctx, "Deleted event", "eventID", id, "user", actor)
	return true, nil
}

// Get returns an event by ID, including soft-deleted ones.
func (e *Engine) Get(ctx context.Context, id string) (models.Event, error) {
	return e.store.GetEvent(ctx, id)
}

// ListByProject returns the project's live events ordered by start time.
func (e *Engine) ListByProject(ctx context.Context, projectID string) ([]models.Event, error) {
	events, err := e.store.ListProjectEvents(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for project %s: %w", projectID, err)
	}
	return events, nil
}

// live loads an event and reports whether it exists and is not deleted.
func (e *Engine) live(ctx context.Context, id string) (models.Event, bool, error) {
	ev, err := e.store.GetEvent(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Event{}, false, nil
	}
	if err != nil {
		return models.Event{}, false, fmt.Errorf("failed to load event %s: %w", id, err)
	}
	if ev.Deleted {
		return models.Event{}, false, nil
	}
	return ev, true, nil
}

func (e *Engine) entry(now time.Time, user string, action models.LogAction, details string) models.EventLog {
	return models.EventLog{
		Timestamp: now,
		Timezone:  e.timezone,
		User:      user,
		Action:    action,
		Details:   details,
	}
}

// dedupe drops blank and repeated emails, keeping first-seen order.
func dedupe(emails []string) []string {
	out := make([]string, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}
