package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pwcal/internal/ident"
	"pwcal/internal/models"
)

// Target is a remote calendar that accepts whole events.
type Target interface {
	PutEvent(ctx context.Context, ev models.Event, now time.Time) error
	RemoveEvent(ctx context.Context, eventID string) error
}

// EventLister is the read path of the event engine.
type EventLister interface {
	ListByProject(ctx context.Context, projectID string) ([]models.Event, error)
}

// PublishState maps each published event ID to the UpdatedAt that was pushed.
type PublishState map[string]time.Time

// Publisher mirrors one project's live events into a Target.
type Publisher struct {
	logger    *slog.Logger
	events    EventLister
	target    Target
	projectID string
	statePath string
	state     PublishState
	dryRun    bool
	now       ident.Clock
}

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	ProjectID string
	StatePath string
	DryRun    bool
	Clock     ident.Clock
}

// NewPublisher loads previous state from cfg.StatePath, starting fresh when
// the file does not exist.
func NewPublisher(logger *slog.Logger, events EventLister, target Target, cfg PublisherConfig) (*Publisher, error) {
	state, err := loadState[PublishState](cfg.StatePath)
	if err != nil {
		if !isNotExist(err) {
			return nil, fmt.Errorf("failed to load publish state: %w", err)
		}
		logger.Info("No publish state file found, starting fresh.", "file", cfg.StatePath)
	}
	if state == nil {
		state = make(PublishState)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = ident.Now
	}
	return &Publisher{
		logger:    logger,
		events:    events,
		target:    target,
		projectID: cfg.ProjectID,
		statePath: cfg.StatePath,
		state:     state,
		dryRun:    cfg.DryRun,
		now:       clock,
	}, nil
}

// PublishResult counts what one cycle did.
type PublishResult struct {
	Put     int
	Removed int
	Failed  int
}

// Sync pushes new and changed events and removes events that are no longer
// live. A failing event is logged and retried on the next cycle.
func (p *Publisher) Sync(ctx context.Context) (PublishResult, error) {
	var res PublishResult
	p.logger.Info("Starting publish cycle.", "projectID", p.projectID)

	events, err := p.events.ListByProject(ctx, p.projectID)
	if err != nil {
		return res, fmt.Errorf("failed to list project events: %w", err)
	}

	now := p.now()
	live := make(map[string]struct{}, len(events))
	for _, ev := range events {
		live[ev.ID] = struct{}{}
		if pushed, ok := p.state[ev.ID]; ok && pushed.Equal(ev.UpdatedAt) {
			p.logger.Debug("Event unchanged, skipping.", "eventID", ev.ID)
			continue
		}
		if p.dryRun {
			p.logger.Info("[DRY RUN] Would publish event", "eventID", ev.ID, "title", ev.Title, "startTime", ev.Start)
			res.Put++
			continue
		}
		if err := p.target.PutEvent(ctx, ev, now); err != nil {
			p.logger.Error("Failed to publish event", "eventID", ev.ID, "title", ev.Title, "error", err)
			res.Failed++
			continue
		}
		p.state[ev.ID] = ev.UpdatedAt
		res.Put++
	}

	for id := range p.state {
		if _, ok := live[id]; ok {
			continue
		}
		if p.dryRun {
			p.logger.Info("[DRY RUN] Would remove event", "eventID", id)
			res.Removed++
			continue
		}
		if err := p.target.RemoveEvent(ctx, id); err != nil {
			p.logger.Error("Failed to remove event", "eventID", id, "error", err)
			res.Failed++
			continue
		}
		delete(p.state, id)
		res.Removed++
	}

	if !p.dryRun {
		if err := saveState(p.statePath, p.state); err != nil {
			p.logger.Error("Failed to save publish state", "error", err)
		}
	}

	p.logger.Info("Publish cycle finished.", "put", res.Put, "removed", res.Removed, "failed", res.Failed)
	return res, nil
}
