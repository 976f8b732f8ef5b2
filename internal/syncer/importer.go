package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pwcal/internal/google"
	"pwcal/internal/ident"
	"pwcal/internal/models"
)

// Source lists upcoming events of one external calendar.
type Source interface {
	UpcomingEvents(ctx context.Context, calendarID string, from time.Time, days int) ([]google.RemoteEvent, error)
}

// EventCreator is the create path of the event engine.
type EventCreator interface {
	Create(ctx context.Context, draft models.EventDraft) (models.Event, error)
}

// ImportState maps "<calendarID>/<remote event ID>" to the created event ID.
type ImportState map[string]string

// ImporterConfig configures an Importer.
type ImporterConfig struct {
	ProjectID   string
	Actor       string // Recorded as the creator of imported events
	CalendarIDs []string
	Days        int
	StatePath   string
	DryRun      bool
	Clock       ident.Clock
}

// Importer creates project events from external calendars. Each remote
// event is imported once; later changes on the remote side are ignored.
type Importer struct {
	logger  *slog.Logger
	sources []Source
	events  EventCreator
	cfg     ImporterConfig
	state   ImportState
	now     ident.Clock
}

// NewImporter loads previous state from cfg.StatePath.
func NewImporter(logger *slog.Logger, sources []Source, events EventCreator, cfg ImporterConfig) (*Importer, error) {
	state, err := loadState[ImportState](cfg.StatePath)
	if err != nil {
		if !isNotExist(err) {
			return nil, fmt.Errorf("failed to load import state: %w", err)
		}
		logger.Info("No import state file found, starting fresh.", "file", cfg.StatePath)
	}
	if state == nil {
		state = make(ImportState)
	}
	if cfg.Days <= 0 {
		cfg.Days = 7
	}
	clock := cfg.Clock
	if clock == nil {
		clock = ident.Now
	}
	return &Importer{logger: logger, sources: sources, events: events, cfg: cfg, state: state, now: clock}, nil
}

// Import runs one cycle and returns how many events were created.
func (im *Importer) Import(ctx context.Context) (int, error) {
	im.logger.Info("Starting import cycle.", "projectID", im.cfg.ProjectID)

	remote := im.fetchAll(ctx)
	im.logger.Info("Fetched all remote events.", "count", len(remote))

	created := 0
	for _, ev := range remote {
		key := ev.CalendarID + "/" + ev.ID
		if _, done := im.state[key]; done {
			im.logger.Debug("Event already imported, skipping.", "title", ev.Title, "id", ev.ID)
			continue
		}
		if im.dryRun() {
			im.logger.Info("[DRY RUN] Would import event", "title", ev.Title, "startTime", ev.Start)
			continue
		}
		out, err := im.events.Create(ctx, models.EventDraft{
			ProjectID:    im.cfg.ProjectID,
			Title:        ev.Title,
			Description:  ev.Description,
			Participants: ev.Participants,
			Start:        ev.Start,
			End:          ev.End,
			AllDay:       ev.AllDay,
			CreatorEmail: im.cfg.Actor,
		})
		if err != nil {
			im.logger.Error("Failed to import event", "title", ev.Title, "error", err)
			continue
		}
		im.state[key] = out.ID
		created++
	}

	if !im.dryRun() {
		if err := saveState(im.cfg.StatePath, im.state); err != nil {
			im.logger.Error("Failed to save import state", "error", err)
		}
	}
	im.logger.Info("Import cycle finished.", "created", created)
	return created, nil
}

func (im *Importer) fetchAll(ctx context.Context) []google.RemoteEvent {
	var all []google.RemoteEvent
	from := im.now()
	for _, src := range im.sources {
		for _, calID := range im.cfg.CalendarIDs {
			events, err := src.UpcomingEvents(ctx, calID, from, im.cfg.Days)
			if err != nil {
				im.logger.Error("Could not fetch events for a calendar", "calendarID", calID, "error", err)
				continue
			}
			all = append(all, events...)
		}
	}
	return all
}

func (im *Importer) dryRun() bool {
	return im.cfg.DryRun
}
