package syncer

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"pwcal/internal/google"
	"pwcal/internal/ident"
	"pwcal/internal/models"
)

type fakeSource map[string][]google.RemoteEvent

func (f fakeSource) UpcomingEvents(_ context.Context, calendarID string, _ time.Time, _ int) ([]google.RemoteEvent, error) {
	events, ok := f[calendarID]
	if !ok {
		return nil, errors.New("unknown calendar")
	}
	return events, nil
}

type recordingCreator struct {
	drafts []models.EventDraft
}

func (r *recordingCreator) Create(_ context.Context, d models.EventDraft) (models.Event, error) {
	if d.Title == "" {
		return models.Event{}, errors.New("title is required")
	}
	r.drafts = append(r.drafts, d)
	return models.Event{ID: "local-" + d.Title}, nil
}

func TestImporter(t *testing.T) {
	src := fakeSource{
		"primary": {
			{ID: "g1", CalendarID: "primary", Title: "Standup", Start: t0, End: t0.Add(15 * time.Minute), Participants: []string{"a@x.com"}},
			{ID: "g2", CalendarID: "primary", Title: "", Start: t0, End: t0},
		},
		"team": {
			{ID: "g1", CalendarID: "team", Title: "Retro", Start: t0, End: t0.Add(time.Hour), AllDay: true},
		},
	}
	creator := &recordingCreator{}
	cfg := ImporterConfig{
		ProjectID:   "p1",
		Actor:       "bot@x.com",
		CalendarIDs: []string{"primary", "team", "missing"},
		StatePath:   filepath.Join(t.TempDir(), "import-state.json"),
		Clock:       ident.Fixed(t0),
	}

	im, err := NewImporter(slog.Default(), []Source{src}, creator, cfg)
	if err != nil {
		t.Fatalf("NewImporter failed: %v", err)
	}
	n, err := im.Import(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("Import = %d, %v; want 2", n, err)
	}
	if d := creator.drafts[0]; d.ProjectID != "p1" || d.CreatorEmail != "bot@x.com" || d.Title != "Standup" {
		t.Errorf("Unexpected draft %+v", d)
	}
	if !creator.drafts[1].AllDay {
		t.Error("All-day flag was not carried over")
	}

	// Same remote events again, from a fresh importer reading the saved state.
	im, err = NewImporter(slog.Default(), []Source{src}, creator, cfg)
	if err != nil {
		t.Fatalf("NewImporter failed: %v", err)
	}
	if n, _ := im.Import(context.Background()); n != 0 {
		t.Errorf("Re-import created %d events", n)
	}
	if len(creator.drafts) != 2 {
		t.Errorf("Expected 2 drafts in total, got %d", len(creator.drafts))
	}
}
