package event

import (
	"testing"
	"time"

	"pwcal/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestDiff(t *testing.T) {
	start := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	old := models.Event{
		Title:        "Kickoff",
		Participants: []string{"a@x.com", "b@x.com"},
		Start:        start,
		End:          start.Add(time.Hour),
	}
	withDesc := old
	withDesc.Description = "agenda"

	tests := []struct {
		name  string
		old   models.Event
		patch models.EventPatch
		want  string
	}{
		{"title", old, models.EventPatch{Title: ptr("New")}, `Changed title from "Kickoff" to "New"`},
		{"title kept verbatim", models.Event{Title: `Say "hi"`}, models.EventPatch{Title: ptr("Café\tnight")}, "Changed title from \"Say \"hi\"\" to \"Café\tnight\""},
		{"same title", old, models.EventPatch{Title: ptr("Kickoff")}, ""},
		{"description added", old, models.EventPatch{Description: ptr("agenda")}, "Added description"},
		{"description removed", withDesc, models.EventPatch{Description: ptr("")}, "Removed description"},
		{"description updated", withDesc, models.EventPatch{Description: ptr("minutes")}, "Updated description"},
		{"start", old, models.EventPatch{Start: ptr(start.Add(-time.Hour))}, "Changed start time"},
		{"same start other zone", old, models.EventPatch{Start: ptr(start.In(time.FixedZone("CST", 8*3600)))}, ""},
		{"end", old, models.EventPatch{End: ptr(start.Add(2 * time.Hour))}, "Changed end time"},
		{"mark all-day", old, models.EventPatch{AllDay: ptr(true)}, "Marked as all-day"},
		{"participants", old, models.EventPatch{Participants: ptr([]string{"b@x.com", "c@x.com", "d@x.com"})}, "Added participants: c@x.com, d@x.com；Removed participants: a@x.com"},
		{
			"combined",
			old,
			models.EventPatch{Title: ptr("New"), End: ptr(start.Add(2 * time.Hour)), AllDay: ptr(false)},
			`Changed title from "Kickoff" to "New"；Changed end time`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Details(Diff(tt.old, tt.patch)); got != tt.want {
				t.Errorf("Details(Diff()) = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDiffUnmarkAllDay(t *testing.T) {
	changes := Diff(models.Event{AllDay: true}, models.EventPatch{AllDay: ptr(false)})
	if len(changes) != 1 || changes[0].Kind != UnmarkedAllDay {
		t.Fatalf("Unexpected changes %+v", changes)
	}
}

func TestNormalizeAllDay(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		t.Skipf("zoneinfo unavailable: %v", err)
	}
	start := time.Date(2025, 3, 1, 15, 30, 0, 0, loc)
	end := time.Date(2025, 3, 2, 8, 0, 0, 0, loc)

	s, e := NormalizeAllDay(start, end, loc)
	if want := time.Date(2025, 2, 28, 16, 0, 0, 0, time.UTC); !s.Equal(want) || s.Location() != time.UTC {
		t.Errorf("start = %v, want %v in UTC", s, want)
	}
	if want := time.Date(2025, 3, 2, 15, 59, 59, 999000000, time.UTC); !e.Equal(want) {
		t.Errorf("end = %v, want %v", e, want)
	}
}
