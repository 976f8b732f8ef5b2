package caldav

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-ical"

	"pwcal/internal/models"
)

type fakeServer struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	switch r.Method {
	case http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		f.bodies[r.URL.Path] = string(b)
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestPutAndRemoveEvent(t *testing.T) {
	fake := &fakeServer{bodies: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c, err := NewClient(context.Background(), nil, Config{Endpoint: srv.URL + "/", Calendar: "/calendars/team/"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	now := time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)
	ev := models.Event{
		ID:           "e1",
		Title:        "Kickoff",
		Participants: []string{"a@x.com"},
		Start:        time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
		End:          time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC),
		UpdatedAt:    now,
	}
	if err := c.PutEvent(context.Background(), ev, now); err != nil {
		t.Fatalf("PutEvent failed: %v", err)
	}
	if err := c.RemoveEvent(context.Background(), "e1"); err != nil {
		t.Fatalf("RemoveEvent failed: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	want := []string{"PUT /calendars/team/e1.ics", "DELETE /calendars/team/e1.ics"}
	if strings.Join(fake.requests, ";") != strings.Join(want, ";") {
		t.Errorf("Requests = %v, want %v", fake.requests, want)
	}

	cal, err := ical.NewDecoder(strings.NewReader(fake.bodies["/calendars/team/e1.ics"])).Decode()
	if err != nil {
		t.Fatalf("Uploaded body does not decode: %v", err)
	}
	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if uid, _ := events[0].Props.Text(ical.PropUID); uid != "e1" {
		t.Errorf("UID = %q", uid)
	}
}

func TestRemoveEventReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), nil, Config{Endpoint: srv.URL + "/", Calendar: "/cal/"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if err := c.RemoveEvent(context.Background(), "e1"); err == nil {
		t.Fatal("Expected error from failing server")
	}
}
