package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"pwcal/internal/calendar"
	"pwcal/internal/collab"
	"pwcal/internal/event"
	"pwcal/internal/ident"
	"pwcal/internal/invitation"
	"pwcal/internal/models"
	"pwcal/internal/notify"
	"pwcal/internal/store/memory"
)

var t0 = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

type captured struct{ notices []notify.InvitationNotice }

func (c *captured) NotifyInvitation(_ context.Context, n notify.InvitationNotice) error {
	c.notices = append(c.notices, n)
	return nil
}

func setupTestRouter(t *testing.T) (*gin.Engine, *Handler, *captured) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := memory.NewMemStore(nil, nil)
	clock := ident.Fixed(t0)
	n := &captured{}
	invites := invitation.NewEngine(s, n, invitation.Config{BaseURL: "https://cal.example.com"}, clock, nil)
	events := event.NewEngine(s, "UTC", event.WithClock(clock))
	h := &Handler{
		Collab:       collab.NewCoordinator(s, invites, clock, nil),
		Events:       events,
		Calendar:     calendar.NewExporter(events, clock),
		RedirectBase: "https://app.example.com/#/projects",
	}
	return NewRouter(h), h, n
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type response[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) response[T] {
	t.Helper()
	var out response[T]
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Invalid JSON body %q: %v", w.Body.String(), err)
	}
	return out
}

func createProject(t *testing.T, r http.Handler) models.Project {
	t.Helper()
	w := do(r, "POST", "/api/projects", map[string]any{"name": "Launch", "creatorEmail": "a@x.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	return decode[models.Project](t, w).Data
}

func TestProjectRoutes(t *testing.T) {
	r, _, _ := setupTestRouter(t)
	p := createProject(t, r)

	w := do(r, "GET", "/api/projects/"+p.ID, nil)
	if w.Code != http.StatusOK || decode[models.Project](t, w).Data.Name != "Launch" {
		t.Errorf("GET project: %d %s", w.Code, w.Body.String())
	}

	w = do(r, "PUT", "/api/projects/"+p.ID, map[string]any{"location": "Taipei"})
	if w.Code != http.StatusOK || decode[models.Project](t, w).Data.Location != "Taipei" {
		t.Errorf("PUT project: %d %s", w.Code, w.Body.String())
	}

	w = do(r, "GET", "/api/user/projects?email=a@x.com", nil)
	if got := decode[[]models.Project](t, w).Data; len(got) != 1 {
		t.Errorf("Expected 1 project, got %v", got)
	}
	w = do(r, "GET", "/api/user/projects?email=z@x.com", nil)
	if body := w.Body.String(); !strings.Contains(body, `"data":[]`) {
		t.Errorf("Expected empty list, got %s", body)
	}

	w = do(r, "DELETE", "/api/projects/"+p.ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("DELETE project: %d", w.Code)
	}
	w = do(r, "GET", "/api/projects/"+p.ID, nil)
	if w.Code != http.StatusNotFound || decode[any](t, w).Success {
		t.Errorf("Expected 404 envelope, got %d %s", w.Code, w.Body.String())
	}
}

func TestInvitationLinks(t *testing.T) {
	r, _, n := setupTestRouter(t)
	p := createProject(t, r)

	w := do(r, "POST", "/api/projects/"+p.ID+"/invite", map[string]any{"inviteeEmail": "b@x.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("Invite: %d %s", w.Code, w.Body.String())
	}
	inv := decode[models.Invitation](t, w).Data

	w = do(r, "POST", "/api/projects/"+p.ID+"/invite", map[string]any{"inviteeEmail": "b@x.com"})
	if w.Code != http.StatusConflict {
		t.Errorf("Duplicate invite: expected 409, got %d", w.Code)
	}

	if len(n.notices) != 1 {
		t.Fatalf("Expected one notice, got %d", len(n.notices))
	}
	acceptPath := strings.TrimPrefix(n.notices[0].AcceptURL, "https://cal.example.com")

	w = do(r, "GET", acceptPath, nil)
	if w.Code != http.StatusFound {
		t.Fatalf("Accept link: expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "https://app.example.com/#/projects?invitation=accepted" {
		t.Errorf("Unexpected redirect %q", loc)
	}

	w = do(r, "GET", "/api/projects/invitations/"+inv.ID+"/reject", nil)
	if loc := w.Header().Get("Location"); !strings.HasSuffix(loc, "?invitation=failed") {
		t.Errorf("Reject after accept should fail, redirected to %q", loc)
	}

	w = do(r, "GET", "/api/projects/"+p.ID, nil)
	if got := decode[models.Project](t, w).Data; !got.IsEditor("b@x.com") {
		t.Errorf("Editors = %v", got.Editors)
	}
}

func TestHandleInvitation(t *testing.T) {
	r, _, _ := setupTestRouter(t)
	p := createProject(t, r)
	inv := decode[models.Invitation](t, do(r, "POST", "/api/projects/"+p.ID+"/invite", map[string]any{"inviteeEmail": "b@x.com"})).Data

	w := do(r, "GET", "/api/user/invitations?email=b@x.com", nil)
	if got := decode[[]models.Invitation](t, w).Data; len(got) != 1 || got[0].ID != inv.ID {
		t.Errorf("User invitations = %+v", got)
	}

	w = do(r, "POST", "/api/invitations/"+inv.ID+"/handle", map[string]any{"accept": false})
	if w.Code != http.StatusOK {
		t.Fatalf("Handle: %d %s", w.Code, w.Body.String())
	}
	w = do(r, "POST", "/api/invitations/"+inv.ID+"/handle", map[string]any{"accept": true})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Second handle: expected 400, got %d", w.Code)
	}
	w = do(r, "POST", "/api/invitations/"+inv.ID+"/handle", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Missing accept: expected 400, got %d", w.Code)
	}
}

func TestReconcileEditorsRoute(t *testing.T) {
	r, _, n := setupTestRouter(t)
	p := createProject(t, r)

	w := do(r, "PUT", "/api/projects/"+p.ID+"/editors", map[string]any{"editors": []string{"a@x.com", "b@x.com"}})
	if w.Code != http.StatusOK {
		t.Fatalf("Reconcile: %d %s", w.Code, w.Body.String())
	}
	got := decode[collab.Reconciliation](t, w).Data
	if len(got.Invited) != 1 || got.Invited[0].InviteeEmail != "b@x.com" || len(n.notices) != 1 {
		t.Errorf("Unexpected reconciliation %+v", got)
	}

	w = do(r, "GET", "/api/projects/"+p.ID+"/invitations", nil)
	if list := decode[[]models.Invitation](t, w).Data; len(list) != 1 {
		t.Errorf("Project invitations = %+v", list)
	}
}

func TestEventRoutesAndFeed(t *testing.T) {
	r, _, _ := setupTestRouter(t)
	p := createProject(t, r)

	w := do(r, "POST", "/api/events", map[string]any{
		"projectId":    p.ID,
		"title":        "Kickoff",
		"participants": []string{"a@x.com"},
		"startTime":    "2025-01-10T09:00:00Z",
		"endTime":      "2025-01-10T10:00:00Z",
		"creatorEmail": "a@x.com",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Create event: %d %s", w.Code, w.Body.String())
	}
	ev := decode[models.Event](t, w).Data

	w = do(r, "POST", "/api/events", map[string]any{
		"projectId":    p.ID,
		"title":        "Backwards",
		"startTime":    "2025-01-10T10:00:00Z",
		"endTime":      "2025-01-10T09:00:00Z",
		"creatorEmail": "a@x.com",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Invalid range: expected 400, got %d", w.Code)
	}

	w = do(r, "PUT", "/api/events/"+ev.ID, map[string]any{"title": "New", "userEmail": "b@x.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("Update event: %d %s", w.Code, w.Body.String())
	}
	got := decode[models.Event](t, do(r, "GET", "/api/events/"+ev.ID, nil)).Data
	if len(got.Logs) != 2 || got.Logs[1].Details != `Changed title from "Kickoff" to "New"` {
		t.Errorf("Unexpected logs %+v", got.Logs)
	}

	w = do(r, "GET", "/api/projects/"+p.ID+"/calendar.ics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Feed: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != "attachment; filename=calendar.ics" {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.Contains(w.Body.String(), "UID:"+ev.ID+"\r\n") {
		t.Errorf("Feed missing event:\n%s", w.Body.String())
	}

	w = do(r, "DELETE", "/api/events/"+ev.ID, map[string]any{"userEmail": "a@x.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("Delete event: %d %s", w.Code, w.Body.String())
	}
	w = do(r, "DELETE", "/api/events/"+ev.ID, map[string]any{"userEmail": "a@x.com"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Second delete: expected 404, got %d", w.Code)
	}
	w = do(r, "GET", "/api/projects/"+p.ID+"/events", nil)
	if list := decode[[]models.Event](t, w).Data; len(list) != 0 {
		t.Errorf("Deleted event still listed: %+v", list)
	}
	w = do(r, "GET", "/api/projects/"+p.ID+"/calendar.ics", nil)
	if strings.Contains(w.Body.String(), "BEGIN:VEVENT") {
		t.Errorf("Deleted event still exported:\n%s", w.Body.String())
	}
}

func TestMarkAllDayNormalizesStoredBounds(t *testing.T) {
	r, h, _ := setupTestRouter(t)
	h.Location = time.FixedZone("CST", 8*3600)
	p := createProject(t, r)

	w := do(r, "POST", "/api/events", map[string]any{
		"projectId":    p.ID,
		"title":        "Review",
		"startTime":    "2025-01-10T09:00:00Z",
		"endTime":      "2025-01-10T10:00:00Z",
		"creatorEmail": "a@x.com",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Create event: %d %s", w.Code, w.Body.String())
	}
	ev := decode[models.Event](t, w).Data

	w = do(r, "PUT", "/api/events/"+ev.ID, map[string]any{"isAllDay": true, "userEmail": "a@x.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("Update event: %d %s", w.Code, w.Body.String())
	}
	got := decode[models.Event](t, do(r, "GET", "/api/events/"+ev.ID, nil)).Data
	if !got.AllDay {
		t.Fatalf("Expected event to be all-day: %+v", got)
	}
	if !got.Start.Equal(time.Date(2025, 1, 9, 16, 0, 0, 0, time.UTC)) {
		t.Errorf("Start = %v", got.Start)
	}
	if !got.End.Equal(time.Date(2025, 1, 10, 15, 59, 59, 999000000, time.UTC)) {
		t.Errorf("End = %v", got.End)
	}
	want := "Changed start time；Changed end time；Marked as all-day"
	if last := got.Logs[len(got.Logs)-1]; last.Details != want {
		t.Errorf("Log details = %q, want %q", last.Details, want)
	}
}

func TestCreateAllDayEventNormalizesBounds(t *testing.T) {
	r, h, _ := setupTestRouter(t)
	h.Location = time.FixedZone("CST", 8*3600)
	p := createProject(t, r)

	w := do(r, "POST", "/api/events", map[string]any{
		"projectId":    p.ID,
		"title":        "Offsite",
		"startTime":    "2025-03-01T10:00:00+08:00",
		"endTime":      "2025-03-01T12:00:00+08:00",
		"isAllDay":     true,
		"creatorEmail": "a@x.com",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Create event: %d %s", w.Code, w.Body.String())
	}
	ev := decode[models.Event](t, w).Data
	if !ev.Start.Equal(time.Date(2025, 2, 28, 16, 0, 0, 0, time.UTC)) {
		t.Errorf("Start = %v", ev.Start)
	}
	if !ev.End.Equal(time.Date(2025, 3, 1, 15, 59, 59, 999000000, time.UTC)) {
		t.Errorf("End = %v", ev.End)
	}
}
