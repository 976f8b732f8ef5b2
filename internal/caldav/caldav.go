// Package caldav publishes events to a remote CalDAV calendar.
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"pwcal/internal/calendar"
	"pwcal/internal/models"
)

// DefaultEndpoint is used when no endpoint is configured.
const DefaultEndpoint = "https://caldav.icloud.com/"

// basicAuthTransport adds Basic Auth and a User-Agent to each request.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "pwcal/1.0")
	return t.Transport.RoundTrip(req)
}

// Client writes event objects into one calendar collection.
type Client struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	calendarPath string
}

// Config describes the remote calendar.
type Config struct {
	Endpoint string
	Username string
	Password string
	// Calendar is a display name to discover, or a collection path when it
	// starts with "/".
	Calendar string
}

// NewClient connects to the server and resolves the target calendar.
func NewClient(ctx context.Context, logger *slog.Logger, cfg Config) (*Client, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			Username:  cfg.Username,
			Password:  cfg.Password,
			Transport: http.DefaultTransport,
		},
		Timeout: time.Minute,
	}

	c, err := newClient(httpClient, endpoint, logger)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(cfg.Calendar, "/") {
		c.calendarPath = cfg.Calendar
		return c, nil
	}

	c.logger.Info("Finding CalDAV calendar", "calendarName", cfg.Calendar)
	calendarPath, err := c.findCalendar(ctx, cfg.Calendar)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", cfg.Calendar, err)
	}
	c.calendarPath = calendarPath
	c.logger.Info("Found CalDAV calendar", "path", calendarPath)
	return c, nil
}

func newClient(httpClient webdav.HTTPClient, endpoint string, logger *slog.Logger) (*Client, error) {
	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{caldavClient: caldavClient, webdavClient: webdavClient, logger: logger}, nil
}

// PutEvent creates or replaces the event's calendar object. The object name
// is the event ID, which doubles as the iCalendar UID.
func (c *Client) PutEvent(ctx context.Context, ev models.Event, now time.Time) error {
	c.logger.Debug("Publishing event", "eventID", ev.ID, "title", ev.Title)

	writer, err := c.webdavClient.Create(ctx, c.objectPath(ev.ID))
	if err != nil {
		return fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}
	if err := ical.NewEncoder(writer).Encode(calendar.Calendar(ev, now)); err != nil {
		writer.Close()
		return fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to upload event: %w", err)
	}
	return nil
}

// RemoveEvent deletes the calendar object for eventID.
func (c *Client) RemoveEvent(ctx context.Context, eventID string) error {
	if err := c.webdavClient.RemoveAll(ctx, c.objectPath(eventID)); err != nil {
		return fmt.Errorf("failed to remove event %s: %w", eventID, err)
	}
	return nil
}

func (c *Client) objectPath(eventID string) string {
	return path.Join(c.calendarPath, eventID+".ics")
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func (c *Client) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}
	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
