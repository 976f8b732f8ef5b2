// Package google reads events from Google Calendar for import into projects.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"pwcal/internal/event"
)

const (
	credentialsFile = "credentials.json"
	dateLayout      = "2006-01-02"
)

// RemoteEvent is a Google Calendar event reduced to what a project event holds.
// All-day bounds are already stretched to whole local days.
type RemoteEvent struct {
	ID           string
	CalendarID   string
	Title        string
	Description  string
	Participants []string
	Start        time.Time
	End          time.Time
	AllDay       bool
}

// CalendarClient provides a client for interacting with the Google Calendar API.
type CalendarClient struct {
	service *calendar.Service
	logger  *slog.Logger
	loc     *time.Location
}

// NewClient creates a Google Calendar client for one authenticated account.
// The account's token is read from token-<accountName>.json in tokenDir.
// All-day events are interpreted in loc.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, tokenDir, accountName string, loc *time.Location) (*CalendarClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	tokenFile := TokenPath(tokenDir, accountName)
	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth' command first", accountName, err)
	}

	service, err := calendar.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CalendarClient{service: service, logger: logger, loc: loc}, nil
}

// UpcomingEvents fetches events starting within days of from.
func (c *CalendarClient) UpcomingEvents(ctx context.Context, calendarID string, from time.Time, days int) ([]RemoteEvent, error) {
	c.logger.Debug("Fetching upcoming events", "calendarID", calendarID, "days", days)
	tmin := from.UTC().Format(time.RFC3339)
	tmax := from.UTC().Add(time.Duration(days) * 24 * time.Hour).Format(time.RFC3339)

	events, err := c.service.Events.List(calendarID).
		Context(ctx).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(tmin).
		TimeMax(tmax).
		OrderBy("startTime").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	c.logger.Info("Fetched events from Google Calendar", "count", len(events.Items), "calendarID", calendarID)
	return toRemoteEvents(c.logger, events.Items, calendarID, c.loc), nil
}

// toRemoteEvents converts Google events, skipping cancelled or unparsable ones.
func toRemoteEvents(logger *slog.Logger, items []*calendar.Event, calendarID string, loc *time.Location) []RemoteEvent {
	var out []RemoteEvent
	for _, item := range items {
		if item.Status == "cancelled" || item.Start == nil || item.End == nil {
			continue
		}
		ev, err := toRemoteEvent(item, loc)
		if err != nil {
			logger.Warn("Skipping Google event", "eventID", item.Id, "title", item.Summary, "error", err)
			continue
		}
		ev.CalendarID = calendarID
		out = append(out, ev)
	}
	return out
}

func toRemoteEvent(item *calendar.Event, loc *time.Location) (RemoteEvent, error) {
	ev := RemoteEvent{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
	}
	for _, a := range item.Attendees {
		if a.Email != "" {
			ev.Participants = append(ev.Participants, a.Email)
		}
	}

	if item.Start.DateTime == "" {
		// All-day: Google's end date is exclusive.
		start, err := time.ParseInLocation(dateLayout, item.Start.Date, loc)
		if err != nil {
			return RemoteEvent{}, fmt.Errorf("invalid start date: %w", err)
		}
		end, err := time.ParseInLocation(dateLayout, item.End.Date, loc)
		if err != nil {
			return RemoteEvent{}, fmt.Errorf("invalid end date: %w", err)
		}
		if end.After(start) {
			end = end.AddDate(0, 0, -1)
		}
		ev.Start, ev.End = event.NormalizeAllDay(start, end, loc)
		ev.AllDay = true
		return ev, nil
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return RemoteEvent{}, fmt.Errorf("invalid start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return RemoteEvent{}, fmt.Errorf("invalid end time: %w", err)
	}
	ev.Start, ev.End = start.UTC(), end.UTC()
	return ev, nil
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret)
}

// getOAuthConfig prefers explicit credentials over a local credentials.json file.
func getOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in the working directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob"
	return config, nil
}

// TokenFromWeb exchanges an authorization code for a token.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// TokenPath returns where the token for accountName is kept.
func TokenPath(dir, accountName string) string {
	return filepath.Join(dir, "token-"+accountName+".json")
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// GetTokenAccounts lists the accounts with a saved token in dir.
func GetTokenAccounts(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var accounts []string
	for _, file := range files {
		if strings.HasPrefix(file.Name(), "token-") && strings.HasSuffix(file.Name(), ".json") {
			accountName := strings.TrimSuffix(strings.TrimPrefix(file.Name(), "token-"), ".json")
			accounts = append(accounts, accountName)
		}
	}
	return accounts, nil
}
