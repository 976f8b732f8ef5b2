// Package config reads process settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// Config is the full process configuration.
type Config struct {
	Store  StoreConfig
	SMTP   SMTPConfig
	CalDAV CalDAVConfig
	Google GoogleConfig
	HTTP   HTTPConfig

	Timezone      string        `env:"PW_TIMEZONE" envDefault:"UTC"`
	InvitationTTL time.Duration `env:"INVITATION_TTL" envDefault:"168h"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
}

type StoreConfig struct {
	Backend           string `env:"PW_STORE" envDefault:"memory"`
	DataFile          string `env:"PW_DATA_FILE" envDefault:"data/pwcal.json"` // Memory snapshots; empty keeps data in memory only
	SQLitePath        string `env:"PW_SQLITE_PATH" envDefault:"pwcal.db"`
	MongoURI          string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase     string `env:"MONGODB_DB_NAME" envDefault:"pw_calendar"`
	MongoTransactions bool   `env:"MONGO_TRANSACTIONS"`
}

type SMTPConfig struct {
	Host   string `env:"SMTP_HOST"` // Empty logs notices instead of mailing them
	Port   int    `env:"SMTP_PORT" envDefault:"587"`
	Secure bool   `env:"SMTP_SECURE"`
	User   string `env:"SMTP_USER"`
	Pass   string `env:"SMTP_PASS"`
	From   string `env:"SMTP_FROM"`
}

type CalDAVConfig struct {
	Endpoint string `env:"CALDAV_ENDPOINT" envDefault:"https://caldav.icloud.com/"`
	Username string `env:"CALDAV_USERNAME"`
	Password string `env:"CALDAV_PASSWORD"`
	Calendar string `env:"CALDAV_CALENDAR"`
}

type GoogleConfig struct {
	ClientID     string   `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string   `env:"GOOGLE_CLIENT_SECRET"`
	CalendarIDs  []string `env:"GOOGLE_CALENDAR_IDS" envSeparator:","`
}

type HTTPConfig struct {
	Addr         string `env:"HTTP_ADDR" envDefault:":8080"`
	BaseURL      string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	RedirectBase string `env:"REDIRECT_BASE" envDefault:"/#/projects"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory, StoreSQLite, StoreMongo:
	default:
		return fmt.Errorf("invalid PW_STORE %q: want memory, sqlite or mongo", c.Store.Backend)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.InvitationTTL <= 0 {
		return fmt.Errorf("invalid INVITATION_TTL %s: must be positive", c.InvitationTTL)
	}
	return nil
}

// Location loads the configured timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
