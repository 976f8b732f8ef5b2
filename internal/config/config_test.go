package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.Backend != StoreMemory {
		t.Errorf("Backend = %q", cfg.Store.Backend)
	}
	if cfg.InvitationTTL != 7*24*time.Hour {
		t.Errorf("InvitationTTL = %v", cfg.InvitationTTL)
	}
	if cfg.HTTP.RedirectBase != "/#/projects" || cfg.SMTP.Port != 587 {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PW_STORE", "sqlite")
	t.Setenv("PW_TIMEZONE", "Asia/Taipei")
	t.Setenv("INVITATION_TTL", "48h")
	t.Setenv("GOOGLE_CALENDAR_IDS", "primary,team@example.com")
	t.Setenv("MONGO_TRANSACTIONS", "true")

	cfg, err := Load()
	if err != nil {
		t.Skipf("Load failed, zoneinfo may be unavailable: %v", err)
	}
	if cfg.Store.Backend != StoreSQLite || cfg.InvitationTTL != 48*time.Hour || !cfg.Store.MongoTransactions {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if len(cfg.Google.CalendarIDs) != 2 || cfg.Google.CalendarIDs[1] != "team@example.com" {
		t.Errorf("CalendarIDs = %v", cfg.Google.CalendarIDs)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"PW_STORE":       "postgres",
		"PW_TIMEZONE":    "Mars/Olympus",
		"INVITATION_TTL": "-1h",
		"SMTP_PORT":      "not-a-port",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("Expected error for %s=%s", key, value)
			}
		})
	}
}

func TestParseErrorPrefix(t *testing.T) {
	t.Setenv("SMTP_PORT", "x")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("Expected parse env prefix, got %v", err)
	}
}
