package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"pwcal/internal/config"
	"pwcal/internal/store/memory"
	"pwcal/internal/store/sqlite"
)

func TestSetupLogger(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for level, want := range tests {
		logger := setupLogger(level)
		if !logger.Enabled(context.Background(), want) {
			t.Errorf("%s: level %v should be enabled", level, want)
		}
		if want > slog.LevelDebug && logger.Enabled(context.Background(), want-1) {
			t.Errorf("%s: level below %v should be disabled", level, want)
		}
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	dir := t.TempDir()

	s, err := openStore(ctx, config.StoreConfig{Backend: config.StoreMemory}, logger)
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	if _, ok := s.(*memory.MemStore); !ok {
		t.Errorf("Expected *memory.MemStore, got %T", s)
	}
	s.Close()

	s, err = openStore(ctx, config.StoreConfig{Backend: config.StoreSQLite, SQLitePath: filepath.Join(dir, "pw.db")}, logger)
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	if _, ok := s.(*sqlite.Store); !ok {
		t.Errorf("Expected *sqlite.Store, got %T", s)
	}
	s.Close()
}

func TestBuildServicesExportsEmptyProject(t *testing.T) {
	cfg := config.Config{
		Store:         config.StoreConfig{Backend: config.StoreMemory},
		Timezone:      "UTC",
		InvitationTTL: 1,
	}
	svc, err := buildServices(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("buildServices failed: %v", err)
	}
	defer svc.Close()

	ics, err := svc.exporter.Export(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if ics == "" {
		t.Error("Expected calendar header for an empty project")
	}
}

func TestCycleInterval(t *testing.T) {
	tests := []struct {
		name     string
		once     bool
		watchSet bool
		watch    int
		want     time.Duration
		wantErr  bool
	}{
		{"default runs once", false, false, 300, 0, false},
		{"watch", false, true, 60, time.Minute, false},
		{"once wins over watch", true, true, 60, 0, false},
		{"zero watch", false, true, 0, 0, true},
		{"negative watch", false, true, -5, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cycleInterval(tt.once, tt.watchSet, tt.watch)
			if (err != nil) != tt.wantErr {
				t.Fatalf("cycleInterval() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("cycleInterval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunCyclesFlags(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	run := func(args ...string) (int, error) {
		calls := 0
		app := &cli.App{
			Name: "pwcal",
			Commands: []*cli.Command{{
				Name: "publish",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "once"},
					&cli.IntFlag{Name: "watch", Value: 300},
				},
				Action: func(c *cli.Context) error {
					return runCycles(c, logger, func(context.Context) error {
						calls++
						return nil
					})
				},
			}},
		}
		err := app.RunContext(context.Background(), append([]string{"pwcal", "publish"}, args...))
		return calls, err
	}

	if calls, err := run(); err != nil || calls != 1 {
		t.Errorf("Default run = %d calls, %v", calls, err)
	}
	if calls, err := run("--once", "--watch", "60"); err != nil || calls != 1 {
		t.Errorf("--once with --watch = %d calls, %v", calls, err)
	}
	if calls, err := run("--watch", "0"); err == nil || calls != 0 {
		t.Errorf("--watch 0 = %d calls, %v, want an error before any cycle", calls, err)
	}
}
