package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pwcal/internal/calendar"
	"pwcal/internal/collab"
	"pwcal/internal/config"
	"pwcal/internal/event"
	"pwcal/internal/invitation"
	"pwcal/internal/notify"
	"pwcal/internal/store"
	"pwcal/internal/store/memory"
	"pwcal/internal/store/mongo"
	"pwcal/internal/store/sqlite"
)

// services holds the engines every command builds on.
type services struct {
	store    store.Store
	events   *event.Engine
	invites  *invitation.Engine
	collab   *collab.Coordinator
	exporter *calendar.Exporter
	loc      *time.Location
}

func (s *services) Close() error {
	return s.store.Close()
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Backend {
	case config.StoreSQLite:
		logger.Info("Opening SQLite store.", "path", cfg.SQLitePath)
		return sqlite.Open(cfg.SQLitePath)
	case config.StoreMongo:
		logger.Info("Connecting to MongoDB.", "database", cfg.MongoDatabase, "transactions", cfg.MongoTransactions)
		return mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTransactions)
	default:
		if cfg.DataFile == "" {
			logger.Warn("PW_DATA_FILE is empty, data will not survive a restart.")
			return memory.NewMemStore(nil, logger), nil
		}
		logger.Info("Opening memory store.", "file", cfg.DataFile)
		return memory.Open(cfg.DataFile, logger)
	}
}

func newNotifier(cfg config.SMTPConfig, logger *slog.Logger) (notify.Notifier, error) {
	if cfg.Host == "" {
		logger.Warn("SMTP_HOST is not set, invitation mail will only be logged.")
		return notify.LogNotifier{Logger: logger}, nil
	}
	return notify.NewMailer(notify.SMTPConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Secure:   cfg.Secure,
		Username: cfg.User,
		Password: cfg.Pass,
		From:     cfg.From,
		Timeout:  30 * time.Second,
	}, logger)
}

func buildServices(ctx context.Context, cfg config.Config, logger *slog.Logger) (*services, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	s, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	notifier, err := newNotifier(cfg.SMTP, logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to set up notifier: %w", err)
	}

	events := event.NewEngine(s, cfg.Timezone, event.WithLogger(logger))
	invites := invitation.NewEngine(s, notifier, invitation.Config{TTL: cfg.InvitationTTL, BaseURL: cfg.HTTP.BaseURL}, nil, logger)
	return &services{
		store:    s,
		events:   events,
		invites:  invites,
		collab:   collab.NewCoordinator(s, invites, nil, logger),
		exporter: calendar.NewExporter(events, nil),
		loc:      loc,
	}, nil
}
