package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"pwcal/internal/caldav"
	"pwcal/internal/config"
	"pwcal/internal/google"
	"pwcal/internal/httpapi"
	"pwcal/internal/syncer"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "pwcal",
		Usage: "Shared project calendars with invitations, audit logs and iCalendar feeds.",
		Commands: []*cli.Command{
			serveCommand(),
			exportCommand(),
			publishCommand(),
			authCommand(),
			importCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

// setup loads the configuration and the matching logger.
func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, setupLogger("info"), err
	}
	logger := setupLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API.",
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			svc, err := buildServices(c.Context, cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			if strings.ToLower(cfg.LogLevel) != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			router := httpapi.NewRouter(&httpapi.Handler{
				Collab:       svc.collab,
				Events:       svc.events,
				Calendar:     svc.exporter,
				RedirectBase: cfg.HTTP.RedirectBase,
				Location:     svc.loc,
				Logger:       logger,
			})
			srv := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("HTTP server listening.", "addr", cfg.HTTP.Addr, "store", cfg.Store.Backend)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server failed: %w", err)
				}
				return nil
			case <-c.Context.Done():
			}

			logger.Info("Shutting down HTTP server.")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write a project's calendar feed.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Required: true, Usage: "Project ID to export."},
			&cli.StringFlag{Name: "out", Usage: "Output file. Defaults to stdout."},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			svc, err := buildServices(c.Context, cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			ics, err := svc.exporter.Export(c.Context, c.String("project"))
			if err != nil {
				return err
			}
			if out := c.String("out"); out != "" {
				if err := os.WriteFile(out, []byte(ics), 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", out, err)
				}
				logger.Info("Wrote calendar feed.", "file", out)
				return nil
			}
			_, err = fmt.Fprint(c.App.Writer, ics)
			return err
		},
	}
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Push a project's events to a CalDAV calendar.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Required: true, Usage: "Project ID to publish."},
			&cli.StringFlag{Name: "state", Value: "publish-state.json", Usage: "File that remembers what was published."},
			&cli.BoolFlag{Name: "once", Usage: "Run the publish cycle once and exit, even when --watch is set."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be published without making changes."},
			&cli.IntFlag{Name: "watch", Value: 300, Usage: "Publish every N seconds."},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No changes will be made.")
			}
			if cfg.CalDAV.Calendar == "" {
				return fmt.Errorf("CALDAV_CALENDAR environment variable not set")
			}
			svc, err := buildServices(c.Context, cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			target, err := caldav.NewClient(c.Context, logger, caldav.Config{
				Endpoint: cfg.CalDAV.Endpoint,
				Username: cfg.CalDAV.Username,
				Password: cfg.CalDAV.Password,
				Calendar: cfg.CalDAV.Calendar,
			})
			if err != nil {
				return fmt.Errorf("failed to create caldav client: %w", err)
			}

			p, err := syncer.NewPublisher(logger, svc.events, target, syncer.PublisherConfig{
				ProjectID: c.String("project"),
				StatePath: c.String("state"),
				DryRun:    c.Bool("dry-run"),
			})
			if err != nil {
				return fmt.Errorf("failed to create publisher: %w", err)
			}

			cycle := func(ctx context.Context) error {
				_, err := p.Sync(ctx)
				return err
			}
			return runCycles(c, logger, cycle)
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Create project events from Google Calendar.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Required: true, Usage: "Project ID to import into."},
			&cli.StringFlag{Name: "actor", Required: true, Usage: "Email recorded as the creator of imported events."},
			&cli.IntFlag{Name: "days", Value: 7, Usage: "How many days ahead to import."},
			&cli.StringFlag{Name: "state", Value: "import-state.json", Usage: "File that remembers what was imported."},
			&cli.StringFlag{Name: "token-dir", Value: ".", Usage: "Directory holding token-<account>.json files."},
			&cli.BoolFlag{Name: "once", Usage: "Run the import cycle once and exit, even when --watch is set."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be imported without making changes."},
			&cli.IntFlag{Name: "watch", Value: 300, Usage: "Import every N seconds."},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if len(cfg.Google.CalendarIDs) == 0 {
				return fmt.Errorf("GOOGLE_CALENDAR_IDS environment variable not set")
			}

			// Load all Google clients for all authenticated accounts
			tokenDir := c.String("token-dir")
			accounts, err := google.GetTokenAccounts(tokenDir)
			if err != nil {
				return fmt.Errorf("could not find any google accounts, did you run auth command? %w", err)
			}
			if len(accounts) == 0 {
				return fmt.Errorf("no google accounts found. Run the 'auth' command first")
			}

			svc, err := buildServices(c.Context, cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			var sources []syncer.Source
			for _, acc := range accounts {
				gClient, err := google.NewClient(c.Context, logger, cfg.Google.ClientID, cfg.Google.ClientSecret, tokenDir, acc, svc.loc)
				if err != nil {
					return fmt.Errorf("failed to create google client for account %s: %w", acc, err)
				}
				sources = append(sources, gClient)
			}
			logger.Info("Initialized Google clients for all accounts.", "count", len(sources))

			im, err := syncer.NewImporter(logger, sources, svc.events, syncer.ImporterConfig{
				ProjectID:   c.String("project"),
				Actor:       c.String("actor"),
				CalendarIDs: cfg.Google.CalendarIDs,
				Days:        c.Int("days"),
				StatePath:   c.String("state"),
				DryRun:      c.Bool("dry-run"),
			})
			if err != nil {
				return fmt.Errorf("failed to create importer: %w", err)
			}

			cycle := func(ctx context.Context) error {
				_, err := im.Import(ctx)
				return err
			}
			return runCycles(c, logger, cycle)
		},
	}
}

// cycleInterval returns how often to repeat a cycle, or zero to run it once.
// A single run is the default when --watch is not given.
func cycleInterval(once, watchSet bool, watch int) (time.Duration, error) {
	if once || !watchSet {
		return 0, nil
	}
	if watch <= 0 {
		return 0, fmt.Errorf("--watch must be a positive number of seconds, got %d", watch)
	}
	return time.Duration(watch) * time.Second, nil
}

// runCycles runs cycle once, or every --watch seconds until the context ends.
func runCycles(c *cli.Context, logger *slog.Logger, cycle func(context.Context) error) error {
	interval, err := cycleInterval(c.Bool("once"), c.IsSet("watch"), c.Int("watch"))
	if err != nil {
		return err
	}
	if interval == 0 {
		logger.Info("Running a single cycle.")
		if err := cycle(c.Context); err != nil {
			return fmt.Errorf("single cycle failed: %w", err)
		}
		return nil
	}

	logger.Info("Starting watcher.", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := cycle(c.Context); err != nil {
			logger.Error("Cycle failed", "error", err)
		}
		select {
		case <-c.Context.Done():
			logger.Info("Watcher stopped.")
			return nil
		case <-ticker.C:
		}
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "token-dir", Value: ".", Usage: "Directory to store the token in."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			oauthConfig, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			tokenFile := google.TokenPath(c.String("token-dir"), accountName)

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
