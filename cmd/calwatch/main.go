package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"github.com/beekhof/calwatch/internal/auth"
	"github.com/beekhof/calwatch/internal/config"
	"github.com/beekhof/calwatch/internal/event"
	"github.com/beekhof/calwatch/internal/feed"
	"github.com/beekhof/calwatch/internal/httpapi"
	"github.com/beekhof/calwatch/internal/lib/logger/sl"
	"github.com/beekhof/calwatch/internal/notify"
	"github.com/beekhof/calwatch/internal/scheduler"
	"github.com/beekhof/calwatch/internal/store"
	calsync "github.com/beekhof/calwatch/internal/sync"
)

const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

func printHelp() {
	fmt.Fprintf(os.Stderr, `Calendar Watch Service

Watches a calendar feed for changes and emails a consolidated update
whenever events are added, removed, or modified. The last seen state of
every event is kept in MongoDB; each check compares the live feed
against that snapshot.

USAGE:
    %s [OPTIONS]

OPTIONS:
    -h, --help            Show this help message and exit
    --config FILE         Path to JSON config file
    --feed-url URL        Calendar feed URL (webcal:// or https://)
                          (overrides config file and WEB_CAL_URL env var)
    --recipient EMAIL     Notification recipient
                          (overrides config file and RECIPIENT_EMAIL env var)
    --listen ADDR         HTTP listen address, default :3001
                          (overrides config file and LISTEN_ADDR env var)
    --once                Run a single check and exit instead of serving

CONFIGURATION PRECEDENCE (highest to lowest):
    1. Command-line flags
    2. Environment variables (WEB_CAL_URL, MONGO_URI, MONGO_DB,
       MONGO_COLLECTION, SMTP_SERVER, SMTP_PORT, SMTP_USERNAME,
       SMTP_PASSWORD, RECIPIENT_EMAIL, RETENTION_HOURS,
       CHECK_INTERVAL_MINUTES, SCHEDULER_ENABLED, LISTEN_ADDR)
    3. Config file (--config)
    4. Defaults

CONFIG FILE:
    Example:
    {
      "env": "production",
      "listen": ":3001",
      "source": {
        "type": "webcal",
        "url": "webcal://example.com/calendar.ics"
      },
      "mongo": {
        "uri": "mongodb://localhost:27017",
        "database": "calwatch",
        "collection": "events"
      },
      "smtp": {
        "server": "smtp.example.com",
        "port": 587,
        "username": "mailer@example.com",
        "password": "app-password"
      },
      "recipient_email": "you@example.com",
      "retention_hours": 10,
      "check_interval_minutes": 15,
      "excluded_locations": ["privat"]
    }

    A Google Calendar can be watched instead of an ICS feed by setting
    source.type to "google" with google_credentials_path, token_path
    and an optional calendar_id. The OAuth token must already exist at
    token_path; this service never runs an interactive authorization.

DESCRIPTION:
    Every check fetches the feed, classifies each event as added,
    removed, updated, or unchanged, applies the matching change to the
    MongoDB snapshot, and sends at most one email covering the whole
    diff. Events that vanished from the feed are only removed (and
    reported) while their start time is recent; older entries are left
    alone so the snapshot keeps past events.

EXAMPLES:
    # Serve with a config file
    %s --config /path/to/config.json

    # Single check from environment variables, no HTTP server
    WEB_CAL_URL="webcal://example.com/cal.ics" %s --once

`, os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	helpFlag := flag.Bool("help", false, "Show help message")
	helpFlagShort := flag.Bool("h", false, "Show help message (shorthand)")
	configFile := flag.String("config", "", "Path to JSON config file")
	feedURL := flag.String("feed-url", "", "Calendar feed URL (overrides config file and WEB_CAL_URL env var)")
	recipient := flag.String("recipient", "", "Notification recipient (overrides config file and RECIPIENT_EMAIL env var)")
	listen := flag.String("listen", "", "HTTP listen address (overrides config file and LISTEN_ADDR env var)")
	once := flag.Bool("once", false, "Run a single check and exit instead of serving")
	flag.Parse()

	if *helpFlag || *helpFlagShort {
		printHelp()
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configFile, *feedURL, *recipient, *listen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := setupLogger(cfg.Env)
	log.Info("starting calwatch", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, client, err := store.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	if err != nil {
		log.Error("failed to connect to mongodb", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			log.Warn("failed to disconnect from mongodb", sl.Err(err))
		}
	}()

	source, err := buildSource(ctx, log, cfg)
	if err != nil {
		log.Error("failed to build event source", sl.Err(err))
		os.Exit(1)
	}

	mailer := notify.NewSMTPMailer(cfg.SMTP.Server, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	notifier := notify.NewNotifier(log, mailer, cfg.RecipientEmail)

	retention := event.NewRetentionPolicy(time.Duration(cfg.RetentionHours) * time.Hour)
	syncer := calsync.NewSyncer(log, source, repo, notifier, retention)

	if *once {
		added, err := syncer.SyncAndNotify(ctx)
		if err != nil {
			log.Error("check failed", sl.Err(err))
			os.Exit(1)
		}
		log.Info("check completed", slog.Int("added", len(added)))
		return
	}

	if !cfg.DisableScheduler {
		interval := time.Duration(cfg.CheckIntervalMinutes) * time.Minute
		sched := scheduler.New(log, interval, func(runCtx context.Context) error {
			_, err := syncer.SyncAndNotify(runCtx)
			return err
		})
		if err := sched.Start(ctx); err != nil {
			log.Error("failed to start scheduler", sl.Err(err))
			os.Exit(1)
		}
		defer sched.Stop()
	}

	if cfg.Env == envProd {
		gin.SetMode(gin.ReleaseMode)
	}
	api := httpapi.NewServer(log, syncer)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", slog.String("addr", cfg.Listen))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		log.Error("http server failed", sl.Err(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown failed", sl.Err(err))
	}
}

// buildSource picks the event source from the config. The webcal feed
// is the common case; the google source reuses a previously stored
// OAuth token.
func buildSource(ctx context.Context, log *slog.Logger, cfg *config.Config) (calsync.Source, error) {
	switch cfg.Source.Type {
	case config.SourceGoogle:
		clientID, clientSecret, err := config.LoadGoogleCredentials(cfg.Source.GoogleCredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load Google credentials: %w", err)
		}

		oauthConfig := &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{"https://www.googleapis.com/auth/calendar.readonly"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://accounts.google.com/o/oauth2/auth",
				TokenURL: "https://oauth2.googleapis.com/token",
			},
		}

		tokenStore := auth.NewFileTokenStore(cfg.Source.TokenPath)
		httpClient, err := auth.GetAuthenticatedClient(ctx, oauthConfig, tokenStore)
		if err != nil {
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}

		return feed.NewGoogleSource(ctx, httpClient, cfg.Source.CalendarID, cfg.ExcludedLocations)
	default:
		return feed.NewWebcalSource(log, cfg.Source.URL, cfg.ExcludedLocations), nil
	}
}

// setupLogger follows the usual env split: pretty text locally, JSON
// elsewhere, debug level outside production.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
