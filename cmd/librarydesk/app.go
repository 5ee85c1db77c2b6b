package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vbonduro/librarydesk/internal/apiclient"
	"github.com/vbonduro/librarydesk/internal/catalog"
	"github.com/vbonduro/librarydesk/internal/config"
	"github.com/vbonduro/librarydesk/internal/db"
	"github.com/vbonduro/librarydesk/internal/labels"
	"github.com/vbonduro/librarydesk/internal/library"
	"github.com/vbonduro/librarydesk/internal/loans"
	"github.com/vbonduro/librarydesk/internal/logging"
	"github.com/vbonduro/librarydesk/internal/qrdecode"
	"github.com/vbonduro/librarydesk/internal/qrdecode/claude"
	"github.com/vbonduro/librarydesk/internal/qrdecode/zxing"
	"github.com/vbonduro/librarydesk/internal/reports"
	"github.com/vbonduro/librarydesk/internal/reportstore/local"
	"github.com/vbonduro/librarydesk/internal/session"
	"github.com/vbonduro/librarydesk/internal/status"
	"github.com/vbonduro/librarydesk/internal/store"
)

var errNotLoggedIn = errors.New("not logged in; run librarydesk login")

// app holds the components shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	cleanup  func()
	database *sql.DB
	registry *prometheus.Registry
	api      *apiclient.Client
	sessions *session.Manager
	settings *store.SettingsStore
	lib      *library.Client
}

// overrides are the persistent command-line flags.
type overrides struct {
	apiURL   string
	language string
	logLevel string
}

func newApp(o overrides, console io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.apiURL != "" {
		cfg.APIBaseURL = o.apiURL
	}
	if o.language != "" {
		if !labels.Supported(o.language) {
			return nil, fmt.Errorf("unsupported language %q", o.language)
		}
		cfg.Language = o.language
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile, console)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		cleanup()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	metrics, err := apiclient.NewMetrics(registry)
	if err != nil {
		cleanup()
		return nil, errors.Join(err, database.Close())
	}

	api := apiclient.New(apiclient.Options{
		BaseURL:  cfg.APIBaseURL,
		Timeout:  cfg.HTTPTimeout,
		Language: cfg.Language,
		Metrics:  metrics,
		Logger:   logger,
	})
	sessions := session.NewManager(api, store.NewSessionStore(database), logger)
	api.SetTokenSource(sessions)

	return &app{
		cfg:      cfg,
		logger:   logger,
		cleanup:  cleanup,
		database: database,
		registry: registry,
		api:      api,
		sessions: sessions,
		settings: store.NewSettingsStore(database),
		lib:      library.New(api, library.Options{BatchReminders: cfg.BatchReminders}),
	}, nil
}

func (a *app) Close() {
	if err := a.database.Close(); err != nil {
		a.logger.Error("failed to close database", "error", err)
	}
	a.cleanup()
}

func (a *app) labels() labels.Labels {
	return labels.For(a.cfg.Language)
}

// requireSession restores the saved session and fails when there is none.
func (a *app) requireSession(ctx context.Context) error {
	state, err := a.sessions.Restore(ctx)
	if err != nil {
		return err
	}
	if state != session.Authenticated {
		return errNotLoggedIn
	}
	return nil
}

func (a *app) loanWorkflow() *loans.Workflow {
	subject := a.cfg.ReminderSubject
	if subject == "" {
		subject = a.labels().Get("reminder_subject")
	}
	return loans.New(a.lib, loans.Options{
		ReminderSubject: subject,
		Concurrency:     a.cfg.ReminderConcurrency,
		Logger:          a.logger,
	})
}

func (a *app) reportGenerator() (*reports.Generator, error) {
	rs, err := local.NewLocalReportStore(a.cfg.ReportDir, a.logger)
	if err != nil {
		return nil, err
	}
	return reports.NewGenerator(a.lib, rs, a.logger), nil
}

func (a *app) inventory() *catalog.Inventory {
	return catalog.NewInventory(a.lib, a.logger)
}

func (a *app) registryOfMembers() *catalog.Registry {
	return catalog.NewRegistry(a.lib, a.logger)
}

func (a *app) poller() *status.Poller {
	return status.NewPoller(a.lib, a.cfg.StatusInterval, a.logger)
}

// decoder builds the QR pipeline: the zxing strategies in per-platform order,
// followed by the vision model when an API key is configured.
func (a *app) decoder() (*qrdecode.Decoder, error) {
	def := zxing.DefaultOrder()
	ios := zxing.IOSOrder()
	if a.cfg.ClaudeAPIKey != "" {
		vision := claude.New(a.cfg.ClaudeAPIKey, a.cfg.ClaudeModel, "")
		def = append(def, vision)
		ios = append(ios, vision)
		a.logger.Info("vision fallback enabled", "model", a.cfg.ClaudeModel)
	}

	opts := qrdecode.DefaultOptions()
	if a.cfg.QRResizeThreshold > 0 {
		opts.ResizeThreshold = a.cfg.QRResizeThreshold
	}
	if a.cfg.QRMaxDimension > 0 {
		opts.MaxDimension = a.cfg.QRMaxDimension
	}
	if a.cfg.QRMaxUploadBytes > 0 {
		opts.MaxUploadBytes = a.cfg.QRMaxUploadBytes
	}
	if a.cfg.QRAttemptTimeout > 0 {
		opts.AttemptTimeout = a.cfg.QRAttemptTimeout
	}
	return qrdecode.New(qrdecode.Orders{
		qrdecode.PlatformDefault: def,
		qrdecode.PlatformAndroid: def,
		qrdecode.PlatformIOS:     ios,
	}, opts, a.logger)
}

func (a *app) platform() qrdecode.Platform {
	return qrdecode.ParsePlatform(a.cfg.Platform)
}

func stderrOrNil(quiet bool) io.Writer {
	if quiet {
		return nil
	}
	return os.Stderr
}
