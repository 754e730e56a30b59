// Package serverrun assembles and runs the cherrycaked process.
package serverrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"cherrycake/internal/config"
	"cherrycake/internal/contact"
	"cherrycake/internal/inbox"
	"cherrycake/internal/logging"
	"cherrycake/internal/mailer"
	"cherrycake/internal/notifications"
	"cherrycake/internal/preflight"
	"cherrycake/internal/server"
	"cherrycake/internal/view"
)

const contactLogName = "contact.jsonl"

// ErrAlreadyRunning is returned when another server holds the state lock.
var ErrAlreadyRunning = errors.New("another cherrycaked instance is already running")

// Options configures process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Bind overrides server.bind when set.
	Bind string
	// Ready, when set, receives the bound address once the server listens.
	Ready func(addr string)
}

// Run starts the server and blocks until cmdCtx ends or SIGINT/SIGTERM
// arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if bind := strings.TrimSpace(opts.Bind); bind != "" {
		cfg.Server.Bind = bind
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, cfg.LockPath())
	}
	defer func() { _ = lock.Unlock() }()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("cherrycaked-%s.log", runID))
	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update cherrycaked.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "cherrycaked-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "cherrycake-*.log"},
	)
	logConfigSnapshot(logger, cfg)
	for _, check := range preflight.Failed(preflight.RunAll(signalCtx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail),
			logging.String(logging.FieldErrorHint, "run 'cherrycake check' for the full report"),
		)
	}

	store, err := inbox.Open(cfg.InboxPath())
	if err != nil {
		logging.ErrorWithContext(logger, "open inbox", "inbox_open_failed",
			logging.Error(err),
			logging.String("path", cfg.InboxPath()),
		)
		return err
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	contactSvc := contact.NewService(store, mailer.New(cfg), notifier, contactLogger(logger, cfg))
	library := view.NewLibrary(view.NewLoader(cfg), view.Catalog(cfg), logger)

	srv, err := server.New(cfg, server.Dependencies{
		Library: library,
		Contact: contact.NewHandler(contactSvc, cfg.Contact.RatePerMinute, cfg.Contact.Burst, logger),
		Inbox:   store,
	}, logger)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	if err := srv.Start(signalCtx); err != nil {
		_ = notifier.Publish(context.Background(), notifications.EventError, notifications.Payload{
			"context": "server",
			"error":   err,
		})
		return err
	}
	defer srv.Stop()

	go func() {
		if err := library.Watch(signalCtx); err != nil {
			logging.WarnWithContext(logger, "dataset watch unavailable", "dataset_watch_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "changed datasets need a restart to be picked up"),
			)
		}
	}()

	_ = notifier.Publish(signalCtx, notifications.EventServerStarted, notifications.Payload{"address": srv.Addr()})
	if opts.Ready != nil {
		opts.Ready(srv.Addr())
	}

	<-signalCtx.Done()
	logger.Info("cherrycaked shutting down", logging.String(logging.FieldEventType, "server_stopping"))
	return nil
}

// contactLogger additionally records contact events as JSON lines in
// contact.jsonl so submissions can be audited apart from request noise.
func contactLogger(logger *slog.Logger, cfg *config.Config) *slog.Logger {
	path := filepath.Join(cfg.Paths.LogDir, contactLogName)
	handler, err := logging.NewJSONFileHandler(path, "info")
	if err != nil {
		logging.WarnWithContext(logger, "contact event log unavailable", "contact_log_failed",
			logging.Error(err),
			logging.String("path", path),
			logging.String(logging.FieldImpact, "contact events only reach the main log"),
		)
		return logger
	}
	return logging.TeeLogger(logger, handler)
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "cherrycaked.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("bind", cfg.Server.Bind),
		logging.String("dataset_source", cfg.Datasets.Source),
		logging.Bool("remote_datasets", cfg.RemoteDatasets()),
		logging.Bool("api_token_set", cfg.Server.APIToken != ""),
		logging.Bool("smtp_enabled", cfg.SMTPEnabled()),
		logging.Bool("ntfy_enabled", cfg.Notifications.NtfyTopic != ""),
		logging.Int("display_hz", cfg.Loop.DisplayHz),
	)
}
