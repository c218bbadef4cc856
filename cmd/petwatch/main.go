// Command petwatch synchronizes the petition store with its upstream
// sources, validates the result, and rolls back when validation fails.
//
// Usage:
//
//	petwatch -config petwatch.yaml           # daily incremental sync
//	petwatch -db petitions.db -dry-run       # pre-flight check only
//	petwatch -db petitions.db -full          # ignore the discovery smart stop
//	petwatch -db petitions.db -serve         # read-only API instead of syncing
//	petwatch -db petitions.db -export-only   # rebuild analytics JSON and exit
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

	"github.com/hazyhaar/petwatch/engine"
	"github.com/hazyhaar/petwatch/export"
	"github.com/hazyhaar/petwatch/fetch"
	"github.com/hazyhaar/petwatch/notify"
	"github.com/hazyhaar/petwatch/store"
	"github.com/hazyhaar/petwatch/web"
)

type options struct {
	configPath    string
	dbPath        string
	logLevel      string
	dryRun        bool
	skipPreflight bool
	full          bool
	startID       int
	endID         int
	exportOnly    bool
	serve         bool
	addr          string
	notifySuccess bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to petwatch.yaml config file")
	flag.StringVar(&opts.dbPath, "db", "", "path to SQLite database (overrides config)")
	flag.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "run pre-flight checks only, change nothing")
	flag.BoolVar(&opts.skipPreflight, "skip-preflight", false, "skip pre-flight validation (use with care)")
	flag.BoolVar(&opts.full, "full", false, "scan every listing page, ignoring the smart stop")
	flag.IntVar(&opts.startID, "start", 0, "lowest petition identifier to reconcile")
	flag.IntVar(&opts.endID, "end", 0, "highest petition identifier to reconcile")
	flag.BoolVar(&opts.exportOnly, "export-only", false, "rebuild the analytics JSON and exit")
	flag.BoolVar(&opts.serve, "serve", false, "serve the read-only API instead of syncing")
	flag.StringVar(&opts.addr, "addr", ":8080", "listen address for -serve")
	flag.BoolVar(&opts.notifySuccess, "notify-success", false, "send a summary notification on success too")
	flag.Parse()

	var level slog.Level
	switch opts.logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, opts); err != nil {
		logger.Error("petwatch: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}

	if opts.serve {
		// The API never writes; keep the database visibly untouchable.
		st, err := store.Open(cfg.DBPath, store.WithReadOnly())
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		return serve(ctx, logger, st, opts.addr)
	}

	st, err := store.Open(cfg.DBPath, store.WithMkdirAll())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	exporter := export.New(st, cfg.Export.TopN)

	if opts.exportOnly {
		if err := exporter.WriteFile(ctx, cfg.Export.Path, nil); err != nil {
			return err
		}
		logger.Info("analytics exported", "path", cfg.Export.Path)
		return nil
	}

	client := fetch.NewClient(cfg.Fetch)
	president := fetch.NewPresident(client, cfg.President.BaseURL)
	cabinet := fetch.NewCabinet(client, cfg.Cabinet.APIURL, cfg.Cabinet.PageURL)
	notifier := notify.New(cfg.Notify, notify.WithLogger(logger))

	eng := engine.New(st, president, president, cabinet, cfg, logger)
	res, runErr := eng.Run(ctx, engine.RunOptions{
		DryRun:        opts.dryRun,
		SkipPreflight: opts.skipPreflight,
		Full:          opts.full,
		StartID:       opts.startID,
		EndID:         opts.endID,
	})

	if runErr != nil {
		if res != nil {
			if err := notifier.Failure(ctx, report(res)); err != nil {
				logger.Warn("failure notification not delivered", "error", err)
			}
		}
		return runErr
	}

	if !opts.dryRun {
		if err := exporter.WriteFile(ctx, cfg.Export.Path, res.Growth); err != nil {
			// The sync itself committed; a broken export is recoverable
			// with -export-only.
			logger.Warn("analytics export failed", "error", err)
		}
		if opts.notifySuccess {
			if err := notifier.Success(ctx, report(res)); err != nil {
				logger.Warn("success notification not delivered", "error", err)
			}
		}
	}
	return nil
}

func serve(ctx context.Context, logger *slog.Logger, st *store.Store, addr string) error {
	srv := &http.Server{Addr: addr, Handler: web.New(st, logger).Router()}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("petwatch: serving read API", "addr", addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	logger.Info("petwatch: shutting down")
	return srv.Shutdown(context.Background())
}

// stage names the phase a failed run died in, for alert text.
func stage(res *engine.RunResult) string {
	switch res.State {
	case engine.StateAborted:
		if res.Preflight != nil && !res.Preflight.Passed {
			return "pre-flight check"
		}
		return "backup"
	case engine.StateRolledBack:
		if res.PostSync != nil && !res.PostSync.Passed {
			return "post-sync validation"
		}
		return "sync"
	default:
		return string(res.State)
	}
}

func report(res *engine.RunResult) notify.Report {
	rep := notify.Report{
		RunID:         res.RunID,
		Date:          res.Date,
		Stage:         stage(res),
		Checked:       res.Stats.Checked,
		Updated:       res.Stats.Updated,
		SoftErrors:    res.Stats.SoftErrors,
		SourceErrors:  res.Stats.SourceErrors,
		PresidentNew:  res.Stats.PresidentNew,
		CabinetNew:    res.Stats.CabinetNew,
		VoteDelta:     res.Stats.VoteDelta,
		StatusChanges: res.Stats.StatusChanges,
	}
	for _, vr := range []*engine.ValidationResult{res.Preflight, res.PostSync} {
		if vr == nil {
			continue
		}
		rep.Errors = append(rep.Errors, vr.Errors...)
		rep.Warnings = append(rep.Warnings, vr.Warnings...)
	}
	return rep
}

func resolveConfig(opts options) (*engine.Config, error) {
	cfg := engine.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := engine.LoadConfigFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.dbPath != "" {
		cfg.DBPath = opts.dbPath
	}
	// Credentials stay out of the config file.
	if tok := os.Getenv("TELEGRAM_BOT_TOKEN"); tok != "" {
		cfg.Notify.BotToken = tok
	}
	if chat := os.Getenv("TELEGRAM_CHAT_ID"); chat != "" {
		cfg.Notify.ChatID = chat
	}
	return cfg, nil
}
