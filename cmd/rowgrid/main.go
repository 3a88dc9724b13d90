// Package main is the entry point for the rowgrid server.
//
// rowgrid serves a virtualized grid over a JSONL file: pages of rows are
// fetched on demand, placed in a sparse sequence and exposed through an HTTP
// JSON API for windowing, sorting and grouping. Configuration is read from
// a YAML file and CLI flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/maruel/rowgrid/internal/config"
	"github.com/maruel/rowgrid/internal/grid"
	"github.com/maruel/rowgrid/internal/jsonldb"
	"github.com/maruel/rowgrid/internal/server"
	"github.com/maruel/rowgrid/internal/source"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "rowgrid: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	schema := flag.Bool("schema", false, "Print the configuration JSON schema and exit")
	configPath := flag.String("config", "", "YAML configuration file (optional)")
	sourcePath := flag.String("source", "", "JSONL file holding the rows, overrides source.path")
	httpAddr := flag.String("http", "", "Address to listen on (e.g., localhost:8080, :8080), overrides http")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}
	if *schema {
		b, err := config.Schema()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(append(b, '\n'))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Drop time when running under systemd.
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			val := a.Value.Any()
			skip := false
			switch t := val.(type) {
			case string:
				skip = t == ""
			case bool:
				skip = !t
			case uint64:
				skip = t == 0
			case int64:
				skip = t == 0
			case float64:
				skip = t == 0
			case time.Time:
				skip = t.IsZero()
			case time.Duration:
				skip = t == 0
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	switch *logLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", *logLevel)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	// Flags override the file.
	if *sourcePath != "" {
		cfg.Source.Path = *sourcePath
	}
	if *httpAddr != "" {
		cfg.HTTP = *httpAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Normalize addr: ":8080" becomes "localhost:8080"
	addr := cfg.HTTP
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	table, err := jsonldb.NewTable(cfg.Source.Path)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	src := &source.JSONL{
		Table:    table,
		PageSize: cfg.Source.PageSize,
		Search:   cfg.Source.Search,
		Sorts:    cfg.Source.Sorts,
		Delay:    cfg.Source.Delay,
	}
	session := grid.New(src, grid.Options{
		Fetch: source.Options{
			Concurrency: cfg.Fetch.Concurrency,
			RatePerSec:  cfg.Fetch.RatePerSec,
			Burst:       cfg.Fetch.Burst,
			Retries:     cfg.Fetch.Retries,
			RetryDelay:  cfg.Fetch.RetryDelay,
		},
		PageSize:         cfg.Source.PageSize,
		Sorts:            cfg.View.Sorts,
		GroupBy:          cfg.View.GroupBy,
		Collapsed:        cfg.View.Collapsed,
		VerifyInvariants: cfg.VerifyInvariants,
	})
	slog.InfoContext(ctx, "Grid ready", "session", session.ID, "source", table.Path(), "rows", src.Count(), "pageSize", cfg.Source.PageSize)
	prefetch(ctx, session, cfg.Fetch.PrefetchPages)

	if cfg.Source.Watch {
		if err := watchSource(ctx, table, func() {
			session.Reset(ctx)
			prefetch(ctx, session, cfg.Fetch.PrefetchPages)
		}); err != nil {
			return fmt.Errorf("failed to watch source: %w", err)
		}
	}

	buildVersion, _, _, _ := getBuildInfo()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(session, cfg.View, buildVersion),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "version", buildVersion)
		serverErr <- httpServer.ListenAndServe()
	}()

	// Wait for either context cancellation or server error
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		// Graceful shutdown
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

// prefetch loads the first n pages. Failures are logged; the pages are
// fetched again on demand.
func prefetch(ctx context.Context, session *grid.Session, n int) {
	if n <= 0 {
		return
	}
	nums := make([]int, n)
	for i := range nums {
		nums[i] = i + 1
	}
	if err := session.Load(ctx, nums...); err != nil {
		slog.WarnContext(ctx, "Prefetch failed", "pages", n, "err", err)
	}
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("rowgrid %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

// watchSource reloads table when its file changes and then calls changed.
//
// The directory is watched since editors often replace the file. Bursts of
// events are coalesced.
func watchSource(ctx context.Context, table *jsonldb.Table, changed func()) error {
	path, err := filepath.Abs(table.Path())
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		const settle = 200 * time.Millisecond
		timer := time.NewTimer(settle)
		timer.Stop()
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
					timer.Reset(settle)
				}
			case <-timer.C:
				if err := table.Reload(); err != nil {
					slog.WarnContext(ctx, "Failed to reload source", "path", path, "err", err)
					continue
				}
				slog.InfoContext(ctx, "Source reloaded", "path", path, "rows", table.Len())
				changed()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching source", "err", err)
			}
		}
	}()
	return nil
}
