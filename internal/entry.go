// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/starford/xo/internal/api"
	"github.com/starford/xo/internal/cache"
	"github.com/starford/xo/internal/livereload"
	"github.com/starford/xo/internal/mcpserver"
	"github.com/starford/xo/internal/metrics"
	"github.com/starford/xo/internal/pipeline"
	"github.com/starford/xo/internal/rebuild"
	"github.com/starford/xo/internal/scaffold"
	"github.com/starford/xo/internal/server"
	"github.com/starford/xo/internal/siteservice"
	"github.com/starford/xo/internal/storage"
	"github.com/starford/xo/internal/watch"
)

// ErrBuildFailed is returned by Build when at least one document failed.
var ErrBuildFailed = errors.New("build failed")

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		app.root = wd
	}
	root, err := filepath.Abs(app.root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	app.root = root
	if v := os.Getenv("BASE_URL"); v != "" {
		app.config.Site.BaseURL = v
	}
	if app.port != 0 {
		app.config.App.HTTP.Port = app.port
	}
	return app, nil
}

// newLogger builds the structured logger. out is stdout for the dev server
// and stderr for stdio MCP, whose stdout carries the protocol.
func newLogger(cfg *Config, out io.Writer) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.App.LogLevel}
	var logger *slog.Logger
	if cfg.App.LogFormat == LogFormatText {
		logger = slog.New(slog.NewTextHandler(out, hopts))
	} else {
		logger = slog.New(slog.NewJSONHandler(out, hopts))
	}
	slog.SetDefault(logger)
	return logger
}

func (a *application) paths() pipeline.Paths {
	site := a.config.Site.Resolve(a.root)
	return pipeline.Paths{
		Root:     a.root,
		Content:  site.ContentDir,
		Layouts:  site.LayoutDir,
		Partials: site.PartialsDir,
		Output:   site.OutputDir,
	}
}

func (a *application) settings() pipeline.Settings {
	return pipeline.Settings{
		DefaultLayout: a.config.Site.DefaultLayout,
		AuxPartial:    a.config.Site.AuxPartial,
		BaseURL:       a.config.Site.BaseURL,
	}
}

// openCache opens the persistent build cache when enabled. The returned
// close function is always non-nil.
func (a *application) openCache(logger *slog.Logger) (cache.Cache, func(), error) {
	if !a.config.Cache.Enabled {
		return nil, func() {}, nil
	}
	path := a.config.Cache.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.root, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create cache dir: %w", err)
	}
	store, err := cache.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("init cache: %w", err)
	}
	logger.Info("cache: opened", slog.String("path", path))
	return store, func() { _ = store.Close() }, nil
}

// Run starts the development server: an initial full build, the watch loop
// and the HTTP server with live reload, until ctx is cancelled or a
// shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stdout)

	paths := app.paths()
	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_dir", paths.Content),
		slog.String("output_dir", paths.Output),
		slog.String("base_url", cfg.Site.BaseURL),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, closeCache, err := app.openCache(logger)
	if err != nil {
		return err
	}
	defer closeCache()

	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)

	hub := livereload.NewHub(livereload.WithLogger(logger), livereload.WithRecorder(recorder))
	defer hub.Close()

	popts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithNotifier(hub),
		pipeline.WithRecorder(recorder),
	}
	if store != nil {
		popts = append(popts, pipeline.WithCache(store))
	}
	p, err := pipeline.New(paths, app.settings(), popts...)
	if err != nil {
		return err
	}
	if err := p.Warm(); err != nil {
		logger.Warn("cache warm-up failed", slog.String("error", err.Error()))
	}

	res := p.Orchestrator.Build(ctx, nil)
	logger.Info("initial build finished",
		slog.String("status", string(res.Status)),
		slog.Int("built", len(res.Built)),
		slog.Int("failed", len(res.Failures)))

	svc := siteservice.NewService(p.Orchestrator, app.root, hub)
	deps := server.Deps{
		Output:  p.Output,
		Hub:     hub,
		API:     api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token),
		Metrics: recorder.Handler(),
	}
	if pub := cfg.Site.Resolve(app.root).PublicDir; pub != "" {
		if info, err := os.Stat(pub); err == nil && info.IsDir() {
			public, err := storage.NewFS(pub)
			if err != nil {
				return fmt.Errorf("init public dir: %w", err)
			}
			deps.Public = public
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           server.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := watch.Run(gCtx, p.WatchRoots(), func(ctx context.Context, path string) {
			p.Orchestrator.HandleChange(ctx, path)
		}, logger, watch.WithQueueSize(cfg.Watch.QueueSize))
		if err != nil {
			logger.Error("watcher stopped with errors", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// Build runs a one-shot build. Without documents the whole site is rebuilt.
// It returns ErrBuildFailed when any document failed.
func Build(ctx context.Context, opts ...Option) (rebuild.Result, error) {
	app, err := newApplication(opts)
	if err != nil {
		return rebuild.Result{}, err
	}
	logger := newLogger(app.config, os.Stdout)
	paths := app.paths()

	if app.clean {
		if err := os.RemoveAll(paths.Output); err != nil {
			return rebuild.Result{}, fmt.Errorf("clean output: %w", err)
		}
		logger.Info("output cleaned", slog.String("path", paths.Output))
	}

	store, closeCache, err := app.openCache(logger)
	if err != nil {
		return rebuild.Result{}, err
	}
	defer closeCache()

	popts := []pipeline.Option{pipeline.WithLogger(logger)}
	if store != nil {
		popts = append(popts, pipeline.WithCache(store))
	}
	p, err := pipeline.New(paths, app.settings(), popts...)
	if err != nil {
		return rebuild.Result{}, err
	}

	docs := make([]string, 0, len(app.docs))
	for _, d := range app.docs {
		if !filepath.IsAbs(d) {
			d = filepath.Join(app.root, d)
		}
		docs = append(docs, d)
	}

	res := p.Orchestrator.Build(ctx, docs)
	for _, f := range res.Failures {
		logger.Error("build: document failed",
			slog.String("path", f.Path), slog.String("error", f.Err.Error()))
	}
	if len(res.Failures) > 0 {
		return res, fmt.Errorf("%w: %d of %d documents", ErrBuildFailed,
			len(res.Failures), len(res.Failures)+len(res.Built))
	}
	return res, nil
}

// Init writes a starter site into the project root.
func Init(opts ...Option) ([]string, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	return scaffold.Init(app.root)
}

// RunMCP serves the MCP tools on stdio. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, os.Stderr)

	store, closeCache, err := app.openCache(logger)
	if err != nil {
		return err
	}
	defer closeCache()

	popts := []pipeline.Option{pipeline.WithLogger(logger)}
	if store != nil {
		popts = append(popts, pipeline.WithCache(store))
	}
	p, err := pipeline.New(app.paths(), app.settings(), popts...)
	if err != nil {
		return err
	}
	if err := p.Warm(); err != nil {
		logger.Warn("cache warm-up failed", slog.String("error", err.Error()))
	}
	if p.Orchestrator.Graph().Len() == 0 {
		p.Orchestrator.Build(ctx, nil)
	}

	svc := siteservice.NewService(p.Orchestrator, app.root, nil)
	logger.Info("mcp: serving on stdio")
	return mcpserver.New(svc, p.Content, app.version).ServeStdio()
}
