// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/folio/internal/auth"
	"github.com/starford/folio/internal/blogservice"
	"github.com/starford/folio/internal/fetcher"
	"github.com/starford/folio/internal/mcpserver"
	"github.com/starford/folio/internal/notion"
	"github.com/starford/folio/internal/pagecache"
	"github.com/starford/folio/internal/posts"
	"github.com/starford/folio/internal/render"
	"github.com/starford/folio/internal/sse"
	"github.com/starford/folio/internal/watch"
	"github.com/starford/folio/internal/web"
)

// Version is reported by the MCP server.
var Version = "dev"

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

// openSource returns the configured document source, and the snapshot
// directory to watch when it is file backed.
func (a *application) openSource(logger *slog.Logger) (notion.Source, string, error) {
	if a.source != nil {
		if fs, ok := a.source.(*notion.FileSource); ok {
			return fs, fs.Root(), nil
		}
		return a.source, "", nil
	}

	cfg := a.config.Notion
	switch cfg.Source {
	case SourceFiles:
		fs, err := notion.NewFileSource(cfg.SnapshotDir)
		if err != nil {
			return nil, "", fmt.Errorf("open snapshot: %w", err)
		}
		return fs, fs.Root(), nil
	default:
		return notion.NewClient(cfg.APIKey, cfg.DatabaseID,
			notion.WithBaseURL(cfg.BaseURL),
			notion.WithVersion(cfg.Version),
			notion.WithPageSize(cfg.PageSize),
			notion.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
			notion.WithRateLimit(cfg.RateLimit),
			notion.WithRetry(cfg.MaxRetries, 500*time.Millisecond),
			notion.WithLogger(logger),
		), "", nil
	}
}

func (a *application) newBlogService(src notion.Source) *blogservice.Service {
	cfg := a.config
	renderer := render.New(render.WithHighlighter(render.NewHighlighter(cfg.Code.LightTheme, cfg.Code.DarkTheme)))
	return blogservice.New(
		posts.NewRepository(src),
		fetcher.New(src, fetcher.WithParallelism(cfg.Notion.ParallelChildren)),
		renderer,
		blogservice.WithPageSize(cfg.Blog.PageSize),
		blogservice.WithIndexPath(cfg.Blog.IndexPath),
	)
}

// site is everything the HTTP server needs, plus what must be closed.
type site struct {
	handler     http.Handler
	cache       *pagecache.Cache
	broker      *sse.Broker
	snapshotDir string
}

func (s *site) Close() {
	s.broker.Close()
	if err := s.cache.Close(); err != nil {
		slog.Error("close page cache", slog.String("error", err.Error()))
	}
}

func (a *application) newSite(ctx context.Context, logger *slog.Logger) (*site, error) {
	cfg := a.config

	src, snapshotDir, err := a.openSource(logger)
	if err != nil {
		return nil, err
	}
	svc := a.newBlogService(src)

	store, err := pagecache.OpenStore(ctx, cfg.Cache.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("open page cache: %w", err)
	}
	cacheOpts := []pagecache.Option{pagecache.WithTTL(cfg.Cache.TTL)}
	if cfg.Cache.Compress {
		cacheOpts = append(cacheOpts, pagecache.WithCompression())
	}
	cache, err := pagecache.New(store, cacheOpts...)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init page cache: %w", err)
	}

	secretKey := cfg.Auth.SecretKey
	if secretKey == "" {
		logger.Warn("auth.secret_key is empty, generated a temporary key; sessions will not survive a restart")
		secretKey = auth.GenerateKey()
	}
	sessions, err := auth.NewSessions(secretKey, cfg.Auth.SessionLifetime)
	if err != nil {
		_ = cache.Close()
		return nil, err
	}

	accounts := cfg.Auth.Accounts()
	principals := make([]auth.Principal, 0, len(accounts))
	for _, u := range accounts {
		principals = append(principals, u.Principal)
	}

	broker := sse.NewBroker(2 * time.Second)
	csrfKey := sha256.Sum256([]byte(secretKey))

	srv, err := web.New(web.Config{
		SiteName:         cfg.Blog.Title,
		SiteDescription:  cfg.Blog.Description,
		Author:           cfg.Blog.Author,
		BaseURL:          cfg.App.BaseURL,
		CookieName:       cfg.Auth.CookieName,
		SecureCookies:    cfg.Auth.SecureCookie,
		RevalidateSecret: cfg.Revalidate.Secret,
		CSRFKey:          csrfKey[:],
		TrustedOrigins:   cfg.App.TrustedOrigins,
		Users:            principals,
	}, svc, auth.NewAuthenticator(accounts), sessions,
		web.WithCache(cache),
		web.WithBroker(broker),
		web.WithLogger(logger),
	)
	if err != nil {
		broker.Close()
		_ = cache.Close()
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/", srv.Routes())

	return &site{handler: r, cache: cache, broker: broker, snapshotDir: snapshotDir}, nil
}

// onSnapshotChange drops every cached render after the snapshot changes.
func onSnapshotChange(ctx context.Context, s *site, logger *slog.Logger) watch.ChangeFunc {
	return func(paths []string) {
		removed, err := s.cache.Invalidate(ctx, "/")
		if err != nil {
			logger.Error("invalidate after snapshot change", slog.String("error", err.Error()))
			return
		}
		for _, p := range paths {
			s.broker.PublishContentChanged(p)
		}
		s.broker.PublishRevalidated("/", removed, "watch")
		logger.Info("snapshot changed", slog.Int("files", len(paths)), slog.Int("removed", removed))
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.newLogger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("source", cfg.Notion.Source),
		slog.String("cache", cfg.Cache.Type),
		slog.String("base_url", cfg.App.BaseURL),
		slog.String("log_level", cfg.App.LogLevel.String()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s, err := app.newSite(ctx, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the snapshot directory when serving from files.
	if s.snapshotDir != "" {
		g.Go(func() error {
			return watch.Watch(gCtx, s.snapshotDir, watch.DefaultDebounce, logger, onSnapshotChange(gCtx, s, logger))
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
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

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		cancel()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the read-only blog tools over stdio. Logs go to stderr so
// they never mix with the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.newLogger()
	slog.SetDefault(logger)

	src, _, err := app.openSource(logger)
	if err != nil {
		return err
	}
	srv := mcpserver.New(app.newBlogService(src), app.config.App.BaseURL, Version)

	logger.Info("Starting MCP server on stdio", slog.String("source", app.config.Notion.Source))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

// RunSnapshot copies the configured source into dir.
func RunSnapshot(ctx context.Context, dir string, opts ...Option) (notion.SnapshotStats, error) {
	app, err := newApplication(opts)
	if err != nil {
		return notion.SnapshotStats{}, err
	}
	logger := app.newLogger()

	src, root, err := app.openSource(logger)
	if err != nil {
		return notion.SnapshotStats{}, err
	}
	if abs, _ := filepath.Abs(dir); root != "" && root == abs {
		return notion.SnapshotStats{}, fmt.Errorf("snapshot: source and destination are the same directory %s", root)
	}

	stats, err := notion.WriteSnapshot(ctx, src, dir, logger)
	if err != nil {
		return stats, err
	}
	logger.Info("Snapshot written", slog.String("dir", dir), slog.Int("pages", stats.Pages), slog.Int("blocks", stats.Blocks))
	return stats, nil
}
