// Genomics XAI dashboard server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/genomics-xai/internal/api"
	"github.com/ashureev/genomics-xai/internal/audit"
	"github.com/ashureev/genomics-xai/internal/catalog"
	"github.com/ashureev/genomics-xai/internal/config"
	"github.com/ashureev/genomics-xai/internal/identity"
	"github.com/ashureev/genomics-xai/internal/middleware"
	"github.com/ashureev/genomics-xai/internal/stream"
	"github.com/ashureev/genomics-xai/internal/textgen"
	"github.com/ashureev/genomics-xai/internal/workspace"
	"github.com/ashureev/genomics-xai/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "provider", cfg.TextGen.Provider)

	repo, err := catalog.NewSQLite(cfg.CatalogDSN, catalog.NewUmapGenerator(cfg.UmapSeed, catalog.DefaultClusters))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close catalog", "error", closeErr)
		}
	}()
	if err := repo.Ping(context.Background()); err != nil {
		return err
	}
	slog.Info("Catalog ready", "dsn", cfg.CatalogDSN)

	recorder, err := audit.New(audit.Config{
		Enabled:   cfg.Audit.Enabled,
		Dir:       cfg.Audit.Dir,
		QueueSize: cfg.Audit.QueueSize,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := recorder.Close(); closeErr != nil {
			slog.Error("Failed to close audit log", "error", closeErr)
		}
	}()

	// A provider that cannot be built leaves every panel failing with the
	// fixed message instead of refusing to start.
	gen, err := textgen.New(cfg.TextGen.Provider, cfg.TextGen.Settings())
	if err != nil {
		slog.Warn("Text generation unavailable, panels will report failures", "provider", cfg.TextGen.Provider, "error", err)
	} else {
		defer func() {
			if closeErr := textgen.Close(gen); closeErr != nil {
				slog.Error("Failed to close text generator", "error", closeErr)
			}
		}()
	}

	hub := stream.NewHub(0)
	workspaces := workspace.NewManager(workspace.Deps{
		Generator: gen,
		Catalog:   repo,
		Audit:     recorder,
		Publisher: hub,
		Logger:    logger,
	}, hub.CloseSession)
	defer workspaces.Close()

	limiter := api.NewRateLimiter(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)
	defer limiter.Stop()

	apiHandler := api.NewHandler(repo, workspaces, limiter, cfg)
	wsHandler := stream.NewWebSocketHandler(hub, workspaces, cfg.FrontendURL, cfg.IsDevelopment())

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(allowedOrigins(cfg)))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	apiHandler.RegisterRoutes(r)
	r.Get("/ws/panels", wsHandler.ServeHTTP)
	r.Handle("/*", web.SPAHandler())

	// Streams are long-lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	workspaces.StartSweeper(gctx, cfg.Workspace.TTL, cfg.Workspace.SweepInterval)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")
		hub.CloseAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.FrontendURL == "" || cfg.IsDevelopment() {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}
