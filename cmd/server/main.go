// crackd - guided problem-solving mentor server
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/crackd/internal/api"
	"github.com/ashureev/crackd/internal/config"
	"github.com/ashureev/crackd/internal/convlog"
	"github.com/ashureev/crackd/internal/grpchealth"
	"github.com/ashureev/crackd/internal/identity"
	"github.com/ashureev/crackd/internal/mentor"
	"github.com/ashureev/crackd/internal/middleware"
	"github.com/ashureev/crackd/internal/session"
	"github.com/ashureev/crackd/internal/store"
	"github.com/ashureev/crackd/internal/stream"
	"github.com/ashureev/crackd/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

//nolint:funlen // Startup wiring is intentionally sequential to keep dependency setup explicit.
func run(cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()
	slog.Info("Database connected", "path", cfg.DBPath)

	catalog, err := mentor.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load mentor catalog: %w", err)
	}
	dispatcher := mentor.NewDispatcher(catalog, logger)
	slog.Info("Mentor catalog loaded", "problems", len(catalog.Problems), "rules", len(dispatcher.Rules()))

	transcripts, err := convlog.New(convlog.Config{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
		MaxSizeMB:     cfg.ConversationLog.MaxSizeMB,
		MaxBackups:    cfg.ConversationLog.MaxBackups,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize conversation logger: %w", err)
	}
	defer func() {
		if closeErr := transcripts.Close(); closeErr != nil {
			slog.Warn("Failed to close conversation logger", "error", closeErr)
		}
	}()

	hub := stream.NewHub()
	registry := session.NewRegistry(dispatcher, session.RegistryConfig{
		TTL:               cfg.SessionTTL,
		ReplyTimeout:      cfg.ReplyTimeout,
		ComposingInterval: cfg.ComposingInterval,
		Observers:         hub.Observer,
		Recorder:          transcripts,
		Logger:            logger,
	})
	defer registry.Close()

	limiter := api.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer limiter.Close()

	apiHandler := api.NewHandler(api.Deps{
		Repo:         repo,
		Registry:     registry,
		Catalog:      catalog,
		Limiter:      limiter,
		MaxBody:      cfg.MaxRequestBody,
		OnSessionEnd: hub.End,
		Logger:       logger,
	})
	healthHandler := api.NewHealthHandler(repo, registry)
	wsHandler := stream.NewHandler(stream.Config{
		Repo:           repo,
		Registry:       registry,
		Hub:            hub,
		Limiter:        limiter,
		AllowedOrigins: cfg.AllowedOrigins(),
		IsDev:          cfg.IsDevelopment(),
		MaxMessageSize: cfg.MaxRequestBody,
	})

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins(), identity.SessionHeaderName))

	// Public routes.
	healthHandler.RegisterHealth(r)

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		apiHandler.RegisterRoutes(r)
		r.Get("/ws/session", wsHandler.ServeHTTP)
	})

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// WriteTimeout stays 0: websocket streams are long-lived.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	registry.StartSweeper(gctx, session.DefaultSweepInterval)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if cfg.GRPCHealthPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCHealthPort)
		if err != nil {
			stop()
			return errors.Join(fmt.Errorf("listen grpc health: %w", err), g.Wait())
		}
		health := grpchealth.New(healthHandler, grpchealth.DefaultCheckInterval, logger)
		g.Go(func() error {
			return health.Serve(gctx, lis)
		})
	}

	return g.Wait()
}
