package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/veriscope/console/internal/auth"
	"github.com/veriscope/console/internal/backend"
	"github.com/veriscope/console/internal/comparison"
	"github.com/veriscope/console/internal/console/handler"
	"github.com/veriscope/console/internal/events"
	"github.com/veriscope/console/internal/gateway"
	"github.com/veriscope/console/internal/history"
	"github.com/veriscope/console/internal/registry"
	"github.com/veriscope/console/internal/report"
	"github.com/veriscope/console/internal/snapshot"
	"github.com/veriscope/console/internal/workflow"
	"github.com/veriscope/console/pkg/config"
	"github.com/veriscope/console/pkg/httputil"
	"github.com/veriscope/console/pkg/logger"
	"github.com/veriscope/console/pkg/messaging"
)

type healthReporter interface {
	Health(ctx context.Context) map[string]string
}

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation("console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewWithLevel("console", cfg.Server.Environment, cfg.Server.LogLevel)
	log.Info().Str("backend", cfg.Backend.APIURL).Msg("starting verification console")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Snapshot store
	store, err := snapshot.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open snapshot store")
	}
	defer store.Close()

	// Comparison events are optional
	var rmq *messaging.RabbitMQ
	ev := events.New(nil, log)
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		ev, err = events.NewComparisonEventPublisher(rmq, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	}

	// Backend clients
	api, err := backend.NewClient(cfg.Backend, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create backend client")
	}
	files := registry.NewClient(api, log)
	comparer := comparison.NewClient(api, log)
	reports := history.NewClient(api, log)

	// Session and workflows
	manager := auth.NewManager(api, log)
	if s := manager.Initialize(ctx); s.Authenticated() {
		log.Info().Str("user", s.User.Username()).Msg("resumed operator session")
	}

	workspace := workflow.NewWorkspace(files, comparer, store, ev, log)
	workspace.Hydrate(ctx)
	if _, err := workspace.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("initial registry listing failed")
	}

	renderer := report.NewRenderer()

	storage, err := gateway.NewStorageProxy(api, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create storage proxy")
	}

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status":  "healthy",
			"service": "console",
			"store":   map[string]string{"driver": cfg.Store.Driver},
			"session": manager.Session().Status,
		}
		if hr, ok := store.(healthReporter); ok {
			status["store"] = hr.Health(r.Context())
		}
		if rmq != nil {
			status["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, status)
	})

	handler.Mount(r, handler.Handlers{
		Auth:        handler.NewAuthHandler(manager, log),
		Files:       handler.NewFileHandler(files, workspace, cfg.Backend.MaxUploadSize, log),
		Comparisons: handler.NewComparisonHandler(workspace, renderer, log),
		Reports:     handler.NewReportHandler(reports, renderer, log),
		Storage:     storage,
	}, manager.RequireSession)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	cancel()

	// Graceful shutdown. Comparisons can run for minutes; give them the
	// write timeout to finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout+5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
