// Command safedesk runs the SafeDesk core service: the moderated
// customer-service conversation pipeline behind a JSON API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	sdhttp "github.com/safedesk/safedesk/internal/adapter/http"
	"github.com/safedesk/safedesk/internal/adapter/litellm"
	sdnats "github.com/safedesk/safedesk/internal/adapter/nats"
	"github.com/safedesk/safedesk/internal/adapter/otel"
	"github.com/safedesk/safedesk/internal/adapter/postgres"
	"github.com/safedesk/safedesk/internal/adapter/qdrant"
	"github.com/safedesk/safedesk/internal/adapter/ristretto"
	"github.com/safedesk/safedesk/internal/adapter/tavily"
	"github.com/safedesk/safedesk/internal/adapter/ws"
	"github.com/safedesk/safedesk/internal/config"
	"github.com/safedesk/safedesk/internal/domain/review"
	"github.com/safedesk/safedesk/internal/domain/route"
	"github.com/safedesk/safedesk/internal/logger"
	"github.com/safedesk/safedesk/internal/middleware"
	"github.com/safedesk/safedesk/internal/port/websearch"
	"github.com/safedesk/safedesk/internal/resilience"
	"github.com/safedesk/safedesk/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLogger := logger.New(cfg.Logging)
	defer closeLogger.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"model", cfg.LiteLLM.Model,
		"rubric", cfg.Pipeline.Rubric,
	)

	ctx := context.Background()

	// --- Observability ---
	otelShutdown, err := otel.Init(ctx, cfg.Logging.Service, cfg.Otel.Endpoint)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Error("otel shutdown failed", "error", err)
		}
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := sdnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	knowledgeCache, err := ristretto.New(cfg.Cache.MaxCostBytes)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer knowledgeCache.Close()

	// --- Gateways ---
	llm := litellm.NewClient(cfg.LiteLLM.URL, cfg.LiteLLM.MasterKey, cfg.LiteLLM.Model,
		cfg.LiteLLM.Timeout, cfg.LiteLLM.MaxRetries)
	llm.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	var knowledge *service.KnowledgeService
	if cfg.Qdrant.URL != "" {
		kb := qdrant.NewClient(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, cfg.Qdrant.Timeout)
		kb.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
		knowledge = service.NewKnowledgeService(kb, knowledgeCache, cfg.Cache.TTL, log)
	}

	var web websearch.Gateway
	if cfg.Tavily.APIKey != "" {
		tv := tavily.NewClient(cfg.Tavily.URL, cfg.Tavily.APIKey, cfg.Tavily.Timeout)
		tv.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
		web = tv
	}

	// --- Pipeline ---
	store := postgres.NewStore(pool)
	hub := ws.NewHub()

	rubric, err := review.Resolve(cfg.Pipeline.Rubric, cfg.Pipeline.RubricDir)
	if err != nil {
		return fmt.Errorf("rubric: %w", err)
	}

	router := service.NewRouterService(llm, store, cfg.LiteLLM.Model,
		cfg.Pipeline.RouteConfidenceThreshold, cfg.Pipeline.HistoryTurns, log)
	reviewer := service.NewReviewerService(llm, &rubric, cfg.LiteLLM.Model, log)

	responders := map[route.Target]service.Responder{
		route.TargetOrder:   service.NewOrderResponder(store, llm, cfg.LiteLLM.Model, log),
		route.TargetProduct: service.NewProductResponder(store, llm, cfg.LiteLLM.Model, log),
		route.TargetSupport: service.NewSupportResponder(store, knowledge, web, llm, cfg.LiteLLM.Model, log),
	}

	pipeline := service.NewPipelineService(router, responders, reviewer, store,
		queue, hub, metrics, cfg.Pipeline.MaxConcurrentTurns, log)

	// --- HTTP ---
	handlers := sdhttp.NewHandlers(pipeline, store, hub)

	r := chi.NewRouter()
	r.Use(sdhttp.SecurityHeaders)
	r.Use(sdhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(sdhttp.Logger)
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst).Handler)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Get("/healthz", handlers.Health)
	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.Auth.KeyHashes))
		sdhttp.MountRoutes(r, handlers)
	})

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
