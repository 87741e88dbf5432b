// Fabric Console server: JSON API, Fabric Intelligence agent, console pages
// and the chat sidebar.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/fabric-console/internal/agent"
	"github.com/ashureev/fabric-console/internal/api"
	"github.com/ashureev/fabric-console/internal/chat"
	"github.com/ashureev/fabric-console/internal/config"
	"github.com/ashureev/fabric-console/internal/console"
	"github.com/ashureev/fabric-console/internal/health"
	"github.com/ashureev/fabric-console/internal/identity"
	"github.com/ashureev/fabric-console/internal/middleware"
	"github.com/ashureev/fabric-console/internal/sidebar"
	"github.com/ashureev/fabric-console/internal/store"
	"github.com/ashureev/fabric-console/internal/sweeper"
	"github.com/ashureev/fabric-console/web"
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

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "ai_enabled", cfg.AIEnabled())

	repo, err := store.NewSQLite(cfg.DBPath, store.WithRetry(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay))
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	seeded, err := store.Seed(context.Background(), repo)
	if err != nil {
		slog.Error("Failed to seed demo catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("Catalog ready", "seeded", seeded)

	// Agent.
	tools := agent.NewToolbox(repo)
	var responder agent.Responder
	if cfg.AIEnabled() {
		responder = agent.NewOpenAIResponder(cfg.Agent.OpenAIAPIKey, cfg.Agent.Model, cfg.Agent.MaxToolRounds, tools)
		slog.Info("Fabric Intelligence using OpenAI", "model", cfg.Agent.Model)
	} else {
		responder = agent.NewRuleResponder(tools)
		slog.Info("OPENAI_API_KEY not set, Fabric Intelligence using rule responder")
	}

	conversationLogger, err := agent.NewConversationLogger(agent.ConversationLogConfig{
		Enabled:   cfg.ConversationLog.Enabled,
		Dir:       cfg.ConversationLog.Dir,
		QueueSize: cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}

	agentHandler := agent.NewHandler(
		agent.NewService(responder, cfg.Agent.Timeout),
		agent.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window),
		conversationLogger,
	)
	defer agentHandler.Close()

	// Order routing.
	var router agent.Router
	if cfg.AIEnabled() {
		// Routing asks for shipping options once per stocked location.
		router = agent.NewOpenAIRouter(cfg.Agent.OpenAIAPIKey, cfg.Agent.Model, max(cfg.Agent.MaxToolRounds, 8), tools)
	} else {
		router = agent.NewRuleRouter(tools)
	}
	routeLimiter := agent.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer routeLimiter.Stop()
	routeHandler := agent.NewRouteHandler(agent.NewRoutingService(router, cfg.Agent.Timeout), routeLimiter)

	// Console pages and the sidebar read the API over HTTP, like any client.
	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = "http://127.0.0.1:" + cfg.Port
	}
	pageClient, err := console.NewClient(apiBase)
	if err != nil {
		slog.Error("Invalid API_BASE_URL", "api_base_url", apiBase, "error", err)
		os.Exit(1)
	}
	pageHandler, err := console.NewPageHandler(pageClient, web.Templates(), cfg.AIEnabled())
	if err != nil {
		slog.Error("Failed to load page templates", "error", err)
		os.Exit(1)
	}

	sm := sidebar.NewSessionManager()
	sidebarHandler := sidebar.NewHandler(func(userID, sessionID string) (chat.Agent, error) {
		return console.NewClient(apiBase, console.WithAnonID(userID), console.WithSessionID(sessionID))
	}, repo, sm, cfg.FrontendURL, cfg.IsDevelopment())

	healthHandler := api.NewHealthHandler(repo, 0)
	catalogHandler := api.NewCatalogHandler(repo, cfg.AIEnabled())

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	healthHandler.RegisterHealth(r)
	r.Route("/api", func(r chi.Router) {
		catalogHandler.RegisterRoutes(r)
		agentHandler.RegisterRoutes(r)
		routeHandler.RegisterRoutes(r)
	})
	r.Get("/ws/chat", sidebarHandler.ServeHTTP)
	r.Handle("/static/*", http.StripPrefix("/static", web.StaticHandler()))
	pageHandler.RegisterRoutes(r)

	// Agent turns can take a while; no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper.Start(ctx, repo, cfg.UserIdleTTL, cfg.SweepInterval, sm.CloseUser)
	slog.Info("Idle user sweeper started", "user_idle_ttl", cfg.UserIdleTTL, "interval", cfg.SweepInterval)

	g, gctx := errgroup.WithContext(ctx)

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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			slog.Error("Failed to listen for gRPC health", "port", cfg.GRPCPort, "error", err)
			os.Exit(1)
		}
		hs := health.NewServer(repo, 0)
		g.Go(func() error { return hs.Serve(gctx, lis) })
	}

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
