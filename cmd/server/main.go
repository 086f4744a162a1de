// PairUp - Date Night Planning Server
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

	"github.com/pairup-labs/pairup/internal/api"
	"github.com/pairup-labs/pairup/internal/authz"
	"github.com/pairup-labs/pairup/internal/capability"
	"github.com/pairup-labs/pairup/internal/config"
	"github.com/pairup-labs/pairup/internal/decision"
	"github.com/pairup-labs/pairup/internal/hub"
	"github.com/pairup-labs/pairup/internal/middleware"
	"github.com/pairup-labs/pairup/internal/orchestrator"
	"github.com/pairup-labs/pairup/internal/portrait"
	"github.com/pairup-labs/pairup/internal/responder"
	"github.com/pairup-labs/pairup/internal/room"
	"github.com/pairup-labs/pairup/internal/store"
	"github.com/pairup-labs/pairup/internal/ws"
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

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
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

	rooms := room.NewStore()
	connHub := hub.New()
	registry := capability.NewRegistry()
	connector := capability.NewMCPConnector(cfg.MCPEndpoints)

	// Deferred authorization is optional; without provider settings,
	// auth-gated actions fail at proposal time with a clear event.
	var provider authz.Provider
	if cfg.OAuthEnabled() {
		p, err := authz.NewOAuthProvider(authz.OAuthConfig{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			AuthURL:      cfg.OAuth.AuthURL,
			TokenURL:     cfg.OAuth.TokenURL,
			RedirectURL:  cfg.OAuth.RedirectURL,
			Scopes:       cfg.OAuth.Scopes,
		})
		if err != nil {
			slog.Error("Failed to configure authorization provider", "error", err)
			os.Exit(1)
		}
		provider = p
		slog.Info("Authorization provider configured")
	} else {
		slog.Info("Authorization provider disabled (OAUTH_* not set)")
	}

	var generator portrait.Generator
	if cfg.OpenAIAPIKey != "" {
		generator = portrait.NewOpenAIGenerator(cfg.OpenAIAPIKey)
		slog.Info("Portrait generation enabled")
	} else {
		slog.Info("Portrait generation disabled (OPENAI_API_KEY not set)")
	}

	// Conversational responder gRPC client (optional).
	var resp responder.Responder
	if cfg.ResponderAddr != "" {
		slog.Info("Connecting to responder service via gRPC", "address", cfg.ResponderAddr)
		grpcClient, err := responder.NewGrpcClient(cfg.ResponderAddr, logger)
		if err != nil {
			slog.Warn("Failed to connect to responder, replies will be disabled", "error", err)
		} else {
			defer grpcClient.Close()
			resp = grpcClient
		}
	}
	if resp == nil {
		slog.Info("Responder disabled (RESPONDER_ADDR not set or connection failed)")
	}

	coordinator := decision.NewCoordinator(provider, connector, registry, connHub)
	orch := orchestrator.New(orchestrator.Config{
		Rooms:       rooms,
		Hub:         connHub,
		Coordinator: coordinator,
		Portraits:   portrait.NewGateway(generator, 90*time.Second),
		Registry:    registry,
		Responder:   resp,
		Repo:        repo,
		ArtworkWait: cfg.ArtworkWait,
	})

	// Initialize handlers.
	baseHandler := api.NewHandler(cfg.FrontendURL)
	roomHandler := api.NewRoomHandler(baseHandler, orch)
	authHandler := api.NewAuthHandler(baseHandler, orch)
	historyHandler := api.NewHistoryHandler(repo)
	healthHandler := api.NewHealthHandler(repo)
	wsHandler := ws.NewWebSocketHandler(rooms, connHub, orch, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	healthHandler.RegisterHealth(r)
	roomHandler.RegisterRoutes(r)
	authHandler.RegisterRoutes(r)
	historyHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/room", wsHandler.ServeHTTP)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket connections stay open indefinitely
		IdleTimeout:  120 * time.Second,
	}

	// Start the inert-room reaper.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	room.StartReaper(ctx, rooms, cfg.RoomTTL, orch.ArchiveRoom)
	slog.Info("Room reaper started", "room_ttl", cfg.RoomTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
