// Package main is the entry point for a coordinator node.
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
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hivechat/room-coordinator/internal/adapter"
	"github.com/hivechat/room-coordinator/internal/config"
	"github.com/hivechat/room-coordinator/internal/coordinator"
	"github.com/hivechat/room-coordinator/internal/directory"
	"github.com/hivechat/room-coordinator/internal/engine"
	"github.com/hivechat/room-coordinator/internal/handler"
	"github.com/hivechat/room-coordinator/internal/llm"
	"github.com/hivechat/room-coordinator/internal/middleware"
	"github.com/hivechat/room-coordinator/internal/model"
	"github.com/hivechat/room-coordinator/internal/registry"
	"github.com/hivechat/room-coordinator/internal/storage"
	"github.com/hivechat/room-coordinator/internal/transport"
	"github.com/hivechat/room-coordinator/internal/ws"
	"github.com/hivechat/room-coordinator/pkg/logger"
	"github.com/hivechat/room-coordinator/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting coordinator node", zap.String("node_id", cfg.NodeID))

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "room-coordinator", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open storage
	store, err := storage.Open(cfg.SQLitePath)
	if err != nil {
		log.Error("failed to open storage", zap.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	// Connect to NATS
	natsTransport, err := transport.Connect(ctx, transport.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, cfg.NodeID, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer natsTransport.Close()

	// Local session gateway; inbound commands (local and from remote nodes)
	// land here and reach connected browser sessions.
	hub := ws.NewHub(log)
	natsTransport.SetLocalHandler(func(cmd *model.RoomUpdate) {
		hub.Deliver(cmd)
	})
	inbound, err := natsTransport.SubscribeInbound()
	if err != nil {
		log.Error("failed to subscribe to node subject", zap.Error(err))
		os.Exit(1)
	}
	defer inbound.Unsubscribe()

	// Provider clients for the ai-api adapter
	providers := make(map[string]llm.Client)
	if cfg.AnthropicAPIKey != "" {
		if client, err := llm.NewAnthropicClient(cfg.AnthropicAPIKey); err == nil {
			providers[llm.ProviderAnthropic] = client
		} else {
			log.Warn("failed to create Anthropic client", zap.Error(err))
		}
	}
	if cfg.OpenAIAPIKey != "" {
		if client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey); err == nil {
			providers[llm.ProviderOpenAI] = client
		} else {
			log.Warn("failed to create OpenAI client", zap.Error(err))
		}
	}
	if cfg.LocalLLMBaseURL != "" {
		if client, err := llm.NewLocalClient(cfg.LocalLLMBaseURL); err == nil {
			providers[llm.ProviderLocal] = client
		}
	}

	// Core components
	dir := directory.New()
	dispatcher := directory.NewDispatcher(dir, natsTransport, cfg.NodeID, log)
	reg := registry.New()
	distributor := registry.NewDistributor(reg, store, natsTransport, cfg.NodeID, log)
	decisionEngine := engine.New()
	invoker := adapter.NewInvoker(providers, cfg.WebhookTimeout, nil, log)
	coord := coordinator.New(dir, dispatcher, reg, distributor, decisionEngine, invoker, store, cfg.NodeID, log)

	// Periodic disconnected-session sweep
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				coord.Sweep(hub.ActiveSessions())
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsTransport)
	roomHandler := handler.NewRoomHandler(coord, log)
	messageHandler := handler.NewMessageHandler(coord, log)
	streamHandler := handler.NewStreamHandler(hub, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/stream", streamHandler.Stream)

		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", roomHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Post("/join", roomHandler.Join)
				r.Post("/leave", roomHandler.Leave)
				r.Get("/participants", roomHandler.Participants)
				r.Get("/nodes", roomHandler.Nodes)

				r.Get("/messages", messageHandler.List)
				r.Post("/messages", messageHandler.Post)
			})
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
