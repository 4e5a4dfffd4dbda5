// Package main is the entry point for the API server.
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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lunatalk/lunatalk-server/internal/config"
	"github.com/lunatalk/lunatalk-server/internal/entitlement"
	"github.com/lunatalk/lunatalk-server/internal/handler"
	"github.com/lunatalk/lunatalk-server/internal/kv"
	"github.com/lunatalk/lunatalk-server/internal/llm"
	"github.com/lunatalk/lunatalk-server/internal/middleware"
	"github.com/lunatalk/lunatalk-server/internal/report"
	"github.com/lunatalk/lunatalk-server/internal/session"
	"github.com/lunatalk/lunatalk-server/pkg/logger"
	"github.com/lunatalk/lunatalk-server/pkg/tracing"
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

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "lunatalk-server", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect the persisted key-value store
	natsStore, err := kv.ConnectNATS(ctx, kv.NATSConfig{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
		Bucket:   cfg.NATSBucket,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer natsStore.Close()

	// Initialize the AI gateway
	gateway, err := llm.NewClient(llm.Provider(cfg.LLMProvider), llm.Options{
		RelayURL:        cfg.RelayURL,
		RelayAPIKey:     cfg.RelayAPIKey,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
	})
	if err != nil {
		log.Error("failed to create AI gateway client", zap.Error(err))
		os.Exit(1)
	}

	// Configure the entitlement provider once for the process. Missing
	// credentials disable the subscription feature, they never crash.
	oracle := entitlement.EnsureConfigured(entitlement.Config{
		APIKey:        cfg.EntitlementAPIKey,
		APIURL:        cfg.EntitlementAPIURL,
		EntitlementID: cfg.EntitlementID,
		PollInterval:  cfg.EntitlementPollInterval,
	}, log)
	if !oracle.IsConfigured() {
		log.Warn("entitlement provider not configured, subscriptions disabled")
	}

	// Report endpoint is optional; sessions refuse reports when absent.
	var reportClient *report.Client
	if cfg.ReportURL != "" {
		reportClient, err = report.NewClient(cfg.ReportURL, cfg.ReportAPIKey)
		if err != nil {
			log.Warn("failed to create report client, reporting disabled", zap.Error(err))
		}
	} else {
		log.Warn("report endpoint not configured, reporting disabled")
	}

	// Session manager
	manager := session.NewManager(natsStore, gateway, oracle, reportClient, log)
	defer manager.CloseAll()

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsStore)
	sessionHandler := handler.NewSessionHandler(manager, cfg.UpgradeURL, log)
	conversationHandler := handler.NewConversationHandler(manager, log)
	entitlementHandler := handler.NewEntitlementHandler(manager, oracle, log)
	scenarioHandler := handler.NewScenarioHandler(manager)
	settingsHandler := handler.NewSettingsHandler(manager, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		// Sessions
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Open)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Close)
				r.Post("/messages", sessionHandler.Send)
				r.Post("/reports", sessionHandler.Report)
			})
		})

		// Conversations
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Delete("/{id}", conversationHandler.Delete)
		})

		// Scenarios
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", scenarioHandler.List)
			r.Get("/daily", scenarioHandler.Daily)
		})

		// Entitlements
		r.Route("/entitlement", func(r chi.Router) {
			r.Get("/", entitlementHandler.Status)
			r.Get("/offerings", entitlementHandler.Offerings)
			r.Post("/purchase", entitlementHandler.Purchase)
			r.Post("/restore", entitlementHandler.Restore)
		})

		// Settings
		r.Get("/settings", settingsHandler.GetSettings)
		r.Put("/settings", settingsHandler.PutSettings)
		r.Get("/survey", settingsHandler.GetSurvey)
		r.Put("/survey", settingsHandler.PutSurvey)
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
