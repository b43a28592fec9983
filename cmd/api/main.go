package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jdelrio/wabulk/internal/api/router"
	appconfig "github.com/jdelrio/wabulk/internal/config"
	"github.com/jdelrio/wabulk/internal/dispatch"
	"github.com/jdelrio/wabulk/internal/http/handlers"
	"github.com/jdelrio/wabulk/internal/ledger"
	"github.com/jdelrio/wabulk/internal/messaging/twilioclient"
	"github.com/jdelrio/wabulk/internal/observability/metrics"
	"github.com/jdelrio/wabulk/internal/phone"
	"github.com/jdelrio/wabulk/pkg/logging"
)

func main() {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting wabulk API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"normalization_policy", cfg.NormalizationPolicy,
	)

	// Provider client; credentials are the only hard startup requirement.
	twilio, err := twilioclient.New(twilioclient.Config{
		BaseURL:             cfg.TwilioBaseURL,
		AccountSID:          cfg.TwilioAccountSID,
		AuthToken:           cfg.TwilioAuthToken,
		FromWhatsApp:        cfg.TwilioWhatsAppFrom,
		MessagingServiceSID: cfg.TwilioMessagingServiceSID,
		Timeout:             cfg.TwilioTimeout,
		MaxRetries:          cfg.TwilioMaxRetries,
		Backoff:             cfg.TwilioRetryBaseDelay,
		Logger:              logger.Logger,
	})
	if err != nil {
		logger.Error("failed to configure twilio client", "error", err)
		os.Exit(1)
	}

	normalizer, err := phone.NewNormalizer(phone.Policy(cfg.NormalizationPolicy), cfg.DefaultRegion)
	if err != nil {
		logger.Error("invalid normalization config", "error", err)
		os.Exit(1)
	}

	store := ledger.NewStore()
	registry := prometheus.NewRegistry()
	dispatchMetrics := metrics.NewDispatchMetrics(registry)

	callbackURL := dispatch.StatusCallbackBuilder(cfg.PublicBaseURL)
	if callbackURL() == "" {
		logger.Warn("no public https base url configured, status callbacks disabled",
			"public_base_url", cfg.PublicBaseURL,
		)
	}

	processor := dispatch.NewProcessor(dispatch.Config{
		Normalizer:  normalizer,
		Sender:      dispatch.NewTwilioSender(twilio),
		Store:       store,
		Logger:      logger,
		Metrics:     dispatchMetrics,
		CallbackURL: callbackURL,
	})

	// Initialize handlers
	dispatchHandler := handlers.NewDispatchHandler(handlers.DispatchConfig{
		Processor: processor,
		Logger:    logger,
	})
	statusCallbackCfg := handlers.StatusCallbackConfig{
		Store:   store,
		Logger:  logger,
		Metrics: dispatchMetrics,
	}
	if cfg.TwilioValidateSignature {
		statusCallbackCfg.AuthToken = cfg.TwilioAuthToken
		statusCallbackCfg.CallbackURL = callbackURL()
	}
	statusCallbackHandler := handlers.NewStatusCallbackHandler(statusCallbackCfg)
	statusDetailHandler := handlers.NewStatusDetailHandler(handlers.StatusDetailConfig{
		Client: twilio,
		Logger: logger,
	})

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		Dispatch:           dispatchHandler,
		StatusCallback:     statusCallbackHandler,
		Report:             handlers.NewReportHandler(store),
		StatusDetail:       statusDetailHandler,
		Health:             handlers.NewHealthHandler(twilio.AccountSIDLast4()),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
