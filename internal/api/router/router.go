package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jdelrio/wabulk/internal/http/handlers"
	httpmiddleware "github.com/jdelrio/wabulk/internal/http/middleware"
	"github.com/jdelrio/wabulk/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Dispatch           *handlers.DispatchHandler
	StatusCallback     *handlers.StatusCallbackHandler
	Report             *handlers.ReportHandler
	StatusDetail       *handlers.StatusDetailHandler
	Health             *handlers.HealthHandler
	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (dispatch, webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.Health.HandleHealth)
		public.Get("/tester", handlers.HandleTester)
		public.Post("/send-template-bulk", cfg.Dispatch.HandleSendBulk)
		public.Post("/twilio/status", cfg.StatusCallback.HandleStatus)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Operator endpoints; JWT-protected only when a secret is configured.
	r.Group(func(admin chi.Router) {
		if cfg.AdminAuthSecret != "" {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		}
		admin.Get("/report", cfg.Report.HandleReport)
		admin.Get("/status-detail/{sid}", cfg.StatusDetail.HandleStatusDetail)
	})

	return r
}
