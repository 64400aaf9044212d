package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/hugh/go-helpdesk/internal/aircall"
	"github.com/hugh/go-helpdesk/internal/api/handlers"
	"github.com/hugh/go-helpdesk/internal/api/middleware"
	"github.com/hugh/go-helpdesk/internal/auth"
	"github.com/hugh/go-helpdesk/internal/database/models"
	"github.com/hugh/go-helpdesk/internal/reports"
	"github.com/hugh/go-helpdesk/internal/tickets"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const exportLimit = 20

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	AuthService    *auth.Service
	Aircall        *aircall.Service
	Tickets        *tickets.Service
	Reports        *reports.Service
	AsynqClient    *asynq.Client // nil disables report exports
	AllowedOrigins []string      // CORS allowed origins
	RateLimitReqs  int           // Rate limit requests per window on public auth routes
	RateLimitSecs  int           // Rate limit window in seconds
	TrustedProxies middleware.TrustedProxies
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-Token"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	var queue handlers.TaskEnqueuer
	if cfg.AsynqClient != nil {
		queue = cfg.AsynqClient
	}

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	webhookHandler := handlers.NewWebhookHandler(cfg.Aircall, cfg.Logger)
	customerHandler := handlers.NewCustomerHandler(cfg.DB)
	ticketHandler := handlers.NewTicketHandler(cfg.DB, cfg.Tickets)
	callHandler := handlers.NewCallHandler(cfg.DB)
	reportHandler := handlers.NewReportHandler(cfg.Reports, queue, cfg.Logger)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Provider callbacks carry their own shared token
	r.Post("/webhooks/aircall", webhookHandler.Aircall)

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Route("/auth", func(r chi.Router) {
			if cfg.RateLimitReqs > 0 {
				r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs, cfg.TrustedProxies.ByIP))
			}
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/verify-email-code", authHandler.VerifyEmailCode)
			r.Get("/verify-email", authHandler.VerifyEmail)
			r.Post("/verify-email", authHandler.VerifyEmail)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/verify-reset-code", authHandler.VerifyResetCode)
			r.Post("/reset-password", authHandler.ResetPassword)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))

			r.Get("/me", authHandler.Me)

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", customerHandler.List)
				r.Post("/", customerHandler.Create)
				r.Get("/{id}", customerHandler.Get)
				r.Put("/{id}", customerHandler.Update)
				r.Delete("/{id}", customerHandler.Delete)
			})

			r.Route("/tickets", func(r chi.Router) {
				r.Get("/", ticketHandler.List)
				r.Post("/", ticketHandler.Create)
				r.Get("/{id}", ticketHandler.Get)
				r.Patch("/{id}", ticketHandler.Update)
			})

			r.Route("/calls", func(r chi.Router) {
				r.Get("/", callHandler.List)
				r.Get("/{id}", callHandler.Get)
			})
			r.Get("/webhook-events", callHandler.ListWebhookEvents)

			r.Route("/reports", func(r chi.Router) {
				r.Get("/tickets", reportHandler.Tickets)
				r.Get("/tickets.pdf", reportHandler.TicketsPDF)
				// Exports render in the worker; cap them per caller
				r.With(
					middleware.RequireRole(models.RoleAdmin, models.RoleAgent),
					middleware.RateLimit(exportLimit, 3600, cfg.TrustedProxies.ByUser),
				).Post("/tickets/export", reportHandler.Export)
			})
		})
	})

	return &Router{r}
}
