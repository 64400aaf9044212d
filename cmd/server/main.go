package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/go-helpdesk/internal/aircall"
	"github.com/hugh/go-helpdesk/internal/api"
	"github.com/hugh/go-helpdesk/internal/api/middleware"
	"github.com/hugh/go-helpdesk/internal/auth"
	"github.com/hugh/go-helpdesk/internal/database"
	"github.com/hugh/go-helpdesk/internal/mailer"
	"github.com/hugh/go-helpdesk/internal/reports"
	"github.com/hugh/go-helpdesk/internal/tickets"
	"github.com/hugh/go-helpdesk/pkg/config"
	"github.com/hugh/go-helpdesk/pkg/queue"
	"github.com/hugh/go-helpdesk/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting helpdesk server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	systemUserID, err := uuid.Parse(cfg.Aircall.SystemUserID)
	if err != nil {
		logger.Error("invalid AIRCALL_SYSTEM_USER_ID", "error", err)
		os.Exit(1)
	}

	trustedProxies, err := middleware.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		logger.Error("invalid RATE_LIMIT_TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}

	// Redis is optional for the API; without it exports are disabled
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis", "error", err)
		redisClient.Close()
		redisClient = nil
	}

	var asynqClient *asynq.Client
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
	}

	var sender mailer.Sender = mailer.DisabledSender{Logger: logger}
	if cfg.Mail.Enabled() {
		sender = mailer.NewSMTPSender(cfg.Mail)
	} else {
		logger.Warn("MAIL_HOST not set, account emails will not be delivered")
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService, mailer.New(sender, cfg.Mail.LinkBaseURL), logger, auth.Options{
		ExposeSecrets: cfg.Server.IsDevelopment(),
	})
	ticketService := tickets.NewService(db)
	aircallService := aircall.NewService(db, ticketService, logger, aircall.Options{
		WebhookToken: cfg.Aircall.WebhookToken,
		SystemUserID: systemUserID,
	})
	if cfg.Aircall.WebhookToken == "" {
		logger.Warn("AIRCALL_WEBHOOK_TOKEN not set, webhook deliveries are not authenticated")
	}

	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		JWTService:     jwtService,
		AuthService:    authService,
		Aircall:        aircallService,
		Tickets:        ticketService,
		Reports:        reports.NewService(db),
		AsynqClient:    asynqClient,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimitReqs:  cfg.RateLimit.Requests,
		RateLimitSecs:  cfg.RateLimit.WindowSeconds,
		TrustedProxies: trustedProxies,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if asynqClient != nil {
		asynqClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
