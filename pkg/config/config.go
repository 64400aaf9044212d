package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Mail      MailConfig
	Aircall   AircallConfig
	Reports   ReportsConfig
	Worker    WorkerConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
	// TrustedProxies are CIDRs or addresses allowed to set forwarding headers.
	TrustedProxies []string
}

// MailConfig configures the outbound SMTP relay. An empty Host disables delivery.
type MailConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	TLS         bool
	LinkBaseURL string // prefix for verification and reset links
}

type AircallConfig struct {
	WebhookToken string // optional shared token checked against payload.token
	SystemUserID string // creator of tickets derived from calls
}

type ReportsConfig struct {
	Storage        string // local, s3, gcs
	Bucket         string
	Prefix         string
	LocalDir       string
	AWSRegion      string
	AWSAccessKey   string
	AWSSecretKey   string
	GCSCredentials string
}

type WorkerConfig struct {
	Concurrency   int
	ReconcileCron string
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func (m *MailConfig) Enabled() bool {
	return m.Host != ""
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("SERVER_ALLOWED_ORIGINS", "")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "helpdesk")
	v.SetDefault("DATABASE_PASSWORD", "helpdesk_secret")
	v.SetDefault("DATABASE_NAME", "helpdesk")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("RATE_LIMIT_TRUSTED_PROXIES", "")
	v.SetDefault("MAIL_HOST", "")
	v.SetDefault("MAIL_PORT", 587)
	v.SetDefault("MAIL_FROM", "no-reply@helpdesk.local")
	v.SetDefault("MAIL_TLS", true)
	v.SetDefault("MAIL_LINK_BASE_URL", "http://localhost:3000")
	v.SetDefault("AIRCALL_SYSTEM_USER_ID", "00000000-0000-0000-0000-000000000001")
	v.SetDefault("REPORTS_STORAGE", "local")
	v.SetDefault("REPORTS_PREFIX", "reports/")
	v.SetDefault("REPORTS_LOCAL_DIR", "./data/reports")
	v.SetDefault("REPORTS_AWS_REGION", "us-east-1")
	v.SetDefault("WORKER_CONCURRENCY", 10)
	v.SetDefault("WORKER_RECONCILE_CRON", "*/5 * * * *")

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(v.GetString("SERVER_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		RateLimit: RateLimitConfig{
			Requests:       v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds:  v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
			TrustedProxies: splitList(v.GetString("RATE_LIMIT_TRUSTED_PROXIES")),
		},
		Mail: MailConfig{
			Host:        v.GetString("MAIL_HOST"),
			Port:        v.GetInt("MAIL_PORT"),
			Username:    v.GetString("MAIL_USERNAME"),
			Password:    v.GetString("MAIL_PASSWORD"),
			From:        v.GetString("MAIL_FROM"),
			TLS:         v.GetBool("MAIL_TLS"),
			LinkBaseURL: v.GetString("MAIL_LINK_BASE_URL"),
		},
		Aircall: AircallConfig{
			WebhookToken: v.GetString("AIRCALL_WEBHOOK_TOKEN"),
			SystemUserID: v.GetString("AIRCALL_SYSTEM_USER_ID"),
		},
		Reports: ReportsConfig{
			Storage:        v.GetString("REPORTS_STORAGE"),
			Bucket:         v.GetString("REPORTS_BUCKET"),
			Prefix:         v.GetString("REPORTS_PREFIX"),
			LocalDir:       v.GetString("REPORTS_LOCAL_DIR"),
			AWSRegion:      v.GetString("REPORTS_AWS_REGION"),
			AWSAccessKey:   v.GetString("REPORTS_AWS_ACCESS_KEY_ID"),
			AWSSecretKey:   v.GetString("REPORTS_AWS_SECRET_ACCESS_KEY"),
			GCSCredentials: v.GetString("REPORTS_GCS_CREDENTIALS_FILE"),
		},
		Worker: WorkerConfig{
			Concurrency:   v.GetInt("WORKER_CONCURRENCY"),
			ReconcileCron: v.GetString("WORKER_RECONCILE_CRON"),
		},
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
