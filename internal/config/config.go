package config

import (
	"os"
	"strconv"
	"time"

	"ceseminars/internal/cache"
	"ceseminars/internal/database"
	"ceseminars/internal/external"
	"ceseminars/internal/messaging"
	"ceseminars/internal/storage"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// MakeupApprovalTTL bounds how long an approved makeup without a
	// requested session stays usable.
	MakeupApprovalTTL time.Duration

	Database      database.Config
	NATS          messaging.Config
	Valkey        cache.Config
	Elasticsearch ElasticsearchConfig
	Mail          external.MailConfig
	Renderer      external.RendererConfig
	Webhook       external.WebhookConfig
	Storage       storage.Config
	Scheduler     SchedulerConfig
}

// SchedulerConfig holds cron specs for the worker sweeps
type SchedulerConfig struct {
	MakeupExpirySpec    string
	SessionReminderSpec string
	SweepTimeout        time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:              getEnv("PORT", "8081"),
		GinMode:           getEnv("GIN_MODE", "debug"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		RequestTimeout:    time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,
		MakeupApprovalTTL: time.Duration(getEnvInt("MAKEUP_APPROVAL_TTL_DAYS", 90)) * 24 * time.Hour,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "ceseminars"),
			Password:           getEnv("DB_PASSWORD", "ceseminars"),
			DBName:             getEnv("DB_NAME", "ceseminars"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			ApplicationName:    getEnv("DB_APPLICATION_NAME", "ceseminars"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
			ConnectAttempts:    getEnvInt("DB_CONNECT_ATTEMPTS", 5),
		},

		NATS: messaging.Config{
			URL:         getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID:   getEnv("NATS_CLUSTER_ID", "ceseminars"),
			ClientID:    getEnv("NATS_CLIENT_ID", "ceseminars-api"),
			AckWait:     getEnvDuration("NATS_ACK_WAIT", 30*time.Second),
			MaxInflight: getEnvInt("NATS_MAX_INFLIGHT", 1),
		},

		Valkey: cache.Config{
			Addr:         getEnv("VALKEY_ADDR", "localhost:6379"),
			Password:     os.Getenv("VALKEY_PASSWORD"),
			UsersHashKey: getEnv("VALKEY_USERS_HASH_KEY", "users:auth"),
			CreditTTL:    time.Duration(getEnvInt("VALKEY_CREDIT_TTL_MIN", 60)) * time.Minute,
		},

		Elasticsearch: LoadElasticsearchConfig(),

		Mail: external.MailConfig{
			APIKey:    os.Getenv("SENDGRID_API_KEY"),
			FromName:  getEnv("MAIL_FROM_NAME", "CE Seminars"),
			FromEmail: getEnv("MAIL_FROM_EMAIL", "no-reply@example.com"),
			Templates: map[string]string{
				external.TemplateMakeupSubmitted: os.Getenv("MAIL_TEMPLATE_MAKEUP_SUBMITTED"),
				external.TemplateMakeupApproved:  os.Getenv("MAIL_TEMPLATE_MAKEUP_APPROVED"),
				external.TemplateMakeupDenied:    os.Getenv("MAIL_TEMPLATE_MAKEUP_DENIED"),
				external.TemplateMakeupExpired:   os.Getenv("MAIL_TEMPLATE_MAKEUP_EXPIRED"),
				external.TemplateCertificate:     os.Getenv("MAIL_TEMPLATE_CERTIFICATE"),
				external.TemplateSessionReminder: os.Getenv("MAIL_TEMPLATE_SESSION_REMINDER"),
				external.TemplateRegistration:    os.Getenv("MAIL_TEMPLATE_REGISTRATION"),
			},
		},

		Renderer: external.RendererConfig{
			BaseURL:  getEnv("PDF_RENDERER_URL", "http://localhost:3000"),
			APIKey:   os.Getenv("PDF_RENDERER_API_KEY"),
			Template: getEnv("PDF_CERTIFICATE_TEMPLATE", "ce-certificate"),
			Timeout:  time.Duration(getEnvInt("PDF_RENDERER_TIMEOUT_SEC", 30)) * time.Second,
		},

		Webhook: external.WebhookConfig{
			Secret: os.Getenv("ORDER_WEBHOOK_SECRET"),
		},

		Storage: storage.Config{
			Region:        os.Getenv("AWS_REGION"),
			Bucket:        os.Getenv("S3_BUCKET_NAME"),
			PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		},

		Scheduler: SchedulerConfig{
			MakeupExpirySpec:    getEnv("MAKEUP_EXPIRY_CRON", "*/15 * * * *"),
			SessionReminderSpec: getEnv("SESSION_REMINDER_CRON", "0 7 * * *"),
			SweepTimeout:        time.Duration(getEnvInt("SWEEP_TIMEOUT_MIN", 4)) * time.Minute,
		},
	}
}

// getEnv returns the environment value or the default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer environment value or the default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool accepts anything strconv.ParseBool does
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration parses values like "5s" or "2m"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
