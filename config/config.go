package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config carries every tunable the engine recognizes. Loaded once in main
// and injected; nothing reads os.Getenv after startup.
type Config struct {
	Port        string
	Environment string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	JWTSecret string
	RedisAddr string

	// Paystack
	PaymentSecretKey string
	PaystackBaseURL  string
	GatewayTimeout   time.Duration

	// Ticket tokens
	QRSecretKey string

	// Retry policy
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	RetryMaxAttempts int
	RetryScanEvery   time.Duration

	OrganizerPercent int64

	StaleTxnAfter      time.Duration
	RateLimitPerMinute int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, using system environment")
	}

	return &Config{
		Port:        getEnv("PORT", "8002"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvAsInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "concert_manager"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		PaymentSecretKey: getEnv("PAYMENT_SECRET_KEY", ""),
		PaystackBaseURL:  getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		GatewayTimeout:   getEnvAsMillis("GATEWAY_TIMEOUT_MS", 15000),

		QRSecretKey: getEnv("QR_SECRET_KEY", ""),

		RetryBaseDelay:   getEnvAsMillis("RETRY_BASE_MS", 1000),
		RetryMaxDelay:    getEnvAsMillis("RETRY_MAX_MS", 30000),
		RetryMaxAttempts: getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
		RetryScanEvery:   getEnvAsMillis("RETRY_SCAN_INTERVAL_MS", 15000),

		OrganizerPercent: int64(getEnvAsInt("ORGANIZER_PERCENT", 90)),

		StaleTxnAfter:      time.Duration(getEnvAsInt("STALE_TXN_MINUTES", 30)) * time.Minute,
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "tickets@concert-manager.local"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warnf("invalid value for %s: %q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvAsMillis(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Millisecond
}
