package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Auth      AuthConfig      `mapstructure:",squash"`
	Notifier  NotifierConfig  `mapstructure:",squash"`
	Uploads   UploadsConfig   `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
	Health    HealthConfig    `mapstructure:",squash"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
	AppURL       string        `mapstructure:"APP_URL"`
}

type DatabaseConfig struct {
	// Driver is "sqlite3" (file-backed, default) or "postgres".
	Driver string `mapstructure:"DATABASE_DRIVER"`
	// URL is a file path for sqlite3 or a connection string for postgres.
	URL string `mapstructure:"DATABASE_URL"`
	// BusyTimeout bounds how long a writer waits for the store before
	// failing with a contention error.
	BusyTimeout     time.Duration `mapstructure:"DATABASE_BUSY_TIMEOUT"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
	MigrateOnStart  bool          `mapstructure:"DATABASE_MIGRATE_ON_START"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type SchedulerConfig struct {
	// OutboxRelaySpec is a six-field cron spec (with seconds).
	OutboxRelaySpec  string `mapstructure:"SCHEDULER_OUTBOX_RELAY_SPEC"`
	OutboxReportSpec string `mapstructure:"SCHEDULER_OUTBOX_REPORT_SPEC"`
	OutboxBatchSize  int    `mapstructure:"SCHEDULER_OUTBOX_BATCH_SIZE"`
	Timezone         string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"JWT_SECRET"`
	TokenTTL  time.Duration `mapstructure:"JWT_TOKEN_TTL"`
}

type NotifierConfig struct {
	// Transport is the primary delivery channel: smtp, outbox or none.
	Transport string `mapstructure:"NOTIFIER_TRANSPORT"`
	// Fallback is tried when the primary fails: outbox or none.
	Fallback     string `mapstructure:"NOTIFIER_FALLBACK"`
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     string `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SenderEmail  string `mapstructure:"SENDER_EMAIL"`
	OutboxKey    string `mapstructure:"NOTIFIER_OUTBOX_KEY"`
	MaxAttempts  int    `mapstructure:"NOTIFIER_MAX_ATTEMPTS"`
}

type UploadsConfig struct {
	Dir      string `mapstructure:"UPLOADS_DIR"`
	MaxBytes int64  `mapstructure:"UPLOADS_MAX_BYTES"`
}

type BusinessConfig struct {
	// CompletionEpsilon is the tolerance under which a loan counts as repaid.
	CompletionEpsilon string `mapstructure:"COMPLETION_EPSILON"`
}

type HealthConfig struct {
	Timeout time.Duration `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "45s")
	v.SetDefault("APP_URL", "http://localhost:8080")
	v.SetDefault("DATABASE_DRIVER", "sqlite3")
	v.SetDefault("DATABASE_URL", "loanlink.db")
	v.SetDefault("DATABASE_BUSY_TIMEOUT", "30s")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 10)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DATABASE_MIGRATE_ON_START", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SCHEDULER_OUTBOX_RELAY_SPEC", "0 * * * * *")
	v.SetDefault("SCHEDULER_OUTBOX_REPORT_SPEC", "0 0 * * * *")
	v.SetDefault("SCHEDULER_OUTBOX_BATCH_SIZE", 50)
	v.SetDefault("SCHEDULER_TIMEZONE", "UTC")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TOKEN_TTL", "24h")
	v.SetDefault("NOTIFIER_TRANSPORT", "smtp")
	v.SetDefault("NOTIFIER_FALLBACK", "outbox")
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SENDER_EMAIL", "")
	v.SetDefault("NOTIFIER_OUTBOX_KEY", "loanlink:notifications:outbox")
	v.SetDefault("NOTIFIER_MAX_ATTEMPTS", 5)
	v.SetDefault("UPLOADS_DIR", "uploads")
	v.SetDefault("UPLOADS_MAX_BYTES", 10<<20)
	v.SetDefault("COMPLETION_EPSILON", "0.01")
	v.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")

	// Try to read from .env file (optional); real environment wins
	_ = godotenv.Load()

	// Read from environment variables
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite3 or postgres, got %q", c.Database.Driver)
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Database.BusyTimeout <= 0 {
		return fmt.Errorf("DATABASE_BUSY_TIMEOUT must be greater than 0")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	c.Notifier.Transport = strings.ToLower(c.Notifier.Transport)
	c.Notifier.Fallback = strings.ToLower(c.Notifier.Fallback)
	if !oneOf(c.Notifier.Transport, "smtp", "outbox", "none") {
		return fmt.Errorf("NOTIFIER_TRANSPORT must be smtp, outbox or none, got %q", c.Notifier.Transport)
	}

	if !oneOf(c.Notifier.Fallback, "outbox", "none", "") {
		return fmt.Errorf("NOTIFIER_FALLBACK must be outbox or none, got %q", c.Notifier.Fallback)
	}

	if c.Notifier.MaxAttempts <= 0 {
		return fmt.Errorf("NOTIFIER_MAX_ATTEMPTS must be greater than 0")
	}

	// Validate completion epsilon
	eps, err := decimal.NewFromString(c.Business.CompletionEpsilon)
	if err != nil {
		return fmt.Errorf("COMPLETION_EPSILON must be a valid decimal: %w", err)
	}
	if eps.IsNegative() {
		return fmt.Errorf("COMPLETION_EPSILON must not be negative")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid location: %w", err)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// GetLogFormat returns LOG_FORMAT when set, otherwise text in development
// and json everywhere else.
func (c *Config) GetLogFormat() string {
	if c.Logging.Format != "" {
		return strings.ToLower(c.Logging.Format)
	}
	if c.IsDevelopment() {
		return "text"
	}
	return "json"
}

// GetCompletionEpsilon returns the completion tolerance as decimal
func (c *Config) GetCompletionEpsilon() decimal.Decimal {
	eps, _ := decimal.NewFromString(c.Business.CompletionEpsilon)
	return eps
}

// GetSchedulerLocation returns the scheduler time zone
func (c *Config) GetSchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RedisAddr returns host:port for the redis client
func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

func oneOf(v string, allowed ...string) bool {
	v = strings.ToLower(v)
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
