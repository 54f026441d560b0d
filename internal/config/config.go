package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Used when JWT_SECRET is unset in development only.
	devJWTSecret = "piggybank-development-secret-do-not-deploy"
)

// Config holds application configuration
type Config struct {
	Environment string
	ServerPort  string

	DatabaseType string
	DatabasePath string
	DatabaseURL  string

	JWTSecret        string
	SessionDuration  time.Duration
	PasswordHashCost int
	PINHashCost      int

	InvitationTTL    time.Duration
	LedgerMaxRetries int

	AuthRateLimit    int
	AuthRateWindow   time.Duration
	TrustedProxies   []string
	LoginMaxFailures int
	LoginLockout     time.Duration
	CORSOrigins      []string

	LogLevel  string
	LogFormat string

	SESRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string
	EmailDebug   bool

	AMQPURL      string
	AMQPExchange string

	SweepInterval time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is merged first when present.
func Load() *Config {
	_ = godotenv.Load()

	env := getEnv("ENVIRONMENT", EnvDevelopment)
	secret := os.Getenv("JWT_SECRET")
	if secret == "" && env == EnvDevelopment {
		secret = devJWTSecret
	}

	return &Config{
		Environment:      env,
		ServerPort:       getEnv("PORT", "8080"),
		DatabaseType:     getEnv("DB_TYPE", "sqlite"),
		DatabasePath:     getEnv("DB_PATH", "./piggybank.db"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        secret,
		SessionDuration:  getEnvDuration("SESSION_DURATION", 24*time.Hour),
		PasswordHashCost: getEnvInt("PASSWORD_HASH_COST", 12),
		PINHashCost:      getEnvInt("PIN_HASH_COST", 12),
		InvitationTTL:    getEnvDuration("INVITATION_TTL", 7*24*time.Hour),
		LedgerMaxRetries: getEnvInt("LEDGER_MAX_RETRIES", 5),
		AuthRateLimit:    getEnvInt("AUTH_RATE_LIMIT", 10),
		AuthRateWindow:   getEnvDuration("AUTH_RATE_WINDOW", time.Minute),
		TrustedProxies:   splitList(os.Getenv("TRUSTED_PROXIES")),
		LoginMaxFailures: getEnvInt("LOGIN_MAX_FAILURES", 5),
		LoginLockout:     getEnvDuration("LOGIN_LOCKOUT", 15*time.Minute),
		CORSOrigins:      splitList(os.Getenv("CORS_ORIGINS")),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
		SESRegion:        getEnv("SES_REGION", "us-east-1"),
		SESFromEmail:     os.Getenv("SES_FROM_EMAIL"),
		SESFromName:      getEnv("SES_FROM_NAME", "Piggy Bank"),
		AppBaseURL:       getEnv("APP_BASE_URL", "http://localhost:8080"),
		EmailDebug:       getEnvBool("EMAIL_DEBUG", false),
		AMQPURL:          os.Getenv("AMQP_URL"),
		AMQPExchange:     getEnv("AMQP_EXCHANGE", "piggybank"),
		SweepInterval:    getEnvDuration("SWEEP_INTERVAL", time.Hour),
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.ServerPort == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}

	switch strings.ToLower(c.DatabaseType) {
	case "sqlite", "sqlite3", "":
		if c.DatabasePath == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite"))
		}
	case "postgres", "postgresql", "mysql":
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for %s", c.DatabaseType))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_TYPE %q", c.DatabaseType))
	}

	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	if c.SessionDuration <= 0 {
		errs = append(errs, errors.New("SESSION_DURATION must be positive"))
	}
	if c.InvitationTTL <= 0 {
		errs = append(errs, errors.New("INVITATION_TTL must be positive"))
	}
	if c.PasswordHashCost < 4 || c.PasswordHashCost > 31 {
		errs = append(errs, errors.New("PASSWORD_HASH_COST must be between 4 and 31"))
	}
	if c.PINHashCost < 4 || c.PINHashCost > 31 {
		errs = append(errs, errors.New("PIN_HASH_COST must be between 4 and 31"))
	}
	if c.LedgerMaxRetries < 1 {
		errs = append(errs, errors.New("LEDGER_MAX_RETRIES must be at least 1"))
	}
	if c.AuthRateLimit < 1 || c.AuthRateWindow <= 0 {
		errs = append(errs, errors.New("AUTH_RATE_LIMIT and AUTH_RATE_WINDOW must be positive"))
	}
	if c.LoginMaxFailures < 1 || c.LoginLockout <= 0 {
		errs = append(errs, errors.New("LOGIN_MAX_FAILURES and LOGIN_LOCKOUT must be positive"))
	}
	for _, proxy := range c.TrustedProxies {
		if !validProxy(proxy) {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP address or CIDR range", proxy))
		}
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be positive"))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func validProxy(entry string) bool {
	if strings.Contains(entry, "/") {
		_, err := netip.ParsePrefix(entry)
		return err == nil
	}
	_, err := netip.ParseAddr(entry)
	return err == nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
