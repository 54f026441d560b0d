package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PORT", "")
	t.Setenv("INVITATION_TTL", "")

	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("expected port 8080, got %q", cfg.ServerPort)
	}
	if cfg.JWTSecret != devJWTSecret {
		t.Errorf("expected development secret fallback")
	}
	if cfg.InvitationTTL != 7*24*time.Hour {
		t.Errorf("expected 7 day invitation ttl, got %v", cfg.InvitationTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_DURATION", "30m")
	t.Setenv("LEDGER_MAX_RETRIES", "9")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg := Load()

	if cfg.ServerPort != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.ServerPort)
	}
	if cfg.SessionDuration != 30*time.Minute {
		t.Errorf("expected 30m session, got %v", cfg.SessionDuration)
	}
	if cfg.LedgerMaxRetries != 9 {
		t.Errorf("expected 9 retries, got %d", cfg.LedgerMaxRetries)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("unexpected cors origins %v", cfg.CORSOrigins)
	}
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := &Config{
		ServerPort:       "8080",
		DatabaseType:     "postgres",
		JWTSecret:        "short",
		SessionDuration:  time.Hour,
		InvitationTTL:    time.Hour,
		PasswordHashCost: 12,
		PINHashCost:      12,
		LedgerMaxRetries: 0,
		AuthRateLimit:    10,
		AuthRateWindow:   time.Minute,
		SweepInterval:    time.Hour,
		LogFormat:        "text",
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}

	for _, want := range []string{"DATABASE_URL", "JWT_SECRET", "LEDGER_MAX_RETRIES"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got %v", want, err)
		}
	}
}

func TestTrustedProxies(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.10")

	cfg := Load()
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[0] != "10.0.0.0/8" {
		t.Fatalf("unexpected trusted proxies %v", cfg.TrustedProxies)
	}
	if cfg.LoginMaxFailures != 5 || cfg.LoginLockout != 15*time.Minute {
		t.Errorf("unexpected login lockout defaults %d/%v", cfg.LoginMaxFailures, cfg.LoginLockout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	cfg.TrustedProxies = append(cfg.TrustedProxies, "proxy.internal")
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "TRUSTED_PROXIES") {
		t.Errorf("expected TRUSTED_PROXIES error, got %v", err)
	}
}
