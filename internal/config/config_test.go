package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MPESA_CONSUMER_KEY", "key")
	t.Setenv("MPESA_CONSUMER_SECRET", "secret")
	t.Setenv("MPESA_BUSINESS_SHORTCODE", "174379")
	t.Setenv("MPESA_PASSKEY", "passkey")
	t.Setenv("MPESA_CALLBACK_URL", "https://example.com/api/callbacks/mpesa")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Environment != "sandbox" {
		t.Fatalf("expected sandbox default, got %s", cfg.Environment)
	}
	if cfg.Mpesa.BaseURL != sandboxBaseURL {
		t.Fatalf("unexpected base url %s", cfg.Mpesa.BaseURL)
	}
	if cfg.Address() != ":3000" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
	if cfg.ShutdownPeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown period %s", cfg.ShutdownPeriod)
	}
}

func TestLoadLiveEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MPESA_ENVIRONMENT", "live")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mpesa.BaseURL != productionBaseURL {
		t.Fatalf("expected production base url, got %s", cfg.Mpesa.BaseURL)
	}
}

func TestLoadRejectsUnknownEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MPESA_ENVIRONMENT", "staging")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown environment")
	}
}

func TestLoadReportsMissingCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MPESA_PASSKEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing passkey")
	}
	if !strings.Contains(err.Error(), "MPESA_PASSKEY") {
		t.Fatalf("error should name the missing variable, got %v", err)
	}
}

func TestLoadDurationOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "5")
	t.Setenv("IDEMPOTENCY_TTL", "1h")
	t.Setenv("ENTITLEMENT_TTL", "720h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ShutdownPeriod != 5*time.Second {
		t.Fatalf("unexpected shutdown period %s", cfg.ShutdownPeriod)
	}
	if cfg.IdempotencyTTL != time.Hour {
		t.Fatalf("unexpected idempotency ttl %s", cfg.IdempotencyTTL)
	}
	if cfg.EntitlementTTL != 720*time.Hour {
		t.Fatalf("unexpected entitlement ttl %s", cfg.EntitlementTTL)
	}
}
