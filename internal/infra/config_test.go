package infra

import (
	"testing"
	"time"
)

func setRelayKey(t *testing.T) {
	t.Helper()
	t.Setenv("RELAY_API_KEY", "fal-test")
	t.Setenv("RELAY_KEY_ID", "")
	t.Setenv("RELAY_KEY_SECRET", "")
	t.Setenv("RELAY_AUTH_SCHEME", "")
	t.Setenv("TRUSTED_PROXIES", "")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRelayKey(t)
	t.Setenv("RELAY_MAX_SUBMIT_RETRIES", "")
	t.Setenv("RELAY_POLL_INTERVAL_SECONDS", "")
	t.Setenv("UPSTREAM_QUEUE_HOSTS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.MaxSubmitRetries != 3 {
		t.Fatalf("MaxSubmitRetries = %d, want 3", cfg.MaxSubmitRetries)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("PollInterval = %s, want 2s", cfg.PollInterval)
	}
	if len(cfg.QueueHosts) != 1 || cfg.QueueHosts[0] != "queue.fal.run" {
		t.Fatalf("QueueHosts mismatch: %#v", cfg.QueueHosts)
	}
	if cfg.RelayCredential() != "fal-test" {
		t.Fatalf("RelayCredential = %q", cfg.RelayCredential())
	}
}

func TestLoadConfigRequiresRelayCredential(t *testing.T) {
	t.Setenv("RELAY_API_KEY", "")
	t.Setenv("RELAY_KEY_ID", "")
	t.Setenv("RELAY_KEY_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error without relay credential")
	}
}

func TestLoadConfigPairCredentialWins(t *testing.T) {
	t.Setenv("RELAY_API_KEY", "ignored")
	t.Setenv("RELAY_KEY_ID", "abc")
	t.Setenv("RELAY_KEY_SECRET", "def")
	t.Setenv("RELAY_AUTH_SCHEME", "basic")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got := cfg.RelayCredential(); got != "abc:def" {
		t.Fatalf("RelayCredential = %q, want abc:def", got)
	}
}

func TestLoadConfigRejectsPairWithoutPairScheme(t *testing.T) {
	for _, scheme := range []string{"", "key", "bearer"} {
		t.Run("scheme="+scheme, func(t *testing.T) {
			t.Setenv("RELAY_API_KEY", "")
			t.Setenv("RELAY_KEY_ID", "abc")
			t.Setenv("RELAY_KEY_SECRET", "def")
			t.Setenv("RELAY_AUTH_SCHEME", scheme)

			if _, err := LoadConfig(); err == nil {
				t.Fatal("expected error for id/secret under a single-token scheme")
			}
		})
	}
}

func TestLoadConfigParsesLists(t *testing.T) {
	setRelayKey(t)
	t.Setenv("UPSTREAM_QUEUE_HOSTS", " queue.fal.run, queue.alt.run ,, queue.fal.run")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"queue.fal.run", "queue.alt.run"}
	if len(cfg.QueueHosts) != len(expected) {
		t.Fatalf("QueueHosts mismatch: got %#v want %#v", cfg.QueueHosts, expected)
	}
	for i, host := range expected {
		if cfg.QueueHosts[i] != host {
			t.Fatalf("QueueHosts[%d] = %q, want %q", i, cfg.QueueHosts[i], host)
		}
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "https://app.example.com" {
		t.Fatalf("CORSAllowedOrigins mismatch: %#v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigTrustedProxies(t *testing.T) {
	setRelayKey(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.7")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.TrustedProxies) != 2 {
		t.Fatalf("TrustedProxies = %v", cfg.TrustedProxies)
	}
	if got := cfg.TrustedProxies[1].String(); got != "192.0.2.7/32" {
		t.Fatalf("TrustedProxies[1] = %q", got)
	}

	t.Setenv("TRUSTED_PROXIES", "not-an-ip")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for invalid proxy")
	}
}

func TestLoadConfigRejectsBadPolicy(t *testing.T) {
	setRelayKey(t)
	t.Setenv("RELAY_MAX_POLL_ATTEMPTS", "0")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for zero poll attempts")
	}
}

func TestRequireServerSecrets(t *testing.T) {
	cfg := &Config{AccessPassword: "open-sesame"}
	if err := cfg.RequireServerSecrets(); err == nil {
		t.Fatal("expected error without SESSION_SECRET")
	}
	cfg.SessionSecret = "s3cret"
	if err := cfg.RequireServerSecrets(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
