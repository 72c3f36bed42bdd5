package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HOST", "PORT", "CORS_ALLOWED_ORIGINS", "UPLOAD_MAX_BYTES",
		"GENERATOR_PROVIDER", "GEMINI_API_KEY", "GEMINI_MODEL",
		"ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "Model",
		"ARK_TEMPERATURE", "ARK_TOP_P", "ARK_MAX_TOKENS",
		"PRIMARY_STORE_URL", "MONGODB_URL", "MONGODB_DATABASE", "MONGODB_COLLECTION",
		"PRIMARY_TIMEOUT", "FALLBACK_STORE_PATH", "TRANSCRIPT_LIMIT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != "0.0.0.0:8000" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Store.PrimaryURL != "mongodb://localhost:27017" {
		t.Fatalf("unexpected primary url %q", cfg.Store.PrimaryURL)
	}
	if cfg.Store.Timeout != 2*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.Store.Timeout)
	}
	if cfg.Store.TranscriptLimit != 100 {
		t.Fatalf("unexpected limit %d", cfg.Store.TranscriptLimit)
	}
	if cfg.AI.Provider != ProviderGemini || cfg.AI.Enabled() {
		t.Fatalf("expected unconfigured gemini provider, got %+v", cfg.AI)
	}
}

func TestLoadPrefersPrimaryStoreURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGODB_URL", "mongodb://db:27017")
	t.Setenv("PRIMARY_STORE_URL", "postgres://u:p@pg:5432/interviews")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Store.PrimaryURL != "postgres://u:p@pg:5432/interviews" {
		t.Fatalf("unexpected primary url %q", cfg.Store.PrimaryURL)
	}
}

func TestLoadSelectsArkWhenOnlyArkConfigured(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARK_API_KEY", "key")
	t.Setenv("Model", "doubao")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.AI.Provider != ProviderArk || !cfg.AI.Enabled() {
		t.Fatalf("expected enabled ark provider, got %+v", cfg.AI)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":               "eighty",
		"PRIMARY_TIMEOUT":    "soon",
		"TRANSCRIPT_LIMIT":   "0",
		"GENERATOR_PROVIDER": "openai",
		"ARK_TEMPERATURE":    "warm",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestPortMayCarryAddress(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
}
