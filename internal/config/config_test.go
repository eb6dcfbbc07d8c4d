package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "SERVER_PORT")
	unsetEnvWithCleanup(t, "LEDGER_EVENT_EXCHANGE")
	unsetEnvWithCleanup(t, "MUTATION_RATE_LIMIT_PER_MINUTE")
	unsetEnvWithCleanup(t, "CONFLICT_RETRY_ATTEMPTS")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default ServerPort 8080, got %q", cfg.ServerPort)
	}
	if cfg.LedgerEventExchange != "ledger.events" {
		t.Fatalf("expected default exchange ledger.events, got %q", cfg.LedgerEventExchange)
	}
	if cfg.MutationRateLimit != 0 {
		t.Fatalf("expected rate limiting disabled by default, got %d", cfg.MutationRateLimit)
	}
	if cfg.ConflictRetryAttempts != 3 {
		t.Fatalf("expected default ConflictRetryAttempts 3, got %d", cfg.ConflictRetryAttempts)
	}
	if cfg.RedisRateLimitPrefix != "ledger:rate_limit" {
		t.Fatalf("expected default redis prefix, got %q", cfg.RedisRateLimitPrefix)
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "9000")
	setEnvWithCleanup(t, "DATABASE_URL", "postgres://ledger:pw@localhost:5432/ledger")
	setEnvWithCleanup(t, "CONFLICT_RETRY_ATTEMPTS", "5")
	setEnvWithCleanup(t, "MUTATION_RATE_LIMIT_PER_MINUTE", "60")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9000" {
		t.Fatalf("expected ServerPort 9000, got %q", cfg.ServerPort)
	}
	if cfg.DatabaseURL != "postgres://ledger:pw@localhost:5432/ledger" {
		t.Fatalf("unexpected DatabaseURL %q", cfg.DatabaseURL)
	}
	if cfg.ConflictRetryAttempts != 5 {
		t.Fatalf("expected ConflictRetryAttempts 5, got %d", cfg.ConflictRetryAttempts)
	}
	if cfg.MutationRateLimit != 60 {
		t.Fatalf("expected MutationRateLimit 60, got %d", cfg.MutationRateLimit)
	}
}

func TestLoadConfig_ClampsInvalidValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "CONFLICT_RETRY_ATTEMPTS", "-2")
	setEnvWithCleanup(t, "MUTATION_RATE_LIMIT_PER_MINUTE", "-10")
	setEnvWithCleanup(t, "REDIS_RATE_LIMIT_PREFIX", "   ")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ConflictRetryAttempts != 3 {
		t.Fatalf("expected clamp to 3 retry attempts, got %d", cfg.ConflictRetryAttempts)
	}
	if cfg.MutationRateLimit != 0 {
		t.Fatalf("expected negative rate limit clamped to 0, got %d", cfg.MutationRateLimit)
	}
	if cfg.RedisRateLimitPrefix != "ledger:rate_limit" {
		t.Fatalf("expected blank prefix to fall back to default, got %q", cfg.RedisRateLimitPrefix)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
		}
	})
}
