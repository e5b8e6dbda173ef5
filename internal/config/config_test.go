package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DataBackend != "memory" {
		t.Errorf("DataBackend = %q, want memory", cfg.DataBackend)
	}
	if cfg.AMQPExchange != "finaid" {
		t.Errorf("AMQPExchange = %q, want finaid", cfg.AMQPExchange)
	}
	if cfg.AMQPQueue != "category_updates" {
		t.Errorf("AMQPQueue = %q, want category_updates", cfg.AMQPQueue)
	}
	if cfg.LedgerMaxRetries != 3 {
		t.Errorf("LedgerMaxRetries = %d, want 3", cfg.LedgerMaxRetries)
	}
	if cfg.LedgerBackoff != 25*time.Millisecond {
		t.Errorf("LedgerBackoff = %v, want 25ms", cfg.LedgerBackoff)
	}
	if cfg.PropagationWorkers != 4 {
		t.Errorf("PropagationWorkers = %d, want 4", cfg.PropagationWorkers)
	}
	if cfg.SummaryCacheTTL != 30*time.Second {
		t.Errorf("SummaryCacheTTL = %v, want 30s", cfg.SummaryCacheTTL)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("LEDGER_MAX_RETRIES", "5")
	t.Setenv("LEDGER_RETRY_BACKOFF", "100ms")
	t.Setenv("SUMMARY_CACHE_TTL", "1m")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.DataBackend != "sqlite" {
		t.Errorf("DataBackend = %q, want sqlite", cfg.DataBackend)
	}
	if cfg.LedgerMaxRetries != 5 {
		t.Errorf("LedgerMaxRetries = %d, want 5", cfg.LedgerMaxRetries)
	}
	if cfg.LedgerBackoff != 100*time.Millisecond {
		t.Errorf("LedgerBackoff = %v, want 100ms", cfg.LedgerBackoff)
	}
	if cfg.SummaryCacheTTL != time.Minute {
		t.Errorf("SummaryCacheTTL = %v, want 1m", cfg.SummaryCacheTTL)
	}
}

func TestLoadIgnoresMalformedEnv(t *testing.T) {
	t.Setenv("LEDGER_MAX_RETRIES", "many")
	t.Setenv("LEDGER_RETRY_BACKOFF", "soon")

	cfg := Load()

	if cfg.LedgerMaxRetries != 3 {
		t.Errorf("LedgerMaxRetries = %d, want default 3", cfg.LedgerMaxRetries)
	}
	if cfg.LedgerBackoff != 25*time.Millisecond {
		t.Errorf("LedgerBackoff = %v, want default 25ms", cfg.LedgerBackoff)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:               "8080",
			DataBackend:        "memory",
			AMQPExchange:       "finaid",
			AMQPQueue:          "category_updates",
			LedgerMaxRetries:   3,
			LedgerBackoff:      25 * time.Millisecond,
			PropagationWorkers: 4,
			SummaryCacheTTL:    30 * time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"non-numeric port", func(c *Config) { c.Port = "http" }, "invalid port"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "must be between 1 and 65535"},
		{"unknown backend", func(c *Config) { c.DataBackend = "postgres" }, "invalid data backend"},
		{"sqlite without path", func(c *Config) { c.DataBackend = "sqlite"; c.SQLiteDBPath = "" }, "SQLite database path cannot be empty"},
		{"bad amqp scheme", func(c *Config) { c.AMQPURL = "http://localhost:5672" }, "must be 'amqp' or 'amqps'"},
		{"amqp without exchange", func(c *Config) { c.AMQPURL = "amqp://localhost:5672"; c.AMQPExchange = "" }, "exchange name cannot be empty"},
		{"amqp without queue", func(c *Config) { c.AMQPURL = "amqp://localhost:5672"; c.AMQPQueue = "" }, "queue name cannot be empty"},
		{"zero retries", func(c *Config) { c.LedgerMaxRetries = 0 }, "must be at least 1"},
		{"too many retries", func(c *Config) { c.LedgerMaxRetries = 11 }, "must be at most 10"},
		{"zero backoff", func(c *Config) { c.LedgerBackoff = 0 }, "must be positive"},
		{"zero workers", func(c *Config) { c.PropagationWorkers = 0 }, "must be at least 1"},
		{"too many workers", func(c *Config) { c.PropagationWorkers = 128 }, "must be at most 64"},
		{"negative cache ttl", func(c *Config) { c.SummaryCacheTTL = -time.Second }, "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCollectsMultipleErrors(t *testing.T) {
	cfg := &Config{
		Port:               "bad",
		DataBackend:        "oracle",
		LedgerMaxRetries:   0,
		LedgerBackoff:      0,
		PropagationWorkers: 0,
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, want := range []string{"invalid port", "invalid data backend", "at least 1", "must be positive"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}
