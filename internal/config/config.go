package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	DataBackend  string
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger
	LedgerMaxRetries int
	LedgerBackoff    time.Duration

	// Propagation worker
	PropagationWorkers int

	// Summary read cache
	SummaryCacheTTL time.Duration
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finaid.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finaid"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "category_updates"),

		LedgerMaxRetries: getEnvInt("LEDGER_MAX_RETRIES", 3),
		LedgerBackoff:    getEnvDuration("LEDGER_RETRY_BACKOFF", 25*time.Millisecond),

		PropagationWorkers: getEnvInt("PROPAGATION_WORKERS", 4),

		SummaryCacheTTL: getEnvDuration("SUMMARY_CACHE_TTL", 30*time.Second),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite]", c.DataBackend))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.LedgerMaxRetries < 1 {
		errs = append(errs, fmt.Sprintf("invalid ledger max retries %d: must be at least 1", c.LedgerMaxRetries))
	} else if c.LedgerMaxRetries > 10 {
		errs = append(errs, fmt.Sprintf("invalid ledger max retries %d: must be at most 10", c.LedgerMaxRetries))
	}

	if c.LedgerBackoff <= 0 {
		errs = append(errs, fmt.Sprintf("invalid ledger retry backoff %v: must be positive", c.LedgerBackoff))
	}

	if c.PropagationWorkers < 1 {
		errs = append(errs, fmt.Sprintf("invalid propagation workers %d: must be at least 1", c.PropagationWorkers))
	} else if c.PropagationWorkers > 64 {
		errs = append(errs, fmt.Sprintf("invalid propagation workers %d: must be at most 64", c.PropagationWorkers))
	}

	if c.SummaryCacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("invalid summary cache TTL %v: must not be negative", c.SummaryCacheTTL))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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
