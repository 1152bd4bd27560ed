package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures everything the server needs from the environment so main
// stays lean. Zero values mean "not configured" for optional dependencies
// (Redis cache, Kafka audit stream).
type Config struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string

	// PipelineAPIKeyHash is the bcrypt hash of the static key the
	// graduation pipeline presents on the handoff endpoint.
	PipelineAPIKeyHash string

	Redis   RedisConfig
	Ledger  LedgerConfig
	Audit   AuditConfig
	Grading GradingConfig
}

// RedisConfig controls the optional verification-view cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ViewTTL      time.Duration
}

// LedgerConfig controls the anchoring client and its background worker.
type LedgerConfig struct {
	BaseURL       string
	APIKey        string
	SubmitTimeout time.Duration
	QueueSize     int
}

// AuditConfig controls the optional Kafka audit event stream.
type AuditConfig struct {
	Brokers []string
	Topic   string
}

// GradingConfig holds the degree classification thresholds. The defaults
// follow a 4.0 scale; institutions on other scales override via env.
type GradingConfig struct {
	FirstClass  float64
	SecondUpper float64
	SecondLower float64
	ThirdClass  float64
	Pass        float64
}

// FromEnv builds a Config from environment variables. A local .env file is
// loaded first when present so development setups need no shell exports.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:               envOr("CREDENCE_ADDR", ":8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTSigningKey:      os.Getenv("JWT_SIGNING_KEY"),
		PipelineAPIKeyHash: os.Getenv("PIPELINE_API_KEY_HASH"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			ViewTTL:      envDuration("VERIFICATION_CACHE_TTL", 5*time.Minute),
		},
		Ledger: LedgerConfig{
			BaseURL:       os.Getenv("LEDGER_BASE_URL"),
			APIKey:        os.Getenv("LEDGER_API_KEY"),
			SubmitTimeout: envDuration("LEDGER_SUBMIT_TIMEOUT", 30*time.Second),
			QueueSize:     envInt("LEDGER_QUEUE_SIZE", 256),
		},
		Audit: AuditConfig{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("AUDIT_TOPIC", "credence.audit"),
		},
		Grading: GradingConfig{
			FirstClass:  envFloat("GRADE_FIRST_CLASS", 3.6),
			SecondUpper: envFloat("GRADE_SECOND_UPPER", 3.0),
			SecondLower: envFloat("GRADE_SECOND_LOWER", 2.4),
			ThirdClass:  envFloat("GRADE_THIRD_CLASS", 2.0),
			Pass:        envFloat("GRADE_PASS", 1.0),
		},
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
