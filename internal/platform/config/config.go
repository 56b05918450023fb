package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr           string
	Environment    string
	AdminToken     string
	JWTSigningKey  string
	RequestTimeout time.Duration

	Database Database
	Redis    Redis
	Kafka    Kafka
	Webhooks Webhooks
}

// Database holds connection settings for the tenant directory and the
// per-tenant schemas. An empty URL runs the server on in-memory stores.
type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Redis holds settings for the webhook dedup ledger. An empty URL falls back
// to the in-memory ledger.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka holds settings for the audit event stream. Empty brokers disable the
// kafka sink.
type Kafka struct {
	Brokers         string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// Webhooks holds payment-provider webhook settings.
type Webhooks struct {
	ProcessorURL   string
	ForwardTimeout time.Duration
	DedupTTL       time.Duration
	BTGSecret      string
	AsaasToken     string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:           envString("NORO_ADDR", ":8080"),
		Environment:    envString("NORO_ENV", "dev"),
		AdminToken:     envString("NORO_ADMIN_TOKEN", ""),
		JWTSigningKey:  envString("NORO_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		RequestTimeout: envDuration("NORO_REQUEST_TIMEOUT", 30*time.Second),
		Database: Database{
			URL:             envString("NORO_DATABASE_URL", ""),
			MaxOpenConns:    envInt("NORO_DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("NORO_DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("NORO_DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: Redis{
			URL:          envString("NORO_REDIS_URL", ""),
			PoolSize:     envInt("NORO_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("NORO_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("NORO_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("NORO_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("NORO_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:         envString("NORO_KAFKA_BROKERS", ""),
			Acks:            envString("NORO_KAFKA_ACKS", "all"),
			Retries:         envInt("NORO_KAFKA_RETRIES", 3),
			DeliveryTimeout: envDuration("NORO_KAFKA_DELIVERY_TIMEOUT", 30*time.Second),
		},
		Webhooks: Webhooks{
			ProcessorURL:   envString("NORO_WEBHOOK_PROCESSOR_URL", ""),
			ForwardTimeout: envDuration("NORO_WEBHOOK_FORWARD_TIMEOUT", 10*time.Second),
			DedupTTL:       envDuration("NORO_WEBHOOK_DEDUP_TTL", 72*time.Hour),
			BTGSecret:      envString("NORO_BTG_WEBHOOK_SECRET", ""),
			AsaasToken:     envString("NORO_ASAAS_WEBHOOK_TOKEN", ""),
		},
	}
}

func envString(key, fallback string) string {
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

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
