// Package config loads service configuration from the environment and an
// optional YAML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	platformstrings "travelcred/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

// Auth configures bearer token validation.
type Auth struct {
	JWTSigningKey string
	JWTIssuer     string
}

// Registry configures the credential registries.
type Registry struct {
	// Administrator is fixed for the lifetime of the process.
	Administrator      string
	RequireHolderMatch bool
	ApplyRatePerMinute int
	ApplyBurst         int
}

// Database configures Postgres. An empty URL selects the in-memory stores.
type Database struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig configures the optional Redis stream sink.
type RedisConfig struct {
	URL          string
	Stream       string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the optional Kafka sink.
type Kafka struct {
	Brokers []string
	Topic   string
}

// AMQP configures the optional AMQP sink.
type AMQP struct {
	URL      string
	Exchange string
}

// Events configures in-process event fan-out.
type Events struct {
	Buffer int
}

// Config is the full service configuration.
type Config struct {
	Server   Server
	Auth     Auth
	Registry Registry
	Database Database
	Redis    RedisConfig
	Kafka    Kafka
	AMQP     AMQP
	Events   Events
	LogLevel string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ADDR", ":8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("JWT_SIGNING_KEY", "dev-secret-key-change-in-production")
	v.SetDefault("JWT_ISSUER", "travelcred")
	v.SetDefault("REQUIRE_HOLDER_MATCH", false)
	v.SetDefault("APPLY_RATE_PER_MINUTE", 30)
	v.SetDefault("APPLY_BURST", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("REDIS_STREAM", "travelcred.events")
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 2)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")
	v.SetDefault("KAFKA_TOPIC", "travelcred.events")
	v.SetDefault("AMQP_EXCHANGE", "travelcred.events")
	v.SetDefault("EVENT_BUFFER", 256)
	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads configuration from environment variables and, when CONFIG_FILE
// is set, a YAML file whose keys match the variable names. Environment wins.
func Load() (Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := Config{
		Server: Server{
			Addr:            v.GetString("ADDR"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
			RequestTimeout:  v.GetDuration("REQUEST_TIMEOUT"),
		},
		Auth: Auth{
			JWTSigningKey: v.GetString("JWT_SIGNING_KEY"),
			JWTIssuer:     v.GetString("JWT_ISSUER"),
		},
		Registry: Registry{
			Administrator:      strings.TrimSpace(v.GetString("ADMIN_IDENTITY")),
			RequireHolderMatch: v.GetBool("REQUIRE_HOLDER_MATCH"),
			ApplyRatePerMinute: v.GetInt("APPLY_RATE_PER_MINUTE"),
			ApplyBurst:         v.GetInt("APPLY_BURST"),
		},
		Database: Database{
			URL:          v.GetString("DATABASE_URL"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("REDIS_URL"),
			Stream:       v.GetString("REDIS_STREAM"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
		},
		Kafka: Kafka{
			Brokers: platformstrings.SplitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		AMQP: AMQP{
			URL:      v.GetString("AMQP_URL"),
			Exchange: v.GetString("AMQP_EXCHANGE"),
		},
		Events: Events{
			Buffer: v.GetInt("EVENT_BUFFER"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	if c.Registry.Administrator == "" {
		return fmt.Errorf("ADMIN_IDENTITY is required")
	}
	if c.Auth.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required")
	}
	if c.Registry.ApplyRatePerMinute < 0 || c.Registry.ApplyBurst < 0 {
		return fmt.Errorf("apply rate limits must not be negative")
	}
	if c.Events.Buffer <= 0 {
		return fmt.Errorf("EVENT_BUFFER must be positive")
	}
	return nil
}
