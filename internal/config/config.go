// Package config loads the process configuration once at startup. The
// resulting Config is passed explicitly to every service; nothing in this
// package keeps mutable state after Load returns.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full process configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Scoring  ScoringConfig
	Log      LogConfig
}

type ServerConfig struct {
	Addr string
}

type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // seconds
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers         []string
	FeatureTopic    string
	AlertTopic      string
	ConsumerGroup   string
	WriteTimeout    time.Duration
	DispatchTimeout time.Duration
}

type AuthConfig struct {
	// JWTSecret verifies bearer tokens issued by the identity provider.
	// Empty disables request authentication (local development).
	JWTSecret string
}

type ScoringConfig struct {
	// Endpoint is the black-box fraud classifier URL. Empty disables the
	// scoring worker.
	Endpoint  string
	Threshold float64
}

type LogConfig struct {
	Level string
}

// Load reads configuration from environment variables (FINGUARD_ prefix) and
// an optional config file named by FINGUARD_CONFIG_FILE.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FINGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.dsn", "host=localhost user=finguard dbname=finguard sslmode=disable")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 3600)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.feature_topic", "fraud-features")
	v.SetDefault("kafka.alert_topic", "fraud-alerts")
	v.SetDefault("kafka.consumer_group", "finguard-scoring")
	v.SetDefault("kafka.write_timeout", "5s")
	v.SetDefault("kafka.dispatch_timeout", "5s")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("scoring.endpoint", "")
	v.SetDefault("scoring.threshold", 0.5)
	v.SetDefault("log.level", "info")

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr: v.GetString("server.addr"),
		},
		Database: DatabaseConfig{
			DSN:             v.GetString("database.dsn"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Kafka: KafkaConfig{
			Brokers:         v.GetStringSlice("kafka.brokers"),
			FeatureTopic:    v.GetString("kafka.feature_topic"),
			AlertTopic:      v.GetString("kafka.alert_topic"),
			ConsumerGroup:   v.GetString("kafka.consumer_group"),
			WriteTimeout:    v.GetDuration("kafka.write_timeout"),
			DispatchTimeout: v.GetDuration("kafka.dispatch_timeout"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
		},
		Scoring: ScoringConfig{
			Endpoint:  v.GetString("scoring.endpoint"),
			Threshold: v.GetFloat64("scoring.threshold"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}

	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker must be configured")
	}

	return cfg, nil
}
