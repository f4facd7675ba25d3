package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const minJWTSecretLength = 16

type Config struct {
	AppEnv     string `env:"APP_ENV" default:"development"`
	Port       string `env:"PORT" default:"8080"`
	AppURL     string `env:"APP_URL"`
	LogLevel   string `env:"LOG_LEVEL" default:"info"`
	LogFormat  string `env:"LOG_FORMAT" default:"text"`
	JWTSecret  string `env:"JWT_SECRET"`
	APIToken   string `env:"API_TOKEN"`
	RedisURL   string `env:"REDIS_URL"`
	InstanceID string `env:"INSTANCE_ID"`

	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" default:"1m"`
	MaxConnectionAge time.Duration `env:"MAX_CONNECTION_AGE" default:"24h"`

	MaxWebSocketConnections int   `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	MaxConnectionsPerIP     int   `env:"MAX_CONNECTIONS_PER_IP" default:"100"`
	WSMaxMessageBytes       int64 `env:"WS_MAX_MESSAGE_BYTES" default:"65536"`

	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" default:"15s"`

	BroadcastRateLimit float64 `env:"BROADCAST_RATE_LIMIT" default:"20"`
	BroadcastBurst     int     `env:"BROADCAST_BURST" default:"40"`
}

// RelayEnabled reports whether broadcasts are shared with other instances through Redis.
func (c *Config) RelayEnabled() bool {
	return c.RedisURL != ""
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if cfg.APIToken == "" {
		return errors.New("API_TOKEN is required")
	}

	if cfg.RedisURL != "" {
		if _, err := url.Parse(cfg.RedisURL); err != nil {
			return fmt.Errorf("REDIS_URL is not a valid URL: %w", err)
		}
	}
	if cfg.AppURL != "" {
		u, err := url.Parse(cfg.AppURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("APP_URL must be an absolute URL, got %q", cfg.AppURL)
		}
	}

	if cfg.SweepInterval <= 0 {
		return errors.New("SWEEP_INTERVAL must be positive")
	}
	if cfg.MaxConnectionAge <= 0 {
		return errors.New("MAX_CONNECTION_AGE must be positive")
	}
	if cfg.MaxWebSocketConnections <= 0 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS must be positive")
	}
	if cfg.MaxConnectionsPerIP <= 0 {
		return errors.New("MAX_CONNECTIONS_PER_IP must be positive")
	}
	if cfg.WSMaxMessageBytes <= 0 {
		return errors.New("WS_MAX_MESSAGE_BYTES must be positive")
	}
	if cfg.HeartbeatInterval <= 0 {
		return errors.New("HEARTBEAT_INTERVAL must be positive")
	}
	if cfg.BroadcastRateLimit <= 0 || cfg.BroadcastBurst <= 0 {
		return errors.New("BROADCAST_RATE_LIMIT and BROADCAST_BURST must be positive")
	}

	return nil
}
