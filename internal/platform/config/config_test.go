package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-jwt-secret-0123456789")
	t.Setenv("API_TOKEN", "test-api-token")
	t.Setenv("REDIS_URL", "")
	t.Setenv("INSTANCE_ID", "")
	t.Setenv("APP_URL", "")
}

func TestLoad_AllRequiredVarsSet(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-jwt-secret-0123456789", cfg.JWTSecret)
	assert.Equal(t, "test-api-token", cfg.APIToken)
	assert.NotEmpty(t, cfg.InstanceID)
	assert.False(t, cfg.RelayEnabled())
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		skipEnv string
		wantErr string
	}{
		{"missing JWT_SECRET", "JWT_SECRET", "JWT_SECRET is required"},
		{"missing API_TOKEN", "API_TOKEN", "API_TOKEN is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.skipEnv, "")

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 24*time.Hour, cfg.MaxConnectionAge)
	assert.Equal(t, 10000, cfg.MaxWebSocketConnections)
	assert.Equal(t, 100, cfg.MaxConnectionsPerIP)
	assert.Equal(t, int64(65536), cfg.WSMaxMessageBytes)
	assert.Equal(t, 15*time.Second, cfg.HeartbeatInterval)
	assert.InDelta(t, 20.0, cfg.BroadcastRateLimit, 0.001)
	assert.Equal(t, 40, cfg.BroadcastBurst)
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("INSTANCE_ID", "node-a")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("MAX_CONNECTION_AGE", "2h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.RelayEnabled())
	assert.Equal(t, "node-a", cfg.InstanceID)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 2*time.Hour, cfg.MaxConnectionAge)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"short jwt secret", "JWT_SECRET", "short", "JWT_SECRET must be at least 16 characters"},
		{"relative app url", "APP_URL", "/dashboard", "APP_URL must be an absolute URL"},
		{"zero sweep interval", "SWEEP_INTERVAL", "0s", "SWEEP_INTERVAL must be positive"},
		{"negative max age", "MAX_CONNECTION_AGE", "-1h", "MAX_CONNECTION_AGE must be positive"},
		{"zero max connections", "MAX_WEBSOCKET_CONNECTIONS", "0", "MAX_WEBSOCKET_CONNECTIONS must be positive"},
		{"zero per ip limit", "MAX_CONNECTIONS_PER_IP", "0", "MAX_CONNECTIONS_PER_IP must be positive"},
		{"zero heartbeat", "HEARTBEAT_INTERVAL", "0s", "HEARTBEAT_INTERVAL must be positive"},
		{"zero burst", "BROADCAST_BURST", "0", "BROADCAST_BURST must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
