package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Parallel()

	content := `
server:
  host: "127.0.0.1"
  port: 9090
  max_connections: 500

redis:
  enabled: true
  addr: "redis:6379"
  password: "secret"
  db: 1

game:
  max_players: 6
  countdown_seconds: 3
  session_length: 15
  power_interval: 2
  economy_interval: 4
  reset_delay: 20
  room_staleness: 60
  cleanup_interval: 30
  shutdown_timeout: 10

security:
  allowed_origins:
    - "http://localhost:3000"
    - "https://example.com"
  rate_limit:
    max_per_second: 20
    max_per_minute: 120
    ban_duration: 120
  message_limit:
    max_per_second: 50
    burst: 80

log:
  level: debug
  format: json
`
	cfg, err := Load(writeConfig(t, content))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 500, cfg.Server.MaxConnections)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "secret", cfg.Redis.Password)
	assert.Equal(t, 1, cfg.Redis.DB)
	assert.Equal(t, 6, cfg.Game.MaxPlayers)
	assert.Equal(t, 3, cfg.Game.CountdownSeconds)
	assert.Equal(t, 15*time.Minute, cfg.Game.SessionLengthDuration())
	assert.Len(t, cfg.Security.AllowedOrigins, 2)
	assert.Equal(t, 80, cfg.Security.MessageLimit.Burst)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	cfg, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, "invalid: yaml: :::"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, defaultHost, cfg.Server.Host)
	assert.Equal(t, defaultPort, cfg.Server.Port)
	assert.Equal(t, defaultMaxConnections, cfg.Server.MaxConnections)
	assert.Equal(t, defaultRedisAddr, cfg.Redis.Addr)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, defaultMaxPlayers, cfg.Game.MaxPlayers)
	assert.Equal(t, defaultCountdownSeconds, cfg.Game.CountdownSeconds)
	assert.Equal(t, []string{"*"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, defaultLogFormat, cfg.Log.Format)
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, defaultHost, cfg.Server.Host)
	assert.Equal(t, defaultPort, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Game.MaxPlayers)
	assert.Equal(t, 5*time.Second, cfg.Game.CountdownDuration())
	assert.Equal(t, 10*time.Minute, cfg.Game.SessionLengthDuration())
	assert.Equal(t, 30*time.Second, cfg.Game.ResetDelayDuration())
	assert.Equal(t, 2*time.Hour, cfg.Game.RoomStalenessDuration())
	assert.Equal(t, time.Minute, cfg.Game.CleanupIntervalDuration())
}

func TestGameConfig_DurationMethods(t *testing.T) {
	t.Parallel()

	cfg := &GameConfig{
		CountdownSeconds: 5,
		SessionLength:    10,
		PowerInterval:    5,
		EconomyInterval:  7,
		ResetDelay:       30,
		RoomStaleness:    120,
		CleanupInterval:  60,
		ShutdownTimeout:  15,
	}

	assert.Equal(t, 5*time.Second, cfg.CountdownDuration())
	assert.Equal(t, 10*time.Minute, cfg.SessionLengthDuration())
	assert.Equal(t, 5*time.Second, cfg.PowerIntervalDuration())
	assert.Equal(t, 7*time.Second, cfg.EconomyIntervalDuration())
	assert.Equal(t, 30*time.Second, cfg.ResetDelayDuration())
	assert.Equal(t, 2*time.Hour, cfg.RoomStalenessDuration())
	assert.Equal(t, time.Minute, cfg.CleanupIntervalDuration())
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeoutDuration())
}

func TestRateLimitConfig_BanDurationTime(t *testing.T) {
	t.Parallel()

	cfg := &RateLimitConfig{BanDuration: 120}
	assert.Equal(t, 120*time.Second, cfg.BanDurationTime())
}

func TestServerConfig_Address(t *testing.T) {
	t.Parallel()

	cfg := &ServerConfig{Host: "127.0.0.1", Port: 8080}
	assert.Equal(t, "127.0.0.1:8080", cfg.Address())
}

func TestLoadFromEnv(t *testing.T) {
	// Not parallel because it modifies environment variables
	t.Setenv("SERVER_HOST", "env-host")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("REDIS_ADDR", "env-redis:6380")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("GAME_SESSION_LENGTH", "3")
	t.Setenv("SECURITY_ALLOWED_ORIGINS", "http://a.com,http://b.com")
	t.Setenv("SECURITY_MESSAGE_LIMIT_BURST", "7")

	cfg, err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "env-host", cfg.Server.Host)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "env-redis:6380", cfg.Redis.Addr)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 3, cfg.Game.SessionLength)
	assert.Equal(t, []string{"http://a.com", "http://b.com"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, 7, cfg.Security.MessageLimit.Burst)
}

func TestLoadFromEnv_InvalidValue(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")

	cfg, err := Load(writeConfig(t, `{}`))
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	t.Setenv("GAME_MAX_PLAYERS", "4")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultPort, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Game.MaxPlayers)
}

func TestLoadOrDefault_InvalidFile(t *testing.T) {
	t.Parallel()

	_, err := LoadOrDefault(writeConfig(t, "invalid: yaml: :::"))
	assert.Error(t, err)
}
