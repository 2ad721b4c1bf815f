package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// 默认值
const (
	defaultHost           = "0.0.0.0"
	defaultPort           = 8080
	defaultMaxConnections = 2000
	defaultRedisAddr      = "localhost:6379"

	defaultMaxPlayers       = 10
	defaultCountdownSeconds = 5
	defaultSessionLength    = 10  // 分钟
	defaultPowerInterval    = 5   // 秒
	defaultEconomyInterval  = 5   // 秒
	defaultResetDelay       = 30  // 秒
	defaultRoomStaleness    = 120 // 分钟
	defaultCleanupInterval  = 60  // 秒
	defaultShutdownTimeout  = 30  // 秒

	defaultConnPerSecond    = 10
	defaultConnPerMinute    = 60
	defaultBanDuration      = 60 // 秒
	defaultMessagePerSecond = 20
	defaultMessageBurst     = 40

	defaultLogLevel  = "info"
	defaultLogFormat = "console"
)

// Config 服务端配置
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Redis    RedisConfig    `yaml:"redis" envconfig:"REDIS"`
	Game     GameConfig     `yaml:"game" envconfig:"GAME"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Log      LogConfig      `yaml:"log" envconfig:"LOG"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host           string `yaml:"host" envconfig:"HOST"`
	Port           int    `yaml:"port" envconfig:"PORT"`
	MaxConnections int    `yaml:"max_connections" envconfig:"MAX_CONNECTIONS"`
}

// RedisConfig Redis 配置（仅作为回退快照缓存和排行榜）
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"ENABLED"`
	Addr     string `yaml:"addr" envconfig:"ADDR"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	DB       int    `yaml:"db" envconfig:"DB"`
}

// GameConfig 游戏配置
type GameConfig struct {
	MaxPlayers       int `yaml:"max_players" envconfig:"MAX_PLAYERS"`
	CountdownSeconds int `yaml:"countdown_seconds" envconfig:"COUNTDOWN_SECONDS"`
	SessionLength    int `yaml:"session_length" envconfig:"SESSION_LENGTH"`     // 单局时长（分钟）
	PowerInterval    int `yaml:"power_interval" envconfig:"POWER_INTERVAL"`     // 兵力增长间隔（秒）
	EconomyInterval  int `yaml:"economy_interval" envconfig:"ECONOMY_INTERVAL"` // 经济增长间隔（秒）
	ResetDelay       int `yaml:"reset_delay" envconfig:"RESET_DELAY"`           // 结束后回到等待的延迟（秒）
	RoomStaleness    int `yaml:"room_staleness" envconfig:"ROOM_STALENESS"`     // 空房间保留时长（分钟）
	CleanupInterval  int `yaml:"cleanup_interval" envconfig:"CLEANUP_INTERVAL"` // 清理扫描间隔（秒）
	ShutdownTimeout  int `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"` // 优雅关闭超时（秒）
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	AllowedOrigins []string           `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	RateLimit      RateLimitConfig    `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	MessageLimit   MessageLimitConfig `yaml:"message_limit" envconfig:"MESSAGE_LIMIT"`
}

// RateLimitConfig 单 IP 建连速率限制
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second" envconfig:"MAX_PER_SECOND"`
	MaxPerMinute int `yaml:"max_per_minute" envconfig:"MAX_PER_MINUTE"`
	BanDuration  int `yaml:"ban_duration" envconfig:"BAN_DURATION"` // 秒
}

// MessageLimitConfig 单会话消息速率限制
type MessageLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second" envconfig:"MAX_PER_SECOND"`
	Burst        int `yaml:"burst" envconfig:"BURST"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"` // console | json
}

// CountdownDuration 返回倒计时总时长
func (c *GameConfig) CountdownDuration() time.Duration {
	return time.Duration(c.CountdownSeconds) * time.Second
}

// SessionLengthDuration 返回单局时长
func (c *GameConfig) SessionLengthDuration() time.Duration {
	return time.Duration(c.SessionLength) * time.Minute
}

// PowerIntervalDuration 返回兵力增长间隔
func (c *GameConfig) PowerIntervalDuration() time.Duration {
	return time.Duration(c.PowerInterval) * time.Second
}

// EconomyIntervalDuration 返回经济增长间隔
func (c *GameConfig) EconomyIntervalDuration() time.Duration {
	return time.Duration(c.EconomyInterval) * time.Second
}

// ResetDelayDuration 返回结束后重置的延迟
func (c *GameConfig) ResetDelayDuration() time.Duration {
	return time.Duration(c.ResetDelay) * time.Second
}

// RoomStalenessDuration 返回空房间保留时长
func (c *GameConfig) RoomStalenessDuration() time.Duration {
	return time.Duration(c.RoomStaleness) * time.Minute
}

// CleanupIntervalDuration 返回清理扫描间隔
func (c *GameConfig) CleanupIntervalDuration() time.Duration {
	return time.Duration(c.CleanupInterval) * time.Second
}

// ShutdownTimeoutDuration 返回优雅关闭超时
func (c *GameConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// BanDurationTime 返回封禁时长
func (c *RateLimitConfig) BanDurationTime() time.Duration {
	return time.Duration(c.BanDuration) * time.Second
}

// Address 返回监听地址
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load 加载配置文件，随后应用默认值和环境变量覆盖
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault 配置文件不存在时使用默认配置（仍然应用环境变量）
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg = Default()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default 返回默认配置
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyEnv() error {
	if err := envconfig.Process("", c); err != nil {
		return fmt.Errorf("apply env overrides: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.Server.Host, defaultHost)
	setDefault(&c.Server.Port, defaultPort)
	setDefault(&c.Server.MaxConnections, defaultMaxConnections)
	setDefault(&c.Redis.Addr, defaultRedisAddr)

	setDefault(&c.Game.MaxPlayers, defaultMaxPlayers)
	setDefault(&c.Game.CountdownSeconds, defaultCountdownSeconds)
	setDefault(&c.Game.SessionLength, defaultSessionLength)
	setDefault(&c.Game.PowerInterval, defaultPowerInterval)
	setDefault(&c.Game.EconomyInterval, defaultEconomyInterval)
	setDefault(&c.Game.ResetDelay, defaultResetDelay)
	setDefault(&c.Game.RoomStaleness, defaultRoomStaleness)
	setDefault(&c.Game.CleanupInterval, defaultCleanupInterval)
	setDefault(&c.Game.ShutdownTimeout, defaultShutdownTimeout)

	if len(c.Security.AllowedOrigins) == 0 {
		c.Security.AllowedOrigins = []string{"*"}
	}
	setDefault(&c.Security.RateLimit.MaxPerSecond, defaultConnPerSecond)
	setDefault(&c.Security.RateLimit.MaxPerMinute, defaultConnPerMinute)
	setDefault(&c.Security.RateLimit.BanDuration, defaultBanDuration)
	setDefault(&c.Security.MessageLimit.MaxPerSecond, defaultMessagePerSecond)
	setDefault(&c.Security.MessageLimit.Burst, defaultMessageBurst)

	setDefault(&c.Log.Level, defaultLogLevel)
	setDefault(&c.Log.Format, defaultLogFormat)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}
