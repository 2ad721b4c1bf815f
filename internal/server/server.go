package server

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/europe-conquest/internal/broadcast"
	"github.com/palemoky/europe-conquest/internal/config"
	"github.com/palemoky/europe-conquest/internal/game/room"
	"github.com/palemoky/europe-conquest/internal/protocol/codec"
	"github.com/palemoky/europe-conquest/internal/server/handler"
	"github.com/palemoky/europe-conquest/internal/server/storage"
)

// Server WebSocket 服务器
type Server struct {
	config      *config.Config
	redis       *redis.Client // Redis 不可用时为 nil
	redisStore  *storage.RedisStore
	leaderboard *storage.LeaderboardManager
	writer      *storage.Writer
	broadcaster *broadcast.SyncBroadcaster
	stats       *gameStats
	roomManager *room.RoomManager
	handler     *handler.Handler
	upgrader    websocket.Upgrader
	httpServer  *http.Server

	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 安全组件
	rateLimiter    *RateLimiter
	originChecker  *OriginChecker
	messageLimiter *MessageRateLimiter

	// 连接控制
	maxConnections int
	semaphore      chan struct{} // 信号量控制并发连接数

	// 维护模式
	maintenanceMode bool
	maintenanceMu   sync.RWMutex

	stopMonitor chan struct{}
	stopOnce    sync.Once
}

// Option 服务器可选参数
type Option func(*serverOptions)

type serverOptions struct {
	redis     *redis.Client
	scheduler room.Scheduler
}

// WithRedis 使用已有的 Redis 客户端（跳过按配置建连）
func WithRedis(client *redis.Client) Option {
	return func(o *serverOptions) { o.redis = client }
}

// WithScheduler 替换房间计时器调度器
func WithScheduler(s room.Scheduler) Option {
	return func(o *serverOptions) { o.scheduler = s }
}

// NewServer 创建服务器实例
// Redis 只是回退缓存和排行榜，连接失败时降级运行
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		config:  cfg,
		redis:   o.redis,
		stats:   &gameStats{},
		clients: make(map[string]*Client),
		// 初始化安全组件
		rateLimiter: NewRateLimiter(
			cfg.Security.RateLimit.MaxPerSecond,
			cfg.Security.RateLimit.MaxPerMinute,
			cfg.Security.RateLimit.BanDurationTime(),
		),
		originChecker: NewOriginChecker(cfg.Security.AllowedOrigins),
		messageLimiter: NewMessageRateLimiter(
			cfg.Security.MessageLimit.MaxPerSecond,
			cfg.Security.MessageLimit.Burst,
		),
		// 初始化连接控制
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
		stopMonitor:    make(chan struct{}),
	}

	if s.redis == nil && cfg.Redis.Enabled {
		s.redis = connectRedis(&cfg.Redis)
	}

	broadcastOpts := []broadcast.Option{}
	deps := room.Deps{Scheduler: o.scheduler}
	if s.redis != nil {
		s.redisStore = storage.NewRedisStore(s.redis, 0)
		s.leaderboard = storage.NewLeaderboardManager(s.redis)
		s.writer = storage.NewWriter(s.redisStore, s.leaderboard)
		broadcastOpts = append(broadcastOpts, broadcast.WithFallbackStore(s.writer))
		deps.Store = s.writer
		deps.Recorder = s.writer
	}
	s.broadcaster = broadcast.New(broadcastOpts...)
	deps.Fanout = s.broadcaster
	deps.Observer = room.Observers{s.broadcaster, s.stats}

	// 初始化房间管理器
	s.roomManager = room.NewRoomManager(room.ManagerOptions{
		Settings:        room.SettingsFromConfig(&cfg.Game),
		Deps:            deps,
		Staleness:       cfg.Game.RoomStalenessDuration(),
		CleanupInterval: cfg.Game.CleanupIntervalDuration(),
	})

	// 初始化消息处理器
	s.handler = handler.NewHandler(handler.HandlerDeps{
		Server:      s,
		RoomManager: s.roomManager,
	})

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Subprotocols:    codec.Subprotocols,
		CheckOrigin:     s.originChecker.Check,
	}

	log.Info().
		Int("conn_per_second", cfg.Security.RateLimit.MaxPerSecond).
		Int("msg_per_second", cfg.Security.MessageLimit.MaxPerSecond).
		Int("max_connections", cfg.Server.MaxConnections).
		Bool("redis", s.redis != nil).
		Msg("🔒 安全配置")

	return s, nil
}

// connectRedis 建立 Redis 连接，失败返回 nil
func connectRedis(cfg *config.RedisConfig) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("⚠️ Redis 连接失败，回退缓存与排行榜已禁用")
		_ = rdb.Close()
		return nil
	}
	log.Info().Str("addr", cfg.Addr).Msg("✅ Redis 已连接")
	return rdb
}

// RoomManager 房间管理器
func (s *Server) RoomManager() *room.RoomManager {
	return s.roomManager
}

// Start 启动服务器，阻塞直到服务器关闭
func (s *Server) Start() error {
	addr := s.config.Server.Address()

	// 启动监控 goroutine
	go s.monitorStats(30 * time.Second)

	log.Info().Str("addr", addr).Int("cpus", runtime.NumCPU()).Msgf("🚀 服务器启动在 ws://%s/ws", addr)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router 构建 HTTP 路由
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})
	r.Use(gin.Recovery(), requestLogger())
	r.Use(corsMiddleware(s.originChecker, s.config.Security.AllowedOrigins))

	r.GET("/ws", s.handleWebSocket)
	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	api.GET("/rooms", s.handleRoomList)
	api.GET("/rooms/:code/snapshot", s.handleRoomSnapshot)
	api.GET("/leaderboard", s.handleLeaderboard)

	return r
}
