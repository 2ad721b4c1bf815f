package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/europe-conquest/internal/protocol/codec"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

// handleWebSocket 处理 WebSocket 连接
func (s *Server) handleWebSocket(c *gin.Context) {
	clientIP := c.ClientIP()

	// 维护模式检查（最优先）
	if s.IsMaintenanceMode() {
		log.Info().Str("ip", clientIP).Msg("🔧 维护模式，拒绝新连接")
		c.String(http.StatusServiceUnavailable, "Server is under maintenance, please try again later")
		return
	}

	// 连接数限制检查，连接存活期间一直占用
	select {
	case s.semaphore <- struct{}{}:
	default:
		log.Warn().Int("max", s.maxConnections).Str("ip", clientIP).Msg("🚫 达到最大连接数限制")
		c.String(http.StatusServiceUnavailable, "Server Full")
		return
	}
	release := func() { <-s.semaphore }

	// 来源验证
	if !s.originChecker.Check(c.Request) {
		release()
		log.Warn().Str("origin", c.GetHeader("Origin")).Str("ip", clientIP).Msg("🚫 来源验证失败")
		c.String(http.StatusForbidden, "Origin not allowed")
		return
	}

	// 速率限制检查
	if !s.rateLimiter.Allow(clientIP) {
		release()
		log.Warn().Str("ip", clientIP).Msg("🚫 请求过于频繁")
		c.String(http.StatusTooManyRequests, "Too Many Requests")
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		release()
		log.Debug().Err(err).Str("ip", clientIP).Msg("WebSocket 升级失败")
		return
	}

	client := NewClient(s, conn, codec.ForSubprotocol(conn.Subprotocol()))
	client.IP = clientIP
	s.registerClient(client)

	log.Info().Str("client", client.ID).Str("ip", clientIP).Str("codec", client.codec.Name()).Msg("✅ 客户端已连接")

	go func() {
		defer release()
		client.ReadPump()
	}()
	go client.WritePump()
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"online":      s.GetOnlineCount(),
		"rooms":       s.roomManager.RoomCount(),
		"activeGames": s.roomManager.GetActiveGamesCount(),
		"redis":       s.redis != nil,
		"maintenance": s.IsMaintenanceMode(),
		"stats":       s.stats.snapshot(),
	})
}

// handleRoomList 房间列表
func (s *Server) handleRoomList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": s.roomManager.GetRoomList()})
}

// handleRoomSnapshot 房间快照：优先返回内存中的实时状态，房间不存在时读取 Redis 回退缓存
func (s *Server) handleRoomSnapshot(c *gin.Context) {
	code := codec.NormalizeRoomCode(c.Param("code"))

	if r := s.roomManager.GetRoom(code); r != nil {
		if snap, err := r.Snapshot(); err == nil {
			c.JSON(http.StatusOK, gin.H{"source": "live", "gameData": snap})
			return
		}
	}

	if s.redisStore != nil {
		rec, err := s.redisStore.LoadFallback(c.Request.Context(), code)
		if err != nil {
			log.Warn().Err(err).Str("room", code).Msg("⚠️ 读取回退快照失败")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
			return
		}
		if rec != nil {
			c.JSON(http.StatusOK, gin.H{"source": "fallback", "gameData": rec.GameData, "lastUpdate": rec.LastUpdate})
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
}

// handleLeaderboard 总排行榜
func (s *Server) handleLeaderboard(c *gin.Context) {
	if s.leaderboard == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "leaderboard disabled"})
		return
	}

	n := defaultLeaderboardSize
	if raw := c.Query("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid n"})
			return
		}
		n = min(v, maxLeaderboardSize)
	}

	entries, err := s.leaderboard.GetTop(c.Request.Context(), n)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ 读取排行榜失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

// corsMiddleware 跨域配置与来源白名单一致
func corsMiddleware(oc *OriginChecker, origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
		MaxAge: 12 * time.Hour,
	}
	if oc.AllowAll() || len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// requestLogger 记录 HTTP 请求（WebSocket 连接由 handleWebSocket 自己记录）
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.FullPath() == "/ws" {
			return
		}
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("http")
	}
}

// registerClient 注册客户端
func (s *Server) registerClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[client.ID] = client
}

// unregisterClient 注销客户端
func (s *Server) unregisterClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if _, ok := s.clients[client.ID]; ok {
		delete(s.clients, client.ID)
		log.Info().Str("client", client.ID).Str("player", client.GetPlayerID()).Msg("❌ 客户端已断开")
	}
}
