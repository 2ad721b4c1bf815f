package server

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
)

// shutdownCheckInterval 优雅关闭时检查对局状态的间隔
const shutdownCheckInterval = time.Second

// monitorStats 定期监控服务器状态
func (s *Server) monitorStats(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-s.stopMonitor:
			return
		}

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		st := s.stats.snapshot()

		log.Info().
			Int("online", s.GetOnlineCount()).
			Int("rooms", s.roomManager.RoomCount()).
			Int("active_games", s.roomManager.GetActiveGamesCount()).
			Int("goroutines", runtime.NumGoroutine()).
			Int("conns", len(s.semaphore)).
			Int("max_conns", s.maxConnections).
			Int64("attacks", st.Attacks).
			Int64("captures", st.Captures).
			Float64("mem_mb", float64(m.Alloc)/1024/1024).
			Msg("📊 [监控]")
	}
}

// GetOnlineCount 获取在线连接数
func (s *Server) GetOnlineCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// EnterMaintenanceMode 进入维护模式：拒绝新连接和新房间，已有房间继续进行
func (s *Server) EnterMaintenanceMode() {
	s.maintenanceMu.Lock()
	s.maintenanceMode = true
	s.maintenanceMu.Unlock()

	log.Info().Msg("🔧 进入维护模式：停止新连接和房间创建")
}

// IsMaintenanceMode 检查是否在维护模式
func (s *Server) IsMaintenanceMode() bool {
	s.maintenanceMu.RLock()
	defer s.maintenanceMu.RUnlock()
	return s.maintenanceMode
}

// GracefulShutdown 优雅关闭服务器：等待进行中的对局结束，超时后强制关闭
func (s *Server) GracefulShutdown(timeout time.Duration) {
	// 1. 进入维护模式
	s.EnterMaintenanceMode()

	// 2. 等待游戏结束
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(shutdownCheckInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		activeGames := s.roomManager.GetActiveGamesCount()
		if activeGames == 0 {
			log.Info().Msg("✅ 所有对局已结束")
			break
		}
		log.Info().Int("active_games", activeGames).Msg("⏳ 等待对局结束...")
		<-ticker.C
	}

	// 3. 超时检查
	if activeGames := s.roomManager.GetActiveGamesCount(); activeGames > 0 {
		log.Warn().Int("active_games", activeGames).Msg("⚠️ 超时，仍有对局进行中，强制关闭")
	}

	// 4. 关闭服务器
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Shutdown(ctx)
}

// Shutdown 关闭 HTTP 监听、所有房间和连接，并等待挂起的 Redis 写入
func (s *Server) Shutdown(ctx context.Context) {
	s.stopOnce.Do(func() { close(s.stopMonitor) })

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("HTTP 服务关闭异常")
		}
	}

	// 关闭所有房间（停止计时器，通知玩家）
	s.roomManager.Shutdown()

	// 关闭所有客户端连接
	s.clientsMu.RLock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clientsMu.RUnlock()

	s.rateLimiter.Stop()

	// 等待挂起的写入
	if s.writer != nil {
		s.writer.Wait()
	}

	// 关闭 Redis
	if s.redis != nil {
		_ = s.redis.Close()
	}

	log.Info().Msg("服务器已关闭")
}
