package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// --- 建连速率限制 ---

// RateLimiter 按 IP 的建连速率限制器，超限后封禁一段时间
type RateLimiter struct {
	clients map[string]*clientRate
	mu      sync.Mutex

	// 配置
	perSecond   int           // 每秒最大建连数
	perMinute   int           // 每分钟最大建连数
	banDuration time.Duration // 封禁时长

	stop     chan struct{}
	stopOnce sync.Once
}

// clientRate 单个 IP 的令牌桶与封禁状态
type clientRate struct {
	second      *rate.Limiter
	minute      *rate.Limiter
	lastSeen    time.Time
	bannedUntil time.Time
}

// NewRateLimiter 创建速率限制器
func NewRateLimiter(maxPerSecond, maxPerMinute int, banDuration time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients:     make(map[string]*clientRate),
		perSecond:   maxPerSecond,
		perMinute:   maxPerMinute,
		banDuration: banDuration,
		stop:        make(chan struct{}),
	}

	// 启动清理协程
	go rl.cleanup(5 * time.Minute)

	return rl
}

// Allow 检查是否允许建连
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cr, exists := rl.clients[ip]
	if !exists {
		cr = &clientRate{
			second: rate.NewLimiter(rate.Limit(rl.perSecond), rl.perSecond),
			minute: rate.NewLimiter(rate.Every(time.Minute/time.Duration(max(rl.perMinute, 1))), rl.perMinute),
		}
		rl.clients[ip] = cr
	}
	cr.lastSeen = now

	// 检查是否被封禁
	if now.Before(cr.bannedUntil) {
		return false
	}

	// 两个桶都要有令牌
	if !cr.second.AllowN(now, 1) || !cr.minute.AllowN(now, 1) {
		cr.bannedUntil = now.Add(rl.banDuration)
		log.Warn().Str("ip", ip).Dur("ban", rl.banDuration).Msg("⚠️ 建连过于频繁，暂时封禁")
		return false
	}
	return true
}

// IsBanned 检查 IP 是否被封禁
func (rl *RateLimiter) IsBanned(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cr, exists := rl.clients[ip]
	return exists && time.Now().Before(cr.bannedUntil)
}

// Stop 停止清理协程
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// cleanup 清理过期记录
func (rl *RateLimiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.prune(time.Now())
		case <-rl.stop:
			return
		}
	}
}

// prune 删除超过 10 分钟没有请求且未被封禁的记录
func (rl *RateLimiter) prune(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, cr := range rl.clients {
		if now.Sub(cr.lastSeen) > 10*time.Minute && now.After(cr.bannedUntil) {
			delete(rl.clients, ip)
		}
	}
}

// --- 来源验证 ---

// OriginChecker 来源验证器
type OriginChecker struct {
	allowedOrigins map[string]bool
	allowAll       bool
}

// NewOriginChecker 创建来源验证器
func NewOriginChecker(origins []string) *OriginChecker {
	oc := &OriginChecker{
		allowedOrigins: make(map[string]bool),
	}

	for _, origin := range origins {
		if origin == "*" {
			oc.allowAll = true
			return oc
		}
		oc.allowedOrigins[strings.ToLower(origin)] = true
	}

	return oc
}

// Check 检查来源是否允许
func (oc *OriginChecker) Check(r *http.Request) bool {
	return oc.AllowOrigin(r.Header.Get("Origin"))
}

// AllowOrigin 检查单个来源，空来源视为同源或本地客户端
func (oc *OriginChecker) AllowOrigin(origin string) bool {
	if oc.allowAll || origin == "" {
		return true
	}
	return oc.allowedOrigins[strings.ToLower(origin)]
}

// AllowAll 是否允许任意来源
func (oc *OriginChecker) AllowAll() bool {
	return oc.allowAll
}

// --- 消息速率限制 ---

// maxStrikes 连续超速次数上限，超过后断开连接
const maxStrikes = 5

// MessageRateLimiter 消息速率限制器（针对已连接的会话）
type MessageRateLimiter struct {
	limits map[string]*messageRate
	mu     sync.Mutex

	perSecond int
	burst     int
}

type messageRate struct {
	limiter *rate.Limiter
	strikes int // 超速次数
}

// NewMessageRateLimiter 创建消息速率限制器
func NewMessageRateLimiter(perSecond, burst int) *MessageRateLimiter {
	return &MessageRateLimiter{
		limits:    make(map[string]*messageRate),
		perSecond: perSecond,
		burst:     max(burst, perSecond),
	}
}

// Allow 检查会话是否还能发送消息，返回累计超速次数
func (ml *MessageRateLimiter) Allow(sessionID string) (allowed bool, strikes int) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	mr, exists := ml.limits[sessionID]
	if !exists {
		mr = &messageRate{limiter: rate.NewLimiter(rate.Limit(ml.perSecond), ml.burst)}
		ml.limits[sessionID] = mr
	}

	if mr.limiter.Allow() {
		return true, mr.strikes
	}
	mr.strikes++
	return false, mr.strikes
}

// ShouldDisconnect 超速次数是否已超过上限
func ShouldDisconnect(strikes int) bool {
	return strikes > maxStrikes
}

// Remove 移除会话记录
func (ml *MessageRateLimiter) Remove(sessionID string) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	delete(ml.limits, sessionID)
}
