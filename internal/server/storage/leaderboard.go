package storage

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/europe-conquest/internal/protocol"
)

const (
	leaderboardKey = "leaderboard:provinces" // 累计占领国家数
	winsKey        = "leaderboard:wins"      // 每局第一名次数
)

// LeaderboardEntry 总排行条目
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	Name      string `json:"name"`
	Provinces int    `json:"provinces"`
	Wins      int    `json:"wins"`
}

// LeaderboardManager 跨房间的总排行（按玩家名称累计）
type LeaderboardManager struct {
	redis *redis.Client
}

// NewLeaderboardManager 创建排行榜管理器
func NewLeaderboardManager(client *redis.Client) *LeaderboardManager {
	return &LeaderboardManager{redis: client}
}

// RecordRound 累计一局的结果，第一名（得分大于 0）记一次胜场
func (lm *LeaderboardManager) RecordRound(ctx context.Context, entries []protocol.LeaderboardEntry) error {
	if len(entries) == 0 {
		return nil
	}

	pipe := lm.redis.TxPipeline()
	for _, e := range entries {
		pipe.ZIncrBy(ctx, leaderboardKey, float64(e.Score), e.Name)
	}
	if winner := entries[0]; winner.Score > 0 {
		pipe.ZIncrBy(ctx, winsKey, 1, winner.Name)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// GetTop 获取前 n 名
func (lm *LeaderboardManager) GetTop(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	if n <= 0 {
		return []LeaderboardEntry{}, nil
	}

	results, err := lm.redis.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(results))
	for i, z := range results {
		name, _ := z.Member.(string)
		entry := LeaderboardEntry{
			Rank:      i + 1,
			Name:      name,
			Provinces: int(z.Score),
		}
		if wins, err := lm.redis.ZScore(ctx, winsKey, name).Result(); err == nil {
			entry.Wins = int(wins)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
