package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/europe-conquest/internal/protocol"
)

const (
	// Redis key 前缀
	roomKeyPrefix     = "room:"
	fallbackKeyPrefix = "europe_fallback_"

	// 默认过期时间（与空房间保留时长一致）
	defaultExpiration = 2 * time.Hour
)

// RoomMeta 房间元数据（用于 Redis 序列化）
type RoomMeta struct {
	Code        string `json:"code"`
	HostID      string `json:"host_id"`
	Phase       string `json:"phase"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	CreatedAt   int64  `json:"created_at"`
}

// RedisStore Redis 存储：房间元数据与回退快照缓存
// 仅作为缓存，房间状态的唯一来源始终是内存中的 Room
type RedisStore struct {
	client     *redis.Client
	expiration time.Duration
}

// NewRedisStore 创建 Redis 存储，expiration 为 0 时使用默认值
func NewRedisStore(client *redis.Client, expiration time.Duration) *RedisStore {
	if expiration <= 0 {
		expiration = defaultExpiration
	}
	return &RedisStore{client: client, expiration: expiration}
}

// FallbackKey 回退快照的存储 key
func FallbackKey(roomCode string) string {
	return fallbackKeyPrefix + roomCode
}

// --- 房间元数据 ---

// SaveRoom 保存房间到 Redis
func (rs *RedisStore) SaveRoom(ctx context.Context, roomCode string, meta *RoomMeta) error {
	if meta == nil {
		return nil
	}

	jsonData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal room meta: %w", err)
	}

	return rs.client.Set(ctx, roomKeyPrefix+roomCode, jsonData, rs.expiration).Err()
}

// LoadRoom 从 Redis 加载房间元数据，不存在时返回 nil
func (rs *RedisStore) LoadRoom(ctx context.Context, roomCode string) (*RoomMeta, error) {
	data, err := rs.client.Get(ctx, roomKeyPrefix+roomCode).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var meta RoomMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal room meta: %w", err)
	}
	return &meta, nil
}

// DeleteRoom 删除房间元数据与回退快照
func (rs *RedisStore) DeleteRoom(ctx context.Context, roomCode string) error {
	return rs.client.Del(ctx, roomKeyPrefix+roomCode, FallbackKey(roomCode)).Err()
}

// --- 回退快照 ---

// SaveFallback 保存最近一次全量快照
func (rs *RedisStore) SaveFallback(ctx context.Context, roomCode string, rec *protocol.FallbackRecord) error {
	if rec == nil {
		return nil
	}

	jsonData, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal fallback record: %w", err)
	}
	return rs.client.Set(ctx, FallbackKey(roomCode), jsonData, rs.expiration).Err()
}

// LoadFallback 读取回退快照，不存在时返回 nil
func (rs *RedisStore) LoadFallback(ctx context.Context, roomCode string) (*protocol.FallbackRecord, error) {
	data, err := rs.client.Get(ctx, FallbackKey(roomCode)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var rec protocol.FallbackRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal fallback record: %w", err)
	}
	return &rec, nil
}

// Ping 检查 Redis 连接
func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}
