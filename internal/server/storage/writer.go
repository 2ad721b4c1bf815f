package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/europe-conquest/internal/protocol"
)

const writeTimeout = 3 * time.Second

// writeJob 一次排队的写入
// fallback 非 nil 表示回退快照写入，排在队尾时可被更新的快照覆盖
type writeJob struct {
	op       string
	fn       func(ctx context.Context) error
	fallback *protocol.FallbackRecord
}

// Writer 异步写入 Redis，房间执行协程不会因网络 IO 阻塞
// 同一房间的写入按提交顺序串行执行，删除总在之前的保存之后落地
// 写入失败只记录日志，不影响游戏
type Writer struct {
	store       *RedisStore
	leaderboard *LeaderboardManager

	mu     sync.Mutex
	queues map[string][]*writeJob // 房间号 → 待执行写入，存在即表示有协程在消费
	wg     sync.WaitGroup
}

// NewWriter 创建异步写入器，leaderboard 可为 nil
func NewWriter(store *RedisStore, leaderboard *LeaderboardManager) *Writer {
	return &Writer{
		store:       store,
		leaderboard: leaderboard,
		queues:      make(map[string][]*writeJob),
	}
}

func (w *Writer) enqueue(roomCode string, job *writeJob) {
	w.mu.Lock()
	defer w.mu.Unlock()

	queue, running := w.queues[roomCode]
	if job.fallback != nil && len(queue) > 0 {
		// 队尾的快照还没写，直接换成最新的
		if tail := queue[len(queue)-1]; tail.fallback != nil {
			tail.fallback = job.fallback
			return
		}
	}

	w.queues[roomCode] = append(queue, job)
	w.wg.Add(1)
	if !running {
		go w.drain(roomCode)
	}
}

// drain 按顺序消费某房间的写入，队列清空后退出
func (w *Writer) drain(roomCode string) {
	for {
		w.mu.Lock()
		queue := w.queues[roomCode]
		if len(queue) == 0 {
			delete(w.queues, roomCode)
			w.mu.Unlock()
			return
		}
		job := queue[0]
		w.queues[roomCode] = queue[1:]
		w.mu.Unlock()

		w.run(roomCode, job)
		w.wg.Done()
	}
}

func (w *Writer) run(roomCode string, job *writeJob) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	if job.fallback != nil {
		err = w.store.SaveFallback(ctx, roomCode, job.fallback)
	} else {
		err = job.fn(ctx)
	}
	if err != nil {
		log.Warn().Err(err).Str("op", job.op).Str("room", roomCode).Msg("⚠️ Redis 写入失败")
	}
}

// SaveRoom 保存房间元数据
func (w *Writer) SaveRoom(roomCode string, meta *RoomMeta) {
	w.enqueue(roomCode, &writeJob{op: "save_room", fn: func(ctx context.Context) error {
		return w.store.SaveRoom(ctx, roomCode, meta)
	}})
}

// SaveFallback 缓存最近一次全量快照，连续的未写快照只保留最新一份
func (w *Writer) SaveFallback(roomCode string, rec *protocol.FallbackRecord) {
	if rec == nil {
		return
	}
	w.enqueue(roomCode, &writeJob{op: "save_fallback", fallback: rec})
}

// DeleteRoom 删除房间元数据与回退快照
func (w *Writer) DeleteRoom(roomCode string) {
	w.enqueue(roomCode, &writeJob{op: "delete_room", fn: func(ctx context.Context) error {
		return w.store.DeleteRoom(ctx, roomCode)
	}})
}

// RecordRound 累计一局结果到总排行
func (w *Writer) RecordRound(roomCode string, entries []protocol.LeaderboardEntry) {
	if w.leaderboard == nil {
		return
	}
	w.enqueue(roomCode, &writeJob{op: "record_round", fn: func(ctx context.Context) error {
		return w.leaderboard.RecordRound(ctx, entries)
	}})
}

// Wait 等待所有挂起的写入完成
func (w *Writer) Wait() {
	w.wg.Wait()
}
