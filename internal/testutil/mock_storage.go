//go:build !production

package testutil

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/europe-conquest/internal/protocol"
	"github.com/palemoky/europe-conquest/internal/server/storage"
)

// MockFallbackStore 回退快照存储 mock
type MockFallbackStore struct {
	mock.Mock
}

func (m *MockFallbackStore) SaveFallback(roomCode string, rec *protocol.FallbackRecord) {
	m.Called(roomCode, rec)
}

// RecordingStore 记录房间元数据写入与排行记录（并发安全）
type RecordingStore struct {
	mu      sync.Mutex
	saved   map[string]*storage.RoomMeta
	deleted []string
	rounds  map[string][][]protocol.LeaderboardEntry
}

// NewRecordingStore 创建记录型存储
func NewRecordingStore() *RecordingStore {
	return &RecordingStore{
		saved:  make(map[string]*storage.RoomMeta),
		rounds: make(map[string][][]protocol.LeaderboardEntry),
	}
}

func (s *RecordingStore) SaveRoom(roomCode string, meta *storage.RoomMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[roomCode] = meta
}

func (s *RecordingStore) DeleteRoom(roomCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, roomCode)
	s.deleted = append(s.deleted, roomCode)
}

func (s *RecordingStore) RecordRound(roomCode string, entries []protocol.LeaderboardEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[roomCode] = append(s.rounds[roomCode], entries)
}

// Meta 最近一次保存的元数据
func (s *RecordingStore) Meta(roomCode string) *storage.RoomMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[roomCode]
}

// Deleted 已删除的房间号
func (s *RecordingStore) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

// Rounds 某房间记录的各局排行
func (s *RecordingStore) Rounds(roomCode string) [][]protocol.LeaderboardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]protocol.LeaderboardEntry(nil), s.rounds[roomCode]...)
}
