//go:build !production

package testutil

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/europe-conquest/internal/protocol"
	"github.com/palemoky/europe-conquest/internal/protocol/codec"
)

// MockSession 实现 types.Session 的 mock
type MockSession struct {
	mock.Mock
}

func (m *MockSession) GetID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockSession) GetPlayerID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockSession) SetPlayerID(id string) {
	m.Called(id)
}

func (m *MockSession) GetRoom() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockSession) SetRoom(roomCode string) {
	m.Called(roomCode)
}

func (m *MockSession) SendMessage(msg *protocol.Message) bool {
	args := m.Called(msg)
	return args.Bool(0)
}

func (m *MockSession) Close() {
	m.Called()
}

// SimpleSession 记录收到消息的会话（并发安全），不使用 testify
type SimpleSession struct {
	ID string

	mu       sync.Mutex
	playerID string
	roomCode string
	messages []*protocol.Message
	closed   bool
	refuse   bool
}

// NewSimpleSession 创建测试会话
func NewSimpleSession(id string) *SimpleSession {
	return &SimpleSession{ID: id}
}

func (s *SimpleSession) GetID() string { return s.ID }

func (s *SimpleSession) GetPlayerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID
}

func (s *SimpleSession) SetPlayerID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerID = id
}

func (s *SimpleSession) GetRoom() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomCode
}

func (s *SimpleSession) SetRoom(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomCode = code
}

func (s *SimpleSession) SendMessage(msg *protocol.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.refuse {
		return false
	}
	s.messages = append(s.messages, msg)
	return true
}

func (s *SimpleSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Refuse 之后的发送全部失败，模拟发送队列已满
func (s *SimpleSession) Refuse() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refuse = true
}

// IsClosed 是否已被关闭
func (s *SimpleSession) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SentMessages 已收到的全部消息
func (s *SimpleSession) SentMessages() []*protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*protocol.Message(nil), s.messages...)
}

// MessagesOfType 指定类型的消息
func (s *SimpleSession) MessagesOfType(t protocol.MessageType) []*protocol.Message {
	var out []*protocol.Message
	for _, m := range s.SentMessages() {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// LastOfType 指定类型的最后一条消息，不存在时为 nil
func (s *SimpleSession) LastOfType(t protocol.MessageType) *protocol.Message {
	msgs := s.MessagesOfType(t)
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

// Reset 清空已记录的消息
func (s *SimpleSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// Decode 解析消息 payload，失败时 panic（仅用于测试）
func Decode[T any](msg *protocol.Message) T {
	p, err := codec.ParsePayload[T](msg)
	if err != nil {
		panic(err)
	}
	return *p
}
