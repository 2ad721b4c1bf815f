package codec

import (
	"bytes"
	"sync"

	"github.com/palemoky/europe-conquest/internal/protocol"
)

// Message pools for reducing GC pressure on the hot read path
var (
	messagePool = sync.Pool{
		New: func() any {
			return &protocol.Message{}
		},
	}

	bufferPool = sync.Pool{
		New: func() any {
			return new(bytes.Buffer)
		},
	}
)

// GetMessage retrieves a Message from the pool
func GetMessage() *protocol.Message {
	return messagePool.Get().(*protocol.Message)
}

// PutMessage returns a Message to the pool
// The message fields are reset to prevent memory leaks
func PutMessage(msg *protocol.Message) {
	if msg == nil {
		return
	}
	msg.Type = ""
	msg.Data = nil
	messagePool.Put(msg)
}

// GetBuffer retrieves a bytes.Buffer from the pool
func GetBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

// PutBuffer returns a bytes.Buffer to the pool
// The buffer is reset but capacity is preserved
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}
