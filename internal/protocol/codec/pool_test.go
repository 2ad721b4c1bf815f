package codec

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessagePool_GetPut(t *testing.T) {
	t.Parallel()

	msg := GetMessage()
	assert.NotNil(t, msg)

	msg.Type = "test"
	msg.Data = []byte(`{"a":1}`)
	PutMessage(msg)

	// 再次取出的对象必须已被重置
	msg2 := GetMessage()
	assert.NotNil(t, msg2)
	assert.Empty(t, msg2.Type)
	assert.Nil(t, msg2.Data)
}

func TestMessagePool_PutNil(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		PutMessage(nil)
	})
}

func TestBufferPool_GetPut(t *testing.T) {
	t.Parallel()

	buf := GetBuffer()
	assert.NotNil(t, buf)
	assert.Equal(t, 0, buf.Len())

	buf.WriteString("test data")
	assert.Equal(t, 9, buf.Len())
	PutBuffer(buf)

	buf2 := GetBuffer()
	assert.NotNil(t, buf2)
	assert.Equal(t, 0, buf2.Len())
}

func TestBufferPool_PutNil(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		PutBuffer(nil)
	})
}

func TestPools_Concurrency(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	for range 100 {
		wg.Go(func() {
			msg := GetMessage()
			msg.Type = "concurrent"
			PutMessage(msg)

			buf := GetBuffer()
			buf.WriteString("concurrent test")
			PutBuffer(buf)
		})
	}
	wg.Wait()
}
