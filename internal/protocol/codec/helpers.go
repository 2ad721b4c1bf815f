package codec

import (
	"encoding/json"

	"github.com/palemoky/europe-conquest/internal/protocol"
)

// NewMessage 创建一个新消息，payload 以 JSON 形式存入 Data
func NewMessage(msgType protocol.MessageType, payload any) (*protocol.Message, error) {
	var data json.RawMessage
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return &protocol.Message{
		Type: msgType,
		Data: data,
	}, nil
}

// MustNewMessage 创建消息，失败时 panic
func MustNewMessage(msgType protocol.MessageType, payload any) *protocol.Message {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// ParsePayload 解析消息的 Data 到指定类型
func ParsePayload[T any](msg *protocol.Message) (*T, error) {
	var payload T
	if len(msg.Data) == 0 {
		return &payload, nil
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// NewErrorMessage 创建错误消息
func NewErrorMessage(code int) *protocol.Message {
	return NewErrorMessageWithText(code, protocol.ErrorMessages[code])
}

// NewErrorMessageWithText 创建带自定义文本的错误消息
func NewErrorMessageWithText(code int, text string) *protocol.Message {
	msg, _ := NewMessage(protocol.MsgError, protocol.ErrorPayload{
		Code:    code,
		Message: text,
	})
	return msg
}
