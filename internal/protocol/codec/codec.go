package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/europe-conquest/internal/protocol"
)

// WebSocket 子协议名称
const (
	SubprotocolJSON  = "europe.json"
	SubprotocolProto = "europe.proto"
)

// Subprotocols 服务端支持的子协议（按优先级）
var Subprotocols = []string{SubprotocolJSON, SubprotocolProto}

// ErrEmptyType 信封缺少 type 字段
var ErrEmptyType = errors.New("codec: message type is empty")

// Codec 信封编解码器
type Codec interface {
	Name() string
	// Binary 为 true 时使用二进制帧发送
	Binary() bool
	Encode(msg *protocol.Message) ([]byte, error)
	// Decode 返回的消息来自对象池，使用完毕后应调用 PutMessage
	Decode(data []byte) (*protocol.Message, error)
}

// ForSubprotocol 按协商结果选择编解码器，未知或为空时回退到 JSON
func ForSubprotocol(name string) Codec {
	if name == SubprotocolProto {
		return ProtoCodec{}
	}
	return JSONCodec{}
}

// JSONCodec 文本帧 JSON 信封 {"type": ..., "data": ...}
type JSONCodec struct{}

func (JSONCodec) Name() string { return SubprotocolJSON }
func (JSONCodec) Binary() bool { return false }

// Encode 将消息编码为 JSON 字节
func (JSONCodec) Encode(msg *protocol.Message) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(msg); err != nil {
		return nil, err
	}
	// Encoder 会追加换行符
	out := buf.Bytes()
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
	}
	return append([]byte(nil), out...), nil
}

// Decode 从 JSON 字节解码消息
func (JSONCodec) Decode(data []byte) (*protocol.Message, error) {
	msg := GetMessage()
	if err := json.Unmarshal(data, msg); err != nil {
		PutMessage(msg)
		return nil, err
	}
	if msg.Type == "" {
		PutMessage(msg)
		return nil, ErrEmptyType
	}
	return msg, nil
}

// ProtoCodec 二进制帧，信封为 google.protobuf.Struct
type ProtoCodec struct{}

func (ProtoCodec) Name() string { return SubprotocolProto }
func (ProtoCodec) Binary() bool { return true }

// Encode 将消息编码为 Protobuf 字节
func (ProtoCodec) Encode(msg *protocol.Message) ([]byte, error) {
	fields := map[string]any{"type": string(msg.Type)}
	if len(msg.Data) > 0 {
		var data any
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return nil, fmt.Errorf("codec: decode data: %w", err)
		}
		fields["data"] = data
	}

	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("codec: build struct: %w", err)
	}
	return proto.Marshal(st)
}

// Decode 从 Protobuf 字节解码消息
func (ProtoCodec) Decode(data []byte) (*protocol.Message, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, err
	}

	typ := st.GetFields()["type"].GetStringValue()
	if typ == "" {
		return nil, ErrEmptyType
	}

	msg := GetMessage()
	msg.Type = protocol.MessageType(typ)
	if v, ok := st.GetFields()["data"]; ok {
		raw, err := v.MarshalJSON()
		if err != nil {
			PutMessage(msg)
			return nil, err
		}
		msg.Data = raw
	}
	return msg, nil
}
