package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec 信封的帧编码。JSON 走文本帧，msgpack 走二进制帧，
// 接收端按帧类型选择解码器，因此两端无需额外协商。
type Codec interface {
	Name() string
	FrameType() int
	Marshal(e Envelope) ([]byte, error)
	Unmarshal(data []byte, e *Envelope) error
}

type JSONCodec struct{}

func (JSONCodec) Name() string                          { return "json" }
func (JSONCodec) FrameType() int                        { return websocket.TextMessage }
func (JSONCodec) Marshal(e Envelope) ([]byte, error)    { return json.Marshal(e) }
func (JSONCodec) Unmarshal(b []byte, e *Envelope) error { return json.Unmarshal(b, e) }

type MsgpackCodec struct{}

func (MsgpackCodec) Name() string                          { return "msgpack" }
func (MsgpackCodec) FrameType() int                        { return websocket.BinaryMessage }
func (MsgpackCodec) Marshal(e Envelope) ([]byte, error)    { return msgpack.Marshal(&e) }
func (MsgpackCodec) Unmarshal(b []byte, e *Envelope) error { return msgpack.Unmarshal(b, e) }

// CodecByName 按配置名取编码器
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// DecodeFrame 按 websocket 帧类型解码并校验信封
func DecodeFrame(frameType int, data []byte) (Envelope, error) {
	var c Codec
	switch frameType {
	case websocket.TextMessage:
		c = JSONCodec{}
	case websocket.BinaryMessage:
		c = MsgpackCodec{}
	default:
		return Envelope{}, fmt.Errorf("frame type %d: %w", frameType, ErrUnknownMessage)
	}
	var e Envelope
	if err := c.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("%s frame: %v: %w", c.Name(), err, ErrMalformed)
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}
