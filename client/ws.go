package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"duelsync/protocol"
)

const writeWait = 5 * time.Second

// WSTransport 客户端的 WebSocket 传输：出站总是 JSON 文本帧，入站按帧类型解码
type WSTransport struct {
	ws    *websocket.Conn
	log   *zap.SugaredLogger
	codec protocol.Codec
	in    chan protocol.Envelope
	once  sync.Once
}

// Dial 连接服务端
func Dial(ctx context.Context, url string, log *zap.SugaredLogger) (*WSTransport, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &WSTransport{
		ws:    ws,
		log:   log,
		codec: protocol.JSONCodec{},
		in:    make(chan protocol.Envelope, 64),
	}, nil
}

// Send 编码并写出一条消息
func (t *WSTransport) Send(m protocol.Message) error {
	b, err := t.codec.Marshal(protocol.MessageEnvelope(m))
	if err != nil {
		return err
	}
	_ = t.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return t.ws.WriteMessage(t.codec.FrameType(), b)
}

// Incoming 入站事件，ReadLoop 退出时关闭
func (t *WSTransport) Incoming() <-chan protocol.Envelope {
	return t.in
}

// ReadLoop 读取并解码入站帧，直到连接关闭或 ctx 取消
func (t *WSTransport) ReadLoop(ctx context.Context) error {
	defer close(t.in)
	go func() {
		<-ctx.Done()
		t.Close()
	}()
	for {
		ft, data, err := t.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		env, err := protocol.DecodeFrame(ft, data)
		if err != nil {
			t.log.Debugf("drop frame: %v", err)
			continue
		}
		select {
		case t.in <- env:
		case <-ctx.Done():
			return nil
		}
	}
}

// Close 关闭连接，可重复调用
func (t *WSTransport) Close() {
	t.once.Do(func() { _ = t.ws.Close() })
}
