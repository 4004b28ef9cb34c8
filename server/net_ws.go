package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"duelsync/protocol"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws    *websocket.Conn
	codec protocol.Codec
	send  chan []byte
	done  chan struct{}
	once  sync.Once
	onErr func(error)
}

func NewClientConn(ws *websocket.Conn, codec protocol.Codec) *ClientConn {
	return &ClientConn{
		ws:    ws,
		codec: codec,
		send:  make(chan []byte, 64),
		done:  make(chan struct{}),
	}
}

// Send 发送字符串消息
func (c *ClientConn) Send(m protocol.Message) {
	c.Emit(protocol.MessageEnvelope(m))
}

// Emit 编码信封后压入发送队列
func (c *ClientConn) Emit(e protocol.Envelope) {
	b, err := c.codec.Marshal(e)
	if err != nil {
		if c.onErr != nil {
			c.onErr(err)
		}
		return
	}
	c.Enqueue(b)
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) {
	select {
	case <-c.done:
	case c.send <- b:
	default:
		// 为了实时性，丢弃新消息（防止阻塞 Tick）
	}
}

// Close 关闭底层连接并结束写协程，可重复调用
func (c *ClientConn) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期发送心跳
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(c.codec.FrameType(), msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端消息并交给 Server 分发；退出时作为断开事件处理
func (c *ClientConn) readPump(s *Server, p *Player) {
	defer c.Close()
	defer s.Disconnect(p)
	c.ws.SetReadLimit(4 << 10)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		frameType, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.DecodeFrame(frameType, payload)
		if err != nil || env.Event != protocol.EventMessage {
			s.metrics.IncMalformed()
			continue
		}
		s.OnMessage(p, env.Message)
	}
}

// HandleWS WebSocket 接入
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if !s.allowConnect(ip) {
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("upgrade error: %v", err)
		return
	}

	client := NewClientConn(ws, s.codec)
	client.onErr = func(err error) { s.log.Errorf("encode frame: %v", err) }
	go client.writePump()
	p := s.Connect(client)
	go client.readPump(s, p)
}
