package server

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"duelsync/game"
	"duelsync/protocol"
)

// fakeConn 记录发出的消息与事件，按发送顺序保存
type fakeConn struct {
	mu     sync.Mutex
	events []protocol.Envelope
	closed bool
}

func (c *fakeConn) Send(m protocol.Message) { c.Emit(protocol.MessageEnvelope(m)) }

func (c *fakeConn) Emit(e protocol.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// all 除快照外的全部事件
func (c *fakeConn) all() []protocol.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []protocol.Envelope
	for _, e := range c.events {
		if e.Event != protocol.EventServerUpdate {
			out = append(out, e)
		}
	}
	return out
}

// messages 仅字符串消息
func (c *fakeConn) messages() []string {
	var out []string
	for _, e := range c.all() {
		if e.Event == protocol.EventMessage {
			out = append(out, e.Message)
		}
	}
	return out
}

func (c *fakeConn) snapshots() []protocol.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []protocol.Snapshot
	for _, e := range c.events {
		if e.Event == protocol.EventServerUpdate {
			out = append(out, *e.Snapshot)
		}
	}
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

// testWorld 步长为 1 的小世界，便于手算位置
var testWorld = game.World{Width: 100, Height: 100, Step: 1}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.World = testWorld
	cfg.TickRate = 1 // 测试中手动调用 step，后台 Tick 只是偶发快照
	srv, err := NewServer(cfg, zaptest.NewLogger(t).Sugar(), NewSequenceGenerator("id-"))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(srv.Shutdown)
	return srv
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()
	metrics := &Metrics{}
	r := NewRegistry(RegistryOptions{
		Log:     log,
		IDs:     NewSequenceGenerator("game-"),
		Metrics: metrics,
		NewSimulator: func() *Simulator {
			return NewSimulator(SimulatorConfig{World: testWorld, Interval: time.Hour, InputQueue: 16}, log, metrics)
		},
	})
	t.Cleanup(r.Shutdown)
	return r
}

var playerSeq = NewSequenceGenerator("")

// newTestPlayer 已连接的玩家
func newTestPlayer(name string) (*Player, *fakeConn) {
	conn := &fakeConn{}
	n := playerSeq.NewID()
	p := newPlayer(name+"-internal-"+n, name+"-public-"+n, conn, nil)
	p.setState(StateConnected)
	return p, conn
}
