// Package client 实现客户端侧的预测与对账：本地输入立即生效，
// 收到服务端快照后丢弃已确认输入、硬校正位置并重放未确认输入。
//
// Client 的所有状态只由 Run 中的单个协作式循环修改，因此不需要加锁；
// 各处理函数都不阻塞。
package client

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"duelsync/game"
	"duelsync/protocol"
)

// 本地玩家与远端玩家的状态描述
const (
	StateConnecting    = "connecting"
	StateConnected     = "connected"
	StateHostWaiting   = "hosting.waiting for a player"
	StateJoinedWaiting = "connected.joined.waiting"
	StateHosting       = "local_pos(hosting)"
	StateJoined        = "local_pos(joined)"
	StateNotConnected  = "not-connected"
)

// ErrDisconnected 传输层关闭
var ErrDisconnected = errors.New("disconnected from server")

// Sender 出站通道，发送即发即弃
type Sender interface {
	Send(m protocol.Message) error
}

// InputSource 每个本地 Tick 采样一次当前输入；返回空表示无输入
type InputSource func() []game.Command

// Config 客户端参数
type Config struct {
	World        game.World // 必须与服务端一致
	TickInterval time.Duration
	PingInterval time.Duration
	BufferSize   int // 快照历史 = 60 × BufferSize
	MaxPending   int // 未确认输入上限
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		World:        game.DefaultWorld(),
		TickInterval: 15 * time.Millisecond,
		PingInterval: time.Second,
		BufferSize:   2,
		MaxPending:   1024,
	}
}

// RemotePlayer 其他参与者（只知道 publicid）
type RemotePlayer struct {
	PublicID string
	Host     bool
	State    string
	Color    string
	Pos      game.Vec
}

// Client 一个客户端会话
type Client struct {
	cfg  Config
	log  *zap.SugaredLogger
	out  Sender
	time *TimeBase
	seq  *InputSequencer
	pred *PredictionEngine
	rec  *ReconciliationEngine

	ID        string // 内部 id，只用于本端
	PublicID  string
	Host      bool
	State     string
	Online    bool
	Color     string
	inSession bool

	hostID      string
	others      map[string]*RemotePlayer
	displayTime float64
}

// New 创建客户端；now 为 nil 时使用系统时钟
func New(cfg Config, log *zap.SugaredLogger, out Sender, now func() time.Time) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		cfg:    cfg,
		log:    log,
		out:    out,
		time:   NewTimeBase(now),
		seq:    NewInputSequencer(cfg.MaxPending),
		pred:   NewPredictionEngine(cfg.World),
		rec:    NewReconciliationEngine(cfg.BufferSize),
		State:  StateConnecting,
		others: make(map[string]*RemotePlayer),
	}
}

func (c *Client) Position() game.Vec               { return c.pred.Position() }
func (c *Client) Pending() []PendingInput          { return c.seq.Pending() }
func (c *Client) Latency() time.Duration           { return c.time.Latency() }
func (c *Client) LocalTime() float64               { return c.time.LocalTime() }
func (c *Client) InSession() bool                  { return c.inSession }
func (c *Client) History() *SnapshotBuffer         { return c.rec.History() }
func (c *Client) Others() map[string]*RemotePlayer { return c.others }

// Remote 按 publicid 取远端玩家
func (c *Client) Remote(publicID string) (*RemotePlayer, bool) {
	p, ok := c.others[publicID]
	return p, ok
}

// Tick 一次本地 Tick：分配序列号、打时间戳、入缓冲、立即应用到本地位置，然后发送
func (c *Client) Tick(cmds []game.Command) error {
	if !c.inSession || len(cmds) == 0 {
		return nil
	}
	in := c.seq.Next(cmds, c.time.LocalTime())
	c.pred.Apply(in.Commands)
	return c.out.Send(protocol.Input{Commands: in.Commands, ClientTime: in.Time, Seq: in.Seq})
}

// Ping 发送携带本地时间的 ping
func (c *Client) Ping() error {
	return c.out.Send(c.time.PingMessage())
}

// SetColor 修改外观颜色并广播给对手。
// 不在会话中时只记录，开局（gameready）时再发送，对手才能收到。
func (c *Client) SetColor(color string) error {
	c.Color = color
	if !c.inSession {
		return nil
	}
	return c.out.Send(protocol.Color{Value: color})
}

// HandleEnvelope 分发一个入站事件；无法识别的消息静默丢弃
func (c *Client) HandleEnvelope(env protocol.Envelope) {
	if err := env.Validate(); err != nil {
		c.log.Debugf("drop envelope: %v", err)
		return
	}
	switch env.Event {
	case protocol.EventConnected:
		c.onConnected(*env.Connected)
	case protocol.EventGameReady:
		c.onReady(*env.GameReady)
	case protocol.EventServerUpdate:
		c.onServerUpdate(*env.Snapshot)
	case protocol.EventMessage:
		msg, err := protocol.Parse(env.Message)
		if err != nil {
			c.log.Debugf("drop message %q: %v", env.Message, err)
			return
		}
		c.onMessage(msg)
	}
}

func (c *Client) onMessage(msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.Hosting:
		c.onHosting(m)
	case protocol.Joined:
		c.onJoined(m)
	case protocol.Ended:
		c.onDisconnect()
	case protocol.Pong:
		if err := c.time.OnPong(m); err != nil {
			c.log.Debugf("bad pong: %v", err)
			return
		}
		c.log.Debugf("server latency %v", c.time.Latency())
	case protocol.ColorRelay:
		for _, o := range c.others {
			o.Color = m.Value
		}
	}
}

func (c *Client) onConnected(m protocol.Connected) {
	c.ID = m.ID
	c.PublicID = m.PublicID
	c.State = StateConnected
	c.Online = true
	c.log.Infof("connected as %s", m.PublicID)
}

// newSession 新的一局：序列号从 1 开始，历史与对手清空
func (c *Client) newSession() {
	c.inSession = true
	c.Online = true
	c.seq.Reset()
	c.rec.Reset()
	c.others = make(map[string]*RemotePlayer)
	c.hostID = ""
}

func (c *Client) onHosting(m protocol.Hosting) {
	c.newSession()
	c.time.AlignTo(m.StartTime)
	c.Host = true
	c.State = StateHostWaiting
	c.pred.SetPosition(c.cfg.World.StartPosition(0))
}

func (c *Client) onJoined(m protocol.Joined) {
	c.newSession()
	c.Host = false
	c.hostID = m.HostID
	c.State = StateJoinedWaiting
}

func (c *Client) onReady(m protocol.GameReady) {
	serverTime, err := m.ServerTime()
	if err != nil {
		c.log.Debugf("bad gameready time: %v", err)
		return
	}
	for _, id := range m.IDs {
		if _, ok := c.others[id]; !ok {
			c.others[id] = &RemotePlayer{PublicID: id}
		}
	}
	c.time.AlignTo(serverTime)
	if c.Host {
		c.State = StateHosting
	} else {
		c.State = StateJoined
	}
	for _, o := range c.others {
		o.Host = o.PublicID == c.hostID
		if o.Host {
			o.State = StateHosting
		} else {
			o.State = StateJoined
		}
	}
	c.resetPositions()
	if c.Color != "" {
		if err := c.out.Send(protocol.Color{Value: c.Color}); err != nil {
			c.log.Warnf("send color: %v", err)
		}
	}
	c.log.Infof("game ready with %d other players, server time %.3f", len(m.IDs), serverTime)
}

// resetPositions 回到开局布局；未确认输入保留，由后续快照校正
func (c *Client) resetPositions() {
	slot := 1
	if c.Host {
		slot = 0
	}
	c.pred.SetPosition(c.cfg.World.StartPosition(slot))
	for _, o := range c.others {
		if o.Host {
			o.Pos = c.cfg.World.StartPosition(0)
		} else {
			o.Pos = c.cfg.World.StartPosition(1)
		}
	}
}

func (c *Client) onDisconnect() {
	c.State = StateNotConnected
	c.Online = false
	c.inSession = false
	for _, o := range c.others {
		o.State = StateNotConnected
	}
}

func (c *Client) onServerUpdate(s protocol.Snapshot) {
	c.displayTime = c.time.DisplayTime(s.T)
	corr := c.rec.OnSnapshot(s, c.PublicID, c.seq, c.pred)
	if corr.Applied {
		c.log.Debugf("reconciled ack=%d discarded=%d replayed=%d", corr.Ack, corr.Discarded, corr.Replayed)
	}
}

// UpdateRemotes 按显示时间对远端玩家插值
func (c *Client) UpdateRemotes() {
	for id, o := range c.others {
		if pos, ok := c.pred.RemotePosition(c.rec.History(), id, c.displayTime); ok {
			o.Pos = pos
		}
	}
}

// Run 单个协作式循环：处理入站事件、本地 Tick 采样发送、定时 ping。
// in 关闭时返回 ErrDisconnected。
func (c *Client) Run(ctx context.Context, in <-chan protocol.Envelope, input InputSource) error {
	tick := time.NewTicker(c.cfg.TickInterval)
	defer tick.Stop()
	ping := time.NewTicker(c.cfg.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-in:
			if !ok {
				c.onDisconnect()
				return ErrDisconnected
			}
			c.HandleEnvelope(env)
		case <-tick.C:
			var cmds []game.Command
			if input != nil {
				cmds = input()
			}
			if err := c.Tick(cmds); err != nil {
				c.log.Warnf("send input: %v", err)
			}
			c.UpdateRemotes()
		case <-ping.C:
			if err := c.Ping(); err != nil {
				c.log.Warnf("send ping: %v", err)
			}
		}
	}
}
