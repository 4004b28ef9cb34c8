package server

import (
	"sync/atomic"

	"golang.org/x/time/rate"

	"duelsync/protocol"
)

// Conn 会话层看到的连接：发送均为即发即弃，不阻塞调用方
type Conn interface {
	Send(m protocol.Message)
	Emit(e protocol.Envelope)
	Close()
}

// Role 玩家在当前会话中的角色
type Role int

const (
	RoleNone Role = iota
	RoleHost
	RoleGuest
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleGuest:
		return "guest"
	default:
		return "none"
	}
}

// ConnState 连接状态
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateConnected
	StateNotConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "not-connected"
	}
}

// Player 一个连接对应一个玩家。
// ID 用于校验输入归属，绝不广播；PublicID 用于跨客户端标识。
type Player struct {
	ID       string
	PublicID string
	Conn     Conn

	state   atomic.Int32
	session atomic.Pointer[Session]
	limiter *rate.Limiter

	// 以下字段仅在 Registry 锁内读写
	role     Role
	hosting  bool
	requeued bool // 曾在会话结束后被重新送回匹配
}

func newPlayer(id, publicID string, conn Conn, limiter *rate.Limiter) *Player {
	return &Player{ID: id, PublicID: publicID, Conn: conn, limiter: limiter}
}

func (p *Player) State() ConnState        { return ConnState(p.state.Load()) }
func (p *Player) setState(s ConnState)    { p.state.Store(int32(s)) }
func (p *Player) Session() *Session       { return p.session.Load() }
func (p *Player) bind(s *Session)         { p.session.Store(s) }
func (p *Player) connected() bool         { return p.State() == StateConnected }
func (p *Player) allow() bool             { return p.limiter == nil || p.limiter.Allow() }
func (p *Player) send(m protocol.Message) { p.Conn.Send(m) }
