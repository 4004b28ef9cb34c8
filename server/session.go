package server

import "time"

// SessionState 会话生命周期
type SessionState int

const (
	SessionWaiting SessionState = iota
	SessionActive
	SessionEnded
)

func (s SessionState) String() string {
	switch s {
	case SessionWaiting:
		return "waiting"
	case SessionActive:
		return "active"
	default:
		return "ended"
	}
}

// Session 一局对战：房主 + 客人列表 + 权威模拟。
// 归 Registry 独占，除 ID 与 sim 外的字段只在 Registry 锁内读写。
type Session struct {
	ID        string
	CreatedAt time.Time

	host   *Player
	guests []*Player
	state  SessionState
	sim    *Simulator
}

// PlayerCount 参与者数量（房主 + 客人）
func (s *Session) PlayerCount() int {
	if s.host == nil {
		return len(s.guests)
	}
	return 1 + len(s.guests)
}

// members 房主在前，客人按加入顺序
func (s *Session) members() []*Player {
	out := make([]*Player, 0, s.PlayerCount())
	if s.host != nil {
		out = append(out, s.host)
	}
	return append(out, s.guests...)
}

// Simulator 本局的权威模拟器
func (s *Session) Simulator() *Simulator {
	return s.sim
}

// SessionInfo 会话的只读视图，供管理接口输出
type SessionInfo struct {
	ID          string    `json:"id"`
	State       string    `json:"state"`
	PlayerCount int       `json:"playerCount"`
	Host        string    `json:"host"` // publicid
	LocalTime   float64   `json:"localTime"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Session) info() SessionInfo {
	si := SessionInfo{
		ID:          s.ID,
		State:       s.state.String(),
		PlayerCount: s.PlayerCount(),
		LocalTime:   s.sim.LocalTime(),
		CreatedAt:   s.CreatedAt,
	}
	if s.host != nil {
		si.Host = s.host.PublicID
	}
	return si
}
