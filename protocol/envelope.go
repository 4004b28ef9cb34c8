package protocol

import (
	"fmt"

	"duelsync/game"
)

// Version 当前信封版本，解码时不匹配的版本直接丢弃
const Version = 1

// Event 信封承载的事件名
type Event string

const (
	EventMessage      Event = "message"
	EventConnected    Event = "onconnected"
	EventGameReady    Event = "gameready"
	EventServerUpdate Event = "onserverupdate"
)

// Envelope 带版本的事件信封：按 Event 区分，只有对应字段非空
type Envelope struct {
	Ver       int        `json:"v" msgpack:"v"`
	Event     Event      `json:"ev" msgpack:"ev"`
	Message   string     `json:"m,omitempty" msgpack:"m,omitempty"`
	Connected *Connected `json:"connected,omitempty" msgpack:"connected,omitempty"`
	GameReady *GameReady `json:"gameready,omitempty" msgpack:"gameready,omitempty"`
	Snapshot  *Snapshot  `json:"snapshot,omitempty" msgpack:"snapshot,omitempty"`
}

// Connected onconnected：id 仅发给本人，publicid 用于跨客户端标识
type Connected struct {
	ID       string `json:"id" msgpack:"id"`
	PublicID string `json:"publicid" msgpack:"publicid"`
}

// GameReady gameready：其余参与者的 publicid 与服务端权威开始时间（线上时间格式）
type GameReady struct {
	IDs  []string `json:"ids" msgpack:"ids"`
	Time string   `json:"time" msgpack:"time"`
}

// ServerTime 解析开始时间
func (g GameReady) ServerTime() (float64, error) {
	return DecodeTime(g.Time)
}

// PlayerSnapshot 快照中单个玩家的权威状态
type PlayerSnapshot struct {
	Pos          game.Vec `json:"pos" msgpack:"pos"`
	LastInputSeq uint32   `json:"last_input_seq" msgpack:"last_input_seq"`
}

// Snapshot onserverupdate：会话本地时间 + publicid → 玩家状态
type Snapshot struct {
	T       float64                   `json:"t" msgpack:"t"`
	Players map[string]PlayerSnapshot `json:"players" msgpack:"players"`
}

// MessageEnvelope 包装字符串消息
func MessageEnvelope(m Message) Envelope {
	return Envelope{Ver: Version, Event: EventMessage, Message: Encode(m)}
}

func ConnectedEnvelope(id, publicID string) Envelope {
	return Envelope{Ver: Version, Event: EventConnected, Connected: &Connected{ID: id, PublicID: publicID}}
}

func GameReadyEnvelope(ids []string, serverTime float64) Envelope {
	return Envelope{Ver: Version, Event: EventGameReady, GameReady: &GameReady{IDs: ids, Time: EncodeTime(serverTime)}}
}

func SnapshotEnvelope(s Snapshot) Envelope {
	return Envelope{Ver: Version, Event: EventServerUpdate, Snapshot: &s}
}

// Validate 校验版本与事件载荷是否匹配
func (e Envelope) Validate() error {
	if e.Ver != Version {
		return fmt.Errorf("envelope version %d: %w", e.Ver, ErrUnknownMessage)
	}
	switch e.Event {
	case EventMessage:
		if e.Message == "" {
			return fmt.Errorf("empty message: %w", ErrMalformed)
		}
	case EventConnected:
		if e.Connected == nil {
			return fmt.Errorf("onconnected without payload: %w", ErrMalformed)
		}
	case EventGameReady:
		if e.GameReady == nil {
			return fmt.Errorf("gameready without payload: %w", ErrMalformed)
		}
	case EventServerUpdate:
		if e.Snapshot == nil {
			return fmt.Errorf("onserverupdate without payload: %w", ErrMalformed)
		}
	default:
		return fmt.Errorf("event %q: %w", e.Event, ErrUnknownMessage)
	}
	return nil
}
