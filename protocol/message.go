// Package protocol 定义客户端与服务端之间的线上格式。
//
// 字符串消息沿用以 '.' 分隔的紧凑格式（节省带宽），但只在传输边界解码一次，
// 内部全部以带类型的 Message 变体流转。结构化事件由 Envelope 承载。
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"duelsync/game"
)

var (
	// ErrMalformed 消息字段缺失或无法解析
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownMessage 未知的消息类型或子类型
	ErrUnknownMessage = errors.New("unknown message")
)

const (
	fieldSep   = "."
	commandSep = "-"
)

// Kind 消息种类
type Kind uint8

const (
	KindInput Kind = iota + 1
	KindPing
	KindColor
	KindHosting
	KindJoined
	KindEnded
	KindPong
	KindColorRelay
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindPing:
		return "ping"
	case KindColor:
		return "color"
	case KindHosting:
		return "hosting"
	case KindJoined:
		return "joined"
	case KindEnded:
		return "ended"
	case KindPong:
		return "pong"
	case KindColorRelay:
		return "color_relay"
	default:
		return "unknown"
	}
}

// Message 字符串协议中的一条消息（封闭的联合类型）
type Message interface {
	Kind() Kind
	encode() string
}

// Input 客户端 → 服务端：i.<cmd>-<cmd>.<clientTime>.<seq>
type Input struct {
	Commands   []game.Command
	ClientTime float64
	Seq        uint32
}

// Ping 客户端 → 服务端：p.<sendTime>；SentAt 原样回显，不在服务端解析
type Ping struct {
	SentAt string
}

// Color 客户端 → 服务端：c.<value>
type Color struct {
	Value string
}

// Hosting 服务端 → 客户端：s.h.<hostStartTime>
type Hosting struct {
	StartTime float64
}

// Joined 服务端 → 客户端：s.j.<hostPublicId>
type Joined struct {
	HostID string
}

// Ended 服务端 → 客户端：s.e
type Ended struct{}

// Pong 服务端 → 客户端：s.p.<echoedSendTime>
type Pong struct {
	SentAt string
}

// ColorRelay 服务端 → 客户端：s.c.<value>
type ColorRelay struct {
	Value string
}

func (Input) Kind() Kind      { return KindInput }
func (Ping) Kind() Kind       { return KindPing }
func (Color) Kind() Kind      { return KindColor }
func (Hosting) Kind() Kind    { return KindHosting }
func (Joined) Kind() Kind     { return KindJoined }
func (Ended) Kind() Kind      { return KindEnded }
func (Pong) Kind() Kind       { return KindPong }
func (ColorRelay) Kind() Kind { return KindColorRelay }

func (m Input) encode() string {
	toks := make([]string, 0, len(m.Commands))
	for _, c := range m.Commands {
		toks = append(toks, c.String())
	}
	return "i" + fieldSep + strings.Join(toks, commandSep) + fieldSep + EncodeTime(m.ClientTime) +
		fieldSep + strconv.FormatUint(uint64(m.Seq), 10)
}

func (m Ping) encode() string       { return "p" + fieldSep + m.SentAt }
func (m Color) encode() string      { return "c" + fieldSep + m.Value }
func (m Hosting) encode() string    { return "s.h" + fieldSep + EncodeTime(m.StartTime) }
func (m Joined) encode() string     { return "s.j" + fieldSep + m.HostID }
func (Ended) encode() string        { return "s.e" }
func (m Pong) encode() string       { return "s.p" + fieldSep + m.SentAt }
func (m ColorRelay) encode() string { return "s.c" + fieldSep + m.Value }

// Encode 将消息编码为线上字符串
func Encode(m Message) string {
	return m.encode()
}

// SentTime 解析回显的发送时间
func (m Pong) SentTime() (float64, error) {
	return DecodeTime(m.SentAt)
}

// Parse 解码一条字符串消息。未知类型返回 ErrUnknownMessage，字段错误返回 ErrMalformed。
func Parse(raw string) (Message, error) {
	parts := strings.Split(raw, fieldSep)
	switch parts[0] {
	case "i":
		return parseInput(parts)
	case "p":
		if len(parts) < 2 || parts[1] == "" {
			return nil, fmt.Errorf("ping without send time: %w", ErrMalformed)
		}
		return Ping{SentAt: parts[1]}, nil
	case "c":
		if len(parts) < 2 {
			return nil, fmt.Errorf("color without value: %w", ErrMalformed)
		}
		return Color{Value: parts[1]}, nil
	case "s":
		return parseServer(parts)
	default:
		return nil, fmt.Errorf("type %q: %w", parts[0], ErrUnknownMessage)
	}
}

func parseInput(parts []string) (Message, error) {
	if len(parts) < 4 || parts[1] == "" {
		return nil, fmt.Errorf("input needs commands, time and seq: %w", ErrMalformed)
	}
	toks := strings.Split(parts[1], commandSep)
	cmds := make([]game.Command, 0, len(toks))
	for _, tok := range toks {
		c, ok := game.ParseCommand(tok)
		if !ok {
			return nil, fmt.Errorf("input command %q: %w", tok, ErrMalformed)
		}
		cmds = append(cmds, c)
	}
	t, err := DecodeTime(parts[2])
	if err != nil {
		return nil, err
	}
	seq, err := strconv.ParseUint(parts[3], 10, 32)
	if err != nil || seq == 0 {
		return nil, fmt.Errorf("input seq %q: %w", parts[3], ErrMalformed)
	}
	return Input{Commands: cmds, ClientTime: t, Seq: uint32(seq)}, nil
}

func parseServer(parts []string) (Message, error) {
	if len(parts) < 2 {
		return nil, fmt.Errorf("server message without subtype: %w", ErrUnknownMessage)
	}
	arg := ""
	if len(parts) > 2 {
		arg = parts[2]
	}
	switch parts[1] {
	case "h":
		t, err := DecodeTime(arg)
		if err != nil {
			return nil, err
		}
		return Hosting{StartTime: t}, nil
	case "j":
		if arg == "" {
			return nil, fmt.Errorf("join without host id: %w", ErrMalformed)
		}
		return Joined{HostID: arg}, nil
	case "e":
		return Ended{}, nil
	case "p":
		if arg == "" {
			return nil, fmt.Errorf("pong without send time: %w", ErrMalformed)
		}
		return Pong{SentAt: arg}, nil
	case "c":
		return ColorRelay{Value: arg}, nil
	default:
		return nil, fmt.Errorf("server subtype %q: %w", parts[1], ErrUnknownMessage)
	}
}
