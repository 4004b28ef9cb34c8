package server

import (
	"fmt"
	"time"

	"duelsync/game"
	"duelsync/protocol"
)

// SessionCapacity 每局参与者上限（房主 + 1 名客人）
const SessionCapacity = 2

// Config 服务端运行参数，由 main 中的 flag 填充
type Config struct {
	Addr     string
	LogFile  string // 为空时输出到 stderr
	LogLevel string

	TickRate   int // 每秒 Tick 次数
	World      game.World
	Codec      string // json | msgpack
	InputQueue int    // 每局输入通道容量

	MessagesPerSecond float64 // 单连接入站消息速率
	MessageBurst      int
	ConnectsPerMinute int // 单 IP 每分钟建连次数

	TombstoneTTL time.Duration // 已结束会话 id 的保留时长
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Addr:              ":4004",
		LogLevel:          "debug",
		TickRate:          20,
		World:             game.DefaultWorld(),
		Codec:             "json",
		InputQueue:        256,
		MessagesPerSecond: 120,
		MessageBurst:      60,
		ConnectsPerMinute: 30,
		TombstoneTTL:      time.Minute,
	}
}

// TickInterval 由 TickRate 推导的 Tick 间隔
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// Validate 校验配置
func (c Config) Validate() error {
	if c.TickRate <= 0 || c.TickRate > 1000 {
		return fmt.Errorf("tick rate must be in (0, 1000], got %d", c.TickRate)
	}
	if c.World.Width <= 0 || c.World.Height <= 0 || c.World.Step <= 0 {
		return fmt.Errorf("world bounds and step must be positive: %+v", c.World)
	}
	if _, err := protocol.CodecByName(c.Codec); err != nil {
		return err
	}
	if c.InputQueue <= 0 {
		return fmt.Errorf("input queue must be positive, got %d", c.InputQueue)
	}
	if c.MessagesPerSecond <= 0 || c.MessageBurst <= 0 {
		return fmt.Errorf("message rate and burst must be positive")
	}
	if c.ConnectsPerMinute <= 0 {
		return fmt.Errorf("connects per minute must be positive, got %d", c.ConnectsPerMinute)
	}
	if c.TombstoneTTL <= 0 {
		return fmt.Errorf("tombstone ttl must be positive")
	}
	return nil
}
