package client

import (
	"time"

	"duelsync/protocol"
)

// EstimateLatency 由一次 ping 往返估计单程时延（毫秒）
func EstimateLatency(sentMs, nowMs float64) float64 {
	return (nowMs - sentMs) / 2
}

// TimeBase 客户端时间基准。
// 定期 ping 估计单程时延；收到服务端权威时间时把本地时间对齐为 server_time + latency。
type TimeBase struct {
	now   func() time.Time
	epoch time.Time

	latencyMs float64 // 单程时延估计
	pingMs    float64 // 最近一次往返

	base      float64 // 对齐时刻的本地时间（秒）
	alignedAt time.Time
}

// NewTimeBase now 为 nil 时使用 time.Now
func NewTimeBase(now func() time.Time) *TimeBase {
	if now == nil {
		now = time.Now
	}
	t := now()
	return &TimeBase{now: now, epoch: t, alignedAt: t}
}

// NowMillis 本地单调时钟（毫秒）
func (tb *TimeBase) NowMillis() float64 {
	return float64(tb.now().Sub(tb.epoch)) / float64(time.Millisecond)
}

// PingMessage 携带本地发送时间的 ping
func (tb *TimeBase) PingMessage() protocol.Ping {
	return protocol.Ping{SentAt: protocol.EncodeTime(tb.NowMillis())}
}

// OnPong 用回显的发送时间更新时延估计。
// 丢失的 ping 不重试，旧估计保持到下一次成功往返。
func (tb *TimeBase) OnPong(p protocol.Pong) error {
	sent, err := p.SentTime()
	if err != nil {
		return err
	}
	now := tb.NowMillis()
	if now < sent {
		return nil
	}
	tb.pingMs = now - sent
	tb.latencyMs = EstimateLatency(sent, now)
	return nil
}

// Latency 单程时延估计
func (tb *TimeBase) Latency() time.Duration {
	return time.Duration(tb.latencyMs * float64(time.Millisecond))
}

// Ping 最近一次往返时间
func (tb *TimeBase) Ping() time.Duration {
	return time.Duration(tb.pingMs * float64(time.Millisecond))
}

func (tb *TimeBase) latencySeconds() float64 {
	return tb.latencyMs / 1000
}

// AlignTo 以服务端时间对齐本地时间
func (tb *TimeBase) AlignTo(serverTime float64) {
	tb.base = serverTime + tb.latencySeconds()
	tb.alignedAt = tb.now()
}

// LocalTime 对齐后的本地时间（秒）
func (tb *TimeBase) LocalTime() float64 {
	return tb.base + tb.now().Sub(tb.alignedAt).Seconds()
}

// DisplayTime 远端玩家的渲染时间：服务端时间减去单程时延
func (tb *TimeBase) DisplayTime(serverTime float64) float64 {
	return serverTime - tb.latencySeconds()
}
