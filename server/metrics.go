package server

import (
	"sync/atomic"
)

// Metrics 记录服务运行期的关键指标（用于监控与调试）
type Metrics struct {
	TickCount         int64 // 所有会话累计 Tick 次数
	TotalTickNs       int64 // Tick 累计耗时（纳秒）
	InputsAccepted    int64 // 被应用的输入数
	InputsRejected    int64 // 不属于任何存活会话或非本会话成员的输入数
	OldSeqIgnored     int64 // 因旧序列被忽略的输入数
	ChanFullDiscarded int64 // 因通道满被丢弃的输入数
	SnapshotsSent     int64 // 推送给客户端的快照数
	Malformed         int64 // 无法解析或无法路由的消息数
	RateLimited       int64 // 因速率限制被丢弃的消息数
	SessionsCreated   int64
	SessionsEnded     int64
}

func (m *Metrics) IncAccepted()          { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *Metrics) IncRejected()          { atomic.AddInt64(&m.InputsRejected, 1) }
func (m *Metrics) IncOldSeqIgnored()     { atomic.AddInt64(&m.OldSeqIgnored, 1) }
func (m *Metrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *Metrics) AddSnapshots(n int)    { atomic.AddInt64(&m.SnapshotsSent, int64(n)) }
func (m *Metrics) IncMalformed()         { atomic.AddInt64(&m.Malformed, 1) }
func (m *Metrics) IncRateLimited()       { atomic.AddInt64(&m.RateLimited, 1) }
func (m *Metrics) IncSessionsCreated()   { atomic.AddInt64(&m.SessionsCreated, 1) }
func (m *Metrics) IncSessionsEnded()     { atomic.AddInt64(&m.SessionsEnded, 1) }
func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"avg_tick_ms":         avgMs,
		"inputs_accepted":     atomic.LoadInt64(&m.InputsAccepted),
		"inputs_rejected":     atomic.LoadInt64(&m.InputsRejected),
		"old_seq_ignored":     atomic.LoadInt64(&m.OldSeqIgnored),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"snapshots_sent":      atomic.LoadInt64(&m.SnapshotsSent),
		"malformed":           atomic.LoadInt64(&m.Malformed),
		"rate_limited":        atomic.LoadInt64(&m.RateLimited),
		"sessions_created":    atomic.LoadInt64(&m.SessionsCreated),
		"sessions_ended":      atomic.LoadInt64(&m.SessionsEnded),
	}
}
