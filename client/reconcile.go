package client

import (
	"duelsync/protocol"
)

// SnapshotBuffer 最近 N 个权威快照的环形缓冲，满时淘汰最旧的
type SnapshotBuffer struct {
	buf   []protocol.Snapshot
	start int
	n     int
}

func NewSnapshotBuffer(capacity int) *SnapshotBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &SnapshotBuffer{buf: make([]protocol.Snapshot, capacity)}
}

// Push 追加快照
func (b *SnapshotBuffer) Push(s protocol.Snapshot) {
	if b.n < len(b.buf) {
		b.buf[(b.start+b.n)%len(b.buf)] = s
		b.n++
		return
	}
	b.buf[b.start] = s
	b.start = (b.start + 1) % len(b.buf)
}

func (b *SnapshotBuffer) Len() int { return b.n }
func (b *SnapshotBuffer) Cap() int { return len(b.buf) }

// At 第 i 个快照，0 为最旧
func (b *SnapshotBuffer) At(i int) protocol.Snapshot {
	return b.buf[(b.start+i)%len(b.buf)]
}

// Latest 最新快照
func (b *SnapshotBuffer) Latest() (protocol.Snapshot, bool) {
	if b.n == 0 {
		return protocol.Snapshot{}, false
	}
	return b.At(b.n - 1), true
}

// Oldest 最旧快照
func (b *SnapshotBuffer) Oldest() (protocol.Snapshot, bool) {
	if b.n == 0 {
		return protocol.Snapshot{}, false
	}
	return b.At(0), true
}

// Reset 清空
func (b *SnapshotBuffer) Reset() {
	b.start, b.n = 0, 0
}

// Correction 一次对账的结果
type Correction struct {
	Applied   bool
	Ack       uint32 // 服务端确认的序列号
	Discarded int
	Replayed  int
}

// ReconciliationEngine 用服务端快照校正本地预测
type ReconciliationEngine struct {
	history *SnapshotBuffer
	lastAck uint32
}

// NewReconciliationEngine 历史窗口为 60 × bufferSize 个快照
func NewReconciliationEngine(bufferSize int) *ReconciliationEngine {
	return &ReconciliationEngine{history: NewSnapshotBuffer(60 * bufferSize)}
}

func (r *ReconciliationEngine) History() *SnapshotBuffer { return r.history }
func (r *ReconciliationEngine) LastAck() uint32          { return r.lastAck }

// Reset 新的一局
func (r *ReconciliationEngine) Reset() {
	r.history.Reset()
	r.lastAck = 0
}

// OnSnapshot 记录快照并只用最新一帧校正：
// 丢弃已确认输入，把本地位置硬校正为服务端位置，再按序重放未确认输入。
// 确认的序列号不在缓冲中时本帧不校正，重复投递的快照因此不会重复丢弃或重放。
func (r *ReconciliationEngine) OnSnapshot(snap protocol.Snapshot, me string, seq *InputSequencer, pred *PredictionEngine) Correction {
	r.history.Push(snap)
	latest, _ := r.history.Latest()
	mine, ok := latest.Players[me]
	if !ok || mine.LastInputSeq == 0 {
		return Correction{}
	}
	n, found := seq.Confirm(mine.LastInputSeq)
	if !found {
		return Correction{Ack: mine.LastInputSeq}
	}
	r.lastAck = mine.LastInputSeq
	pending := seq.Pending()
	pred.Replay(mine.Pos, pending)
	return Correction{Applied: true, Ack: mine.LastInputSeq, Discarded: n, Replayed: len(pending)}
}
