package client

import (
	"sort"

	"duelsync/game"
)

// PendingInput 已发送、尚未被服务端确认的输入
type PendingInput struct {
	Seq      uint32
	Commands []game.Command
	Time     float64
}

// InputSequencer 为输入分配严格递增的序列号（每局从 1 开始），并缓存未确认输入供重放。
// 缓冲区按序列号有序，确认时按下标区间整体丢弃。
type InputSequencer struct {
	last    uint32
	pending []PendingInput
	max     int
}

// NewInputSequencer max 为未确认输入的保留上限，超出时丢弃最旧的
func NewInputSequencer(max int) *InputSequencer {
	return &InputSequencer{max: max}
}

// Next 生成下一条输入并加入待确认缓冲
func (q *InputSequencer) Next(cmds []game.Command, t float64) PendingInput {
	q.last++
	in := PendingInput{Seq: q.last, Commands: append([]game.Command(nil), cmds...), Time: t}
	q.pending = append(q.pending, in)
	if q.max > 0 && len(q.pending) > q.max {
		q.pending = append(q.pending[:0], q.pending[len(q.pending)-q.max:]...)
	}
	return in
}

// Pending 未确认输入（按序列号升序），调用方不得修改
func (q *InputSequencer) Pending() []PendingInput {
	return q.pending
}

func (q *InputSequencer) Len() int        { return len(q.pending) }
func (q *InputSequencer) LastSeq() uint32 { return q.last }

// IndexOf 二分查找序列号所在下标，找不到返回 -1
func (q *InputSequencer) IndexOf(seq uint32) int {
	i := sort.Search(len(q.pending), func(i int) bool { return q.pending[i].Seq >= seq })
	if i < len(q.pending) && q.pending[i].Seq == seq {
		return i
	}
	return -1
}

// Confirm 丢弃序列号不大于 seq 的输入（含 seq 本身），返回丢弃条数。
// seq 不在缓冲中（已被淘汰或从未存在）时不做任何改动。
func (q *InputSequencer) Confirm(seq uint32) (int, bool) {
	i := q.IndexOf(seq)
	if i < 0 {
		return 0, false
	}
	n := i + 1
	q.pending = append(q.pending[:0], q.pending[n:]...)
	return n, true
}

// Reset 新的一局：序列号从 1 重新开始，清空缓冲
func (q *InputSequencer) Reset() {
	q.last = 0
	q.pending = q.pending[:0]
}
