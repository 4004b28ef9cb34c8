package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duelsync/game"
	"duelsync/protocol"
)

var testWorld = game.World{Width: 100, Height: 100, Step: 1}

func TestSnapshotBuffer(t *testing.T) {
	b := NewSnapshotBuffer(3)
	_, ok := b.Latest()
	assert.False(t, ok)

	for i := 1; i <= 5; i++ {
		b.Push(protocol.Snapshot{T: float64(i)})
	}
	assert.Equal(t, 3, b.Len())
	oldest, _ := b.Oldest()
	latest, _ := b.Latest()
	assert.Equal(t, 3.0, oldest.T)
	assert.Equal(t, 5.0, latest.T)
	assert.Equal(t, 4.0, b.At(1).T)

	b.Reset()
	assert.Equal(t, 0, b.Len())
}

func TestNewReconciliationEngine_window(t *testing.T) {
	r := NewReconciliationEngine(2)
	assert.Equal(t, 120, r.History().Cap())
}

// fixture 本地玩家从 (50,50) 出发，发送 seq 1..5 的输入：r r u u l
func fixture() (*InputSequencer, *PredictionEngine) {
	q := NewInputSequencer(0)
	p := NewPredictionEngine(testWorld)
	p.SetPosition(game.Vec{X: 50, Y: 50})
	for _, c := range []game.Command{game.CmdRight, game.CmdRight, game.CmdUp, game.CmdUp, game.CmdLeft} {
		in := q.Next([]game.Command{c}, 0)
		p.Apply(in.Commands)
	}
	return q, p
}

func snapshotFor(me string, pos game.Vec, seq uint32) protocol.Snapshot {
	return protocol.Snapshot{T: 1, Players: map[string]protocol.PlayerSnapshot{
		me: {Pos: pos, LastInputSeq: seq},
	}}
}

func TestReconciliationEngine_discardsConfirmedAndReplays(t *testing.T) {
	q, p := fixture()
	r := NewReconciliationEngine(1)
	require.Equal(t, game.Vec{X: 51, Y: 48}, p.Position())

	// 服务端已处理到 seq 3，但权威位置与本地预测有偏差
	corr := r.OnSnapshot(snapshotFor("me", game.Vec{X: 60, Y: 40}, 3), "me", q, p)

	assert.True(t, corr.Applied)
	assert.Equal(t, uint32(3), corr.Ack)
	assert.Equal(t, 3, corr.Discarded)
	assert.Equal(t, 2, corr.Replayed)
	require.Equal(t, 2, q.Len())
	assert.Equal(t, uint32(4), q.Pending()[0].Seq)
	assert.Equal(t, uint32(5), q.Pending()[1].Seq)
	// 60,40 + u + l
	assert.Equal(t, game.Vec{X: 59, Y: 39}, p.Position())
	assert.Equal(t, uint32(3), r.LastAck())
}

func TestReconciliationEngine_firstPendingDiscardsOne(t *testing.T) {
	q, p := fixture()
	r := NewReconciliationEngine(1)

	corr := r.OnSnapshot(snapshotFor("me", game.Vec{X: 51, Y: 50}, 1), "me", q, p)

	assert.Equal(t, 1, corr.Discarded)
	assert.Equal(t, 4, q.Len())
	assert.Equal(t, game.Vec{X: 51, Y: 48}, p.Position(), "agreeing server state changes nothing")
}

func TestReconciliationEngine_redeliveryIsIdempotent(t *testing.T) {
	q, p := fixture()
	r := NewReconciliationEngine(1)
	snap := snapshotFor("me", game.Vec{X: 60, Y: 40}, 3)

	r.OnSnapshot(snap, "me", q, p)
	before := p.Position()
	pending := q.Len()

	corr := r.OnSnapshot(snap, "me", q, p)

	assert.False(t, corr.Applied)
	assert.Equal(t, pending, q.Len())
	assert.Equal(t, before, p.Position())
}

func TestReconciliationEngine_noCorrection(t *testing.T) {
	cases := map[string]protocol.Snapshot{
		"sequence not in buffer": snapshotFor("me", game.Vec{X: 1, Y: 1}, 42),
		"zero sequence":          snapshotFor("me", game.Vec{X: 1, Y: 1}, 0),
		"player missing":         snapshotFor("someone-else", game.Vec{X: 1, Y: 1}, 3),
	}
	for name, snap := range cases {
		t.Run(name, func(t *testing.T) {
			q, p := fixture()
			r := NewReconciliationEngine(1)
			corr := r.OnSnapshot(snap, "me", q, p)
			assert.False(t, corr.Applied)
			assert.Equal(t, 5, q.Len())
			assert.Equal(t, game.Vec{X: 51, Y: 48}, p.Position())
			assert.Equal(t, 1, r.History().Len(), "snapshot is still recorded")
		})
	}
}

func TestReconciliationEngine_convergesWithServerRule(t *testing.T) {
	// 服务端以同一移动规则处理全部输入后，预测位置必须与权威位置完全一致
	q, p := fixture()
	r := NewReconciliationEngine(1)

	server := game.Vec{X: 50, Y: 50}
	for _, in := range q.Pending() {
		server = testWorld.Move(server, in.Commands)
	}
	r.OnSnapshot(snapshotFor("me", server, 5), "me", q, p)

	assert.Equal(t, server, p.Position())
	assert.Equal(t, 0, q.Len())
}
