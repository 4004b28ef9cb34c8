package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duelsync/game"
	"duelsync/protocol"
)

func historyOf(id string, frames ...[3]float64) *SnapshotBuffer {
	b := NewSnapshotBuffer(16)
	for _, f := range frames {
		b.Push(protocol.Snapshot{T: f[0], Players: map[string]protocol.PlayerSnapshot{
			id: {Pos: game.Vec{X: f[1], Y: f[2]}},
		}})
	}
	return b
}

func TestPredictionEngine_ApplyAndReplay(t *testing.T) {
	p := NewPredictionEngine(testWorld)
	p.SetPosition(game.Vec{X: 10, Y: 10})
	assert.Equal(t, game.Vec{X: 11, Y: 10}, p.Apply([]game.Command{game.CmdRight}))

	got := p.Replay(game.Vec{X: 0, Y: 0}, []PendingInput{
		{Seq: 1, Commands: []game.Command{game.CmdDown}},
		{Seq: 2, Commands: []game.Command{game.CmdRight, game.CmdRight}},
	})
	assert.Equal(t, game.Vec{X: 2, Y: 1}, got)
	assert.Equal(t, got, p.Position())
}

func TestPredictionEngine_RemotePosition(t *testing.T) {
	p := NewPredictionEngine(testWorld)
	h := historyOf("b", [3]float64{1, 0, 0}, [3]float64{2, 10, 20}, [3]float64{3, 20, 20})

	t.Run("interpolates between bracketing snapshots", func(t *testing.T) {
		pos, ok := p.RemotePosition(h, "b", 1.5)
		require.True(t, ok)
		assert.Equal(t, game.Vec{X: 5, Y: 10}, pos)
	})

	t.Run("exact snapshot time", func(t *testing.T) {
		pos, _ := p.RemotePosition(h, "b", 2)
		assert.Equal(t, game.Vec{X: 10, Y: 20}, pos)
	})

	t.Run("before history uses oldest", func(t *testing.T) {
		pos, _ := p.RemotePosition(h, "b", 0)
		assert.Equal(t, game.Vec{X: 0, Y: 0}, pos)
	})

	t.Run("after history extrapolates with a cap", func(t *testing.T) {
		pos, _ := p.RemotePosition(h, "b", 3.1)
		assert.InDelta(t, 21, pos.X, 1e-9)
		assert.InDelta(t, 20, pos.Y, 1e-9)

		pos, _ = p.RemotePosition(h, "b", 10)
		assert.InDelta(t, 20+10*maxExtrapolation, pos.X, 1e-9)
	})

	t.Run("unknown player", func(t *testing.T) {
		_, ok := p.RemotePosition(h, "nobody", 2)
		assert.False(t, ok)
	})

	t.Run("single snapshot holds position", func(t *testing.T) {
		pos, ok := p.RemotePosition(historyOf("c", [3]float64{1, 7, 8}), "c", 5)
		require.True(t, ok)
		assert.Equal(t, game.Vec{X: 7, Y: 8}, pos)
	})
}
