package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duelsync/game"
)

func up() []game.Command { return []game.Command{game.CmdUp} }

func TestInputSequencer_Next(t *testing.T) {
	q := NewInputSequencer(0)
	for want := uint32(1); want <= 5; want++ {
		in := q.Next(up(), float64(want))
		assert.Equal(t, want, in.Seq)
	}
	assert.Equal(t, 5, q.Len())
	assert.Equal(t, uint32(5), q.LastSeq())
}

func TestInputSequencer_Next_copiesCommands(t *testing.T) {
	q := NewInputSequencer(0)
	cmds := []game.Command{game.CmdLeft}
	q.Next(cmds, 0)
	cmds[0] = game.CmdRight
	assert.Equal(t, game.CmdLeft, q.Pending()[0].Commands[0])
}

func TestInputSequencer_Next_boundedBuffer(t *testing.T) {
	q := NewInputSequencer(3)
	for i := 0; i < 5; i++ {
		q.Next(up(), 0)
	}
	require.Equal(t, 3, q.Len())
	assert.Equal(t, uint32(3), q.Pending()[0].Seq)
	assert.Equal(t, uint32(5), q.Pending()[2].Seq)
}

func TestInputSequencer_Confirm(t *testing.T) {
	t.Run("first pending entry discards exactly one", func(t *testing.T) {
		q := NewInputSequencer(0)
		for i := 0; i < 4; i++ {
			q.Next(up(), 0)
		}
		n, ok := q.Confirm(1)
		require.True(t, ok)
		assert.Equal(t, 1, n)
		assert.Equal(t, 3, q.Len())
		assert.Equal(t, uint32(2), q.Pending()[0].Seq)
	})

	t.Run("last pending entry empties the buffer", func(t *testing.T) {
		q := NewInputSequencer(0)
		for i := 0; i < 4; i++ {
			q.Next(up(), 0)
		}
		n, ok := q.Confirm(4)
		require.True(t, ok)
		assert.Equal(t, 4, n)
		assert.Equal(t, 0, q.Len())
	})

	t.Run("unknown sequence leaves the buffer alone", func(t *testing.T) {
		q := NewInputSequencer(0)
		q.Next(up(), 0)
		n, ok := q.Confirm(9)
		assert.False(t, ok)
		assert.Equal(t, 0, n)
		assert.Equal(t, 1, q.Len())
	})

	t.Run("sequence numbers keep rising after confirmation", func(t *testing.T) {
		q := NewInputSequencer(0)
		q.Next(up(), 0)
		q.Confirm(1)
		assert.Equal(t, uint32(2), q.Next(up(), 0).Seq)
	})
}

func TestInputSequencer_IndexOf(t *testing.T) {
	q := NewInputSequencer(0)
	for i := 0; i < 6; i++ {
		q.Next(up(), 0)
	}
	q.Confirm(2)
	assert.Equal(t, 0, q.IndexOf(3))
	assert.Equal(t, 3, q.IndexOf(6))
	assert.Equal(t, -1, q.IndexOf(2))
	assert.Equal(t, -1, q.IndexOf(7))
}

func TestInputSequencer_Reset(t *testing.T) {
	q := NewInputSequencer(0)
	q.Next(up(), 0)
	q.Next(up(), 0)
	q.Reset()
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, uint32(1), q.Next(up(), 0).Seq)
}
