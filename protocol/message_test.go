package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duelsync/game"
)

func TestEncodeTime(t *testing.T) {
	assert.Equal(t, "12-5", EncodeTime(12.5))
	assert.Equal(t, "100", EncodeTime(100))
	assert.Equal(t, "0", EncodeTime(-3))

	got, err := DecodeTime("12-5")
	require.NoError(t, err)
	assert.Equal(t, 12.5, got)

	_, err = DecodeTime("")
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = DecodeTime("abc")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEncodeTime_roundTripKeepsValue(t *testing.T) {
	for _, v := range []float64{0, 0.004, 1.25, 3600.123456789} {
		got, err := DecodeTime(EncodeTime(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestEncode_wireFormat(t *testing.T) {
	cases := []struct {
		msg  Message
		want string
	}{
		{Input{Commands: []game.Command{game.CmdUp, game.CmdLeft}, ClientTime: 1.5, Seq: 7}, "i.u-l.1-5.7"},
		{Ping{SentAt: "100"}, "p.100"},
		{Color{Value: "#ff0000"}, "c.#ff0000"},
		{Hosting{StartTime: 0.25}, "s.h.0-25"},
		{Joined{HostID: "pub-a"}, "s.j.pub-a"},
		{Ended{}, "s.e"},
		{Pong{SentAt: "100"}, "s.p.100"},
		{ColorRelay{Value: "blue"}, "s.c.blue"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Encode(c.msg), c.msg.Kind().String())
	}
}

func TestParse(t *testing.T) {
	t.Run("input", func(t *testing.T) {
		m, err := Parse("i.u-r-r.12-75.3")
		require.NoError(t, err)
		in, ok := m.(Input)
		require.True(t, ok)
		assert.Equal(t, []game.Command{game.CmdUp, game.CmdRight, game.CmdRight}, in.Commands)
		assert.Equal(t, 12.75, in.ClientTime)
		assert.Equal(t, uint32(3), in.Seq)
	})

	t.Run("server messages", func(t *testing.T) {
		m, err := Parse("s.h.3-5")
		require.NoError(t, err)
		assert.Equal(t, Hosting{StartTime: 3.5}, m)

		m, err = Parse("s.j.abc")
		require.NoError(t, err)
		assert.Equal(t, Joined{HostID: "abc"}, m)

		m, err = Parse("s.e")
		require.NoError(t, err)
		assert.Equal(t, Ended{}, m)

		m, err = Parse("s.p.150")
		require.NoError(t, err)
		pong := m.(Pong)
		sent, err := pong.SentTime()
		require.NoError(t, err)
		assert.Equal(t, 150.0, sent)

		m, err = Parse("s.c.red")
		require.NoError(t, err)
		assert.Equal(t, ColorRelay{Value: "red"}, m)
	})

	t.Run("every encoded message parses back", func(t *testing.T) {
		msgs := []Message{
			Input{Commands: []game.Command{game.CmdDown}, ClientTime: 9.125, Seq: 42},
			Ping{SentAt: "1700000000123"},
			Color{Value: "green"},
			Hosting{StartTime: 17.5},
			Joined{HostID: "host"},
			Ended{},
			Pong{SentAt: "1-5"},
			ColorRelay{Value: "green"},
		}
		for _, m := range msgs {
			got, err := Parse(Encode(m))
			require.NoError(t, err, m.Kind().String())
			assert.Equal(t, m, got)
		}
	})

	t.Run("unknown types are reported", func(t *testing.T) {
		for _, raw := range []string{"", "x.1", "s", "s.z.1"} {
			_, err := Parse(raw)
			assert.True(t, errors.Is(err, ErrUnknownMessage), raw)
		}
	})

	t.Run("malformed fields are reported", func(t *testing.T) {
		for _, raw := range []string{"i", "i.u.1", "i..1.1", "i.q.1.1", "i.u.x.1", "i.u.1.0", "i.u.1.-2", "p", "p.", "s.j", "s.p", "s.h.x"} {
			_, err := Parse(raw)
			assert.True(t, errors.Is(err, ErrMalformed), raw)
		}
	})
}
