package protocol

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duelsync/game"
)

func sampleEnvelopes() []Envelope {
	return []Envelope{
		MessageEnvelope(Hosting{StartTime: 1.5}),
		ConnectedEnvelope("internal", "public"),
		GameReadyEnvelope([]string{"pub-b"}, 4.25),
		SnapshotEnvelope(Snapshot{T: 8.5, Players: map[string]PlayerSnapshot{
			"pub-a": {Pos: game.Vec{X: 1, Y: 2}, LastInputSeq: 3},
			"pub-b": {Pos: game.Vec{X: 4, Y: 5}},
		}}),
	}
}

func TestCodecs_encodeAndDecodeFrames(t *testing.T) {
	for _, name := range []string{"json", "msgpack"} {
		t.Run(name, func(t *testing.T) {
			c, err := CodecByName(name)
			require.NoError(t, err)
			for _, env := range sampleEnvelopes() {
				data, err := c.Marshal(env)
				require.NoError(t, err)
				got, err := DecodeFrame(c.FrameType(), data)
				require.NoError(t, err)
				assert.Equal(t, env, got)
			}
		})
	}
}

func TestCodecByName_unknown(t *testing.T) {
	_, err := CodecByName("xml")
	assert.Error(t, err)
}

func TestDecodeFrame_rejects(t *testing.T) {
	t.Run("garbage", func(t *testing.T) {
		_, err := DecodeFrame(websocket.TextMessage, []byte("{"))
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("wrong version", func(t *testing.T) {
		_, err := DecodeFrame(websocket.TextMessage, []byte(`{"v":9,"ev":"message","m":"s.e"}`))
		assert.ErrorIs(t, err, ErrUnknownMessage)
	})

	t.Run("missing payload", func(t *testing.T) {
		_, err := DecodeFrame(websocket.TextMessage, []byte(`{"v":1,"ev":"gameready"}`))
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("unknown event", func(t *testing.T) {
		_, err := DecodeFrame(websocket.TextMessage, []byte(`{"v":1,"ev":"nope"}`))
		assert.ErrorIs(t, err, ErrUnknownMessage)
	})

	t.Run("unsupported frame type", func(t *testing.T) {
		_, err := DecodeFrame(websocket.PingMessage, nil)
		assert.ErrorIs(t, err, ErrUnknownMessage)
	})
}

func TestGameReady_ServerTime(t *testing.T) {
	env := GameReadyEnvelope([]string{"x"}, 2.75)
	assert.Equal(t, "2-75", env.GameReady.Time)
	got, err := env.GameReady.ServerTime()
	require.NoError(t, err)
	assert.Equal(t, 2.75, got)
}
