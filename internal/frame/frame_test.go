package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	body := []byte(`{"hello":"world"}`)
	wire, err := Encode(7, 3066, body)
	require.NoError(t, err)

	r := NewReframer()
	frames := r.Feed(wire)
	require.Len(t, frames, 1)
	assert.Equal(t, uint16(7), frames[0].Sequence)
	assert.Equal(t, uint16(3066), frames[0].MessageType)
	assert.Equal(t, body, frames[0].Body)
}

func TestEncodeRejectsOversizeBody(t *testing.T) {
	_, err := Encode(1, 1, make([]byte, MaxBodyLength+1))
	assert.Error(t, err)
}

func TestBoundaryBodyLengths(t *testing.T) {
	for _, n := range []int{0, MinBodyLength, MaxBodyLength} {
		wire, err := Encode(1, 5, make([]byte, n))
		require.NoError(t, err)

		r := NewReframer()
		frames := r.Feed(wire)
		require.Len(t, frames, 1)
		assert.Len(t, frames[0].Body, n)
	}
}

// TestResyncAfterGarbagePrefix exercises scenario 3 from the spec: a leading
// garbage prefix followed by one valid frame must still decode cleanly.
func TestResyncAfterGarbagePrefix(t *testing.T) {
	stream := []byte{0xFF, 0xFF, Sync, Version, 0x00, 0x01, 0x00, 0x00, 0x00, 0x02, 0x00, 0x05, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, '{', '}'}

	r := NewReframer()
	frames := r.Feed(stream)
	require.Len(t, frames, 1)
	assert.Equal(t, uint16(5), frames[0].MessageType)
	assert.Equal(t, []byte("{}"), frames[0].Body)
}

// TestTwoInterleavedFrames exercises the framer-resilience law: for any
// byte-stream obtained by interleaving two frames with a leading garbage
// prefix, the framer emits exactly those two frames in order.
func TestTwoInterleavedFrames(t *testing.T) {
	f1, err := Encode(1, 10, []byte(`{"a":1}`))
	require.NoError(t, err)
	f2, err := Encode(2, 20, []byte(`{"b":2}`))
	require.NoError(t, err)

	stream := append([]byte{0x00, 0xAB, 0xCD}, f1...)
	stream = append(stream, f2...)

	r := NewReframer()
	frames := r.Feed(stream)
	require.Len(t, frames, 2)
	assert.Equal(t, uint16(10), frames[0].MessageType)
	assert.Equal(t, uint16(20), frames[1].MessageType)
}

// TestOversizedBodyLengthTriggersResync matches the spec's failure
// mode for an out-of-range body-length: discard one byte and keep scanning,
// rather than treating the whole buffer as unrecoverable.
func TestOversizedBodyLengthTriggersResync(t *testing.T) {
	bad := make([]byte, HeaderSize)
	bad[0] = Sync
	bad[1] = Version
	// body length field set to an out-of-range value.
	bad[4], bad[5], bad[6], bad[7] = 0xFF, 0xFF, 0xFF, 0xFF

	good, err := Encode(1, 9, []byte(`{}`))
	require.NoError(t, err)

	r := NewReframer()
	frames := r.Feed(append(bad, good...))
	require.Len(t, frames, 1)
	assert.Equal(t, uint16(9), frames[0].MessageType)
}

// TestByteAtATimeFeed confirms a frame arriving one byte per Feed call still
// decodes correctly once the full frame has accumulated.
func TestByteAtATimeFeed(t *testing.T) {
	wire, err := Encode(3, 4009, []byte(`{"ok":true}`))
	require.NoError(t, err)

	r := NewReframer()
	var got []Frame
	for _, b := range wire {
		got = append(got, r.Feed([]byte{b})...)
	}
	require.Len(t, got, 1)
	assert.Equal(t, uint16(4009), got[0].MessageType)
}

// TestDoubleSyncByteDoesNotDeadlock: 0x5A 0x5A ... where only the second
// sync byte starts a valid frame must not hang the framer.
func TestDoubleSyncByteDoesNotDeadlock(t *testing.T) {
	good, err := Encode(1, 2, []byte(`{}`))
	require.NoError(t, err)

	stream := append([]byte{Sync}, good...)

	r := NewReframer()
	frames := r.Feed(stream)
	require.Len(t, frames, 1)
	assert.Equal(t, uint16(2), frames[0].MessageType)
}

func TestFeedWaitsForMoreBytes(t *testing.T) {
	wire, err := Encode(1, 1, []byte(`{"x":1}`))
	require.NoError(t, err)

	r := NewReframer()
	frames := r.Feed(wire[:HeaderSize+2])
	assert.Empty(t, frames)

	frames = r.Feed(wire[HeaderSize+2:])
	require.Len(t, frames, 1)
}
