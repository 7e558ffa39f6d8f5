package testutil

import (
	"encoding/binary"
	"testing"
)

// Frame is one decoded bancho frame.
type Frame struct {
	ID      uint16
	Payload []byte
}

// ParseFrames splits a raw outgoing buffer into frames, failing the
// test on a malformed header or truncated payload.
func ParseFrames(tb testing.TB, b []byte) []Frame {
	tb.Helper()
	var frames []Frame
	for len(b) > 0 {
		if len(b) < 7 {
			tb.Fatalf("truncated frame header: %d bytes left", len(b))
		}
		id := binary.LittleEndian.Uint16(b[0:2])
		size := int(int32(binary.LittleEndian.Uint32(b[3:7])))
		if size < 0 || len(b) < 7+size {
			tb.Fatalf("frame %d claims %d payload bytes, %d left", id, size, len(b)-7)
		}
		frames = append(frames, Frame{ID: id, Payload: b[7 : 7+size]})
		b = b[7+size:]
	}
	return frames
}

// FrameIDs lists the packet ids of a buffer in order.
func FrameIDs(tb testing.TB, b []byte) []uint16 {
	tb.Helper()
	frames := ParseFrames(tb, b)
	ids := make([]uint16, len(frames))
	for i, f := range frames {
		ids[i] = f.ID
	}
	return ids
}
