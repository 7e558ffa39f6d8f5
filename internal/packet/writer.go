package packet

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Writer accumulates a payload and frames it on Finish.
// Uses Little-Endian byte order for all multi-byte values.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter creates a new payload writer.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteByte writes a single byte.
func (w *Writer) WriteByte(b byte) {
	w.buf.WriteByte(b)
}

// WriteUint16 writes a uint16 (2 bytes, LE).
func (w *Writer) WriteUint16(val uint16) {
	w.buf.WriteByte(byte(val))
	w.buf.WriteByte(byte(val >> 8))
}

// WriteInt32 writes an int32 (4 bytes, LE).
func (w *Writer) WriteInt32(val int32) {
	w.buf.WriteByte(byte(val))
	w.buf.WriteByte(byte(val >> 8))
	w.buf.WriteByte(byte(val >> 16))
	w.buf.WriteByte(byte(val >> 24))
}

// WriteUint32 writes a uint32 (4 bytes, LE).
func (w *Writer) WriteUint32(val uint32) {
	w.WriteInt32(int32(val))
}

// WriteInt64 writes an int64 (8 bytes, LE).
func (w *Writer) WriteInt64(val int64) {
	w.WriteInt32(int32(val))
	w.WriteInt32(int32(val >> 32))
}

// WriteFloat32 writes a float32 (4 bytes, LE).
func (w *Writer) WriteFloat32(val float32) {
	w.WriteUint32(math.Float32bits(val))
}

// WriteBool writes a bool as a single byte.
func (w *Writer) WriteBool(val bool) {
	if val {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

// WriteString writes a bancho string: 0x00 for empty, otherwise a
// 0x0b tag, uleb128 byte length and UTF-8 bytes.
func (w *Writer) WriteString(s string) {
	if s == "" {
		w.buf.WriteByte(0x00)
		return
	}
	w.buf.WriteByte(0x0b)
	w.writeUleb128(uint64(len(s)))
	w.buf.WriteString(s)
}

func (w *Writer) writeUleb128(v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

// WriteInt32List writes a u16 count followed by the values.
func (w *Writer) WriteInt32List(vals []int32) {
	w.WriteUint16(uint16(len(vals)))
	for _, v := range vals {
		w.WriteInt32(v)
	}
}

// WriteBytes appends raw bytes to the payload.
func (w *Writer) WriteBytes(b []byte) {
	w.buf.Write(b)
}

// Finish frames the accumulated payload under the given packet id:
// u16 id, a zero byte, i32 payload length, payload.
func (w *Writer) Finish(id ID) []byte {
	payload := w.buf.Bytes()
	out := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint16(out[0:2], uint16(id))
	out[2] = 0
	binary.LittleEndian.PutUint32(out[3:7], uint32(len(payload)))
	copy(out[HeaderSize:], payload)
	return out
}
