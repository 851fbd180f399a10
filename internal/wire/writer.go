package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
)

// MaxCount is the largest collection size a 1-byte count prefix can carry.
const MaxCount = math.MaxUint8

// Writer provides methods for writing snapshot data.
// Uses Little-Endian byte order for all multi-byte values.
type Writer struct {
	buf *bytes.Buffer
}

// writerPool reduces allocations by reusing Writers.
// Get() returns a Writer with Reset() called, Put() returns it to pool.
var writerPool = sync.Pool{
	New: func() any {
		return &Writer{
			buf: bytes.NewBuffer(make([]byte, 0, 512)),
		}
	},
}

// Get returns a Writer from the pool (already Reset).
func Get() *Writer {
	w := writerPool.Get().(*Writer)
	w.Reset()
	return w
}

// Put returns a Writer to the pool for reuse.
// IMPORTANT: Do not use the Writer after calling Put.
func (w *Writer) Put() {
	writerPool.Put(w)
}

// NewWriter creates a new writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{
		buf: bytes.NewBuffer(make([]byte, 0, capacity)),
	}
}

// WriteByte writes a single byte.
func (w *Writer) WriteByte(b byte) error {
	return w.buf.WriteByte(b)
}

// WriteBool writes a bool as a single byte (0 or 1).
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf.WriteByte(1)
		return
	}
	w.buf.WriteByte(0)
}

// WriteCount writes a 1-byte collection size.
// Returns error if n does not fit into a byte.
func (w *Writer) WriteCount(n int) error {
	if n < 0 || n > MaxCount {
		return fmt.Errorf("WriteCount: %d out of range [0, %d]", n, MaxCount)
	}
	w.buf.WriteByte(byte(n))
	return nil
}

// WriteInt writes an int32 (4 bytes, LE).
func (w *Writer) WriteInt(val int32) {
	w.buf.WriteByte(byte(val))
	w.buf.WriteByte(byte(val >> 8))
	w.buf.WriteByte(byte(val >> 16))
	w.buf.WriteByte(byte(val >> 24))
}

// WriteFloat writes a float32 (4 bytes, LE, IEEE 754).
// Values are narrowed from float64; stats are stored as float64 in memory.
func (w *Writer) WriteFloat(val float64) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(float32(val)))
	w.buf.Write(tmp[:])
}

// WriteDouble writes a float64 (8 bytes, LE).
// Uses binary.LittleEndian.PutUint64 for correct IEEE 754 encoding.
func (w *Writer) WriteDouble(val float64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(val))
	w.buf.Write(tmp[:])
}

// WriteString writes a length-prefixed UTF-8 string.
// The prefix is the byte length encoded 7 bits at a time, low group first,
// high bit set on every byte except the last.
func (w *Writer) WriteString(s string) {
	n := uint32(len(s))
	for n >= 0x80 {
		w.buf.WriteByte(byte(n) | 0x80)
		n >>= 7
	}
	w.buf.WriteByte(byte(n))
	w.buf.WriteString(s)
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(data []byte) {
	_, _ = w.buf.Write(data)
}

// Bytes returns the accumulated data.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// BytesCopy returns a copy of the accumulated data, safe to keep after Put.
func (w *Writer) BytesCopy() []byte {
	out := make([]byte, w.buf.Len())
	copy(out, w.buf.Bytes())
	return out
}

// Len returns the current length of the buffer.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Reset clears the buffer for reuse.
func (w *Writer) Reset() {
	w.buf.Reset()
}
