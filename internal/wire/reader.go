package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrShortBuffer is returned when input ends before a value is complete.
var ErrShortBuffer = errors.New("wire: short buffer")

// maxStringLen bounds a decoded string prefix to reject corrupt input
// before allocating.
const maxStringLen = 1 << 20

// Reader provides methods for reading snapshot data.
// Uses Little-Endian byte order for all multi-byte values.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a new reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{
		data: data,
		pos:  0,
	}
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("ReadByte: %w (pos=%d, len=%d)", ErrShortBuffer, r.pos, len(r.data))
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadBool reads a single byte, any non-zero value is true.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// ReadCount reads a 1-byte collection size.
func (r *Reader) ReadCount() (int, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	return int(b), nil
}

// ReadInt reads an int32 (4 bytes, LE).
func (r *Reader) ReadInt() (int32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("ReadInt: %w (pos=%d, len=%d)", ErrShortBuffer, r.pos, len(r.data))
	}
	val := int32(binary.LittleEndian.Uint32(r.data[r.pos:]))
	r.pos += 4
	return val, nil
}

// ReadFloat reads a float32 (4 bytes, LE) widened to float64.
func (r *Reader) ReadFloat() (float64, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("ReadFloat: %w (pos=%d, len=%d)", ErrShortBuffer, r.pos, len(r.data))
	}
	bits := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return float64(math.Float32frombits(bits)), nil
}

// ReadDouble reads a float64 (8 bytes, LE).
func (r *Reader) ReadDouble() (float64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("ReadDouble: %w (pos=%d, len=%d)", ErrShortBuffer, r.pos, len(r.data))
	}
	bits := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return math.Float64frombits(bits), nil
}

// ReadString reads a length-prefixed UTF-8 string (see Writer.WriteString).
func (r *Reader) ReadString() (string, error) {
	var n uint32
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", fmt.Errorf("ReadString prefix: %w", err)
		}
		n |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 28 {
			return "", fmt.Errorf("ReadString: malformed length prefix at pos=%d", r.pos)
		}
	}
	if n > maxStringLen {
		return "", fmt.Errorf("ReadString: length %d exceeds limit", n)
	}
	if r.pos+int(n) > len(r.data) {
		return "", fmt.Errorf("ReadString: %w (pos=%d, need=%d, len=%d)", ErrShortBuffer, r.pos, n, len(r.data))
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

// ReadBytes reads n bytes (ZERO-COPY — returns subslice of internal data).
// IMPORTANT: Returned slice shares underlying array with Reader.data.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("ReadBytes: negative count %d", n)
	}
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("ReadBytes: %w (pos=%d, need=%d, len=%d)", ErrShortBuffer, r.pos, n, len(r.data))
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Position returns the current read position.
func (r *Reader) Position() int {
	return r.pos
}
