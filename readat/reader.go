package readat

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

var ErrOutOfBounds = errors.New("read out of bounds")

// Reader reads primitives at absolute offsets of an immutable buffer.
// Every read is checked against the buffer length.
type Reader struct {
	data  []byte
	order binary.ByteOrder
}

func NewReader(data []byte, order binary.ByteOrder) *Reader {
	if order == nil {
		order = binary.BigEndian
	}
	return &Reader{
		data:  data,
		order: order,
	}
}

func (r *Reader) Len() uint32             { return uint32(len(r.data)) }
func (r *Reader) Order() binary.ByteOrder { return r.order }
func (r *Reader) Bytes() []byte           { return r.data }
func (r *Reader) LittleEndian() bool      { return r.order == binary.LittleEndian }

// Check returns ErrOutOfBounds when [off, off+size) is not inside the buffer.
func (r *Reader) Check(off, size uint32) error {
	end := uint64(off) + uint64(size)
	if end > uint64(len(r.data)) {
		return errors.Wrapf(ErrOutOfBounds, "0x%x+0x%x exceeds buffer size 0x%x", off, size, len(r.data))
	}
	return nil
}

func (r *Reader) Has(off, size uint32) bool {
	return r.Check(off, size) == nil
}

func (r *Reader) Slice(off, size uint32) ([]byte, error) {
	if err := r.Check(off, size); err != nil {
		return nil, err
	}
	return r.data[off : off+size], nil
}

func (r *Reader) U8(off uint32) (uint8, error) {
	if err := r.Check(off, 1); err != nil {
		return 0, err
	}
	return r.data[off], nil
}

func (r *Reader) U16(off uint32) (uint16, error) {
	if err := r.Check(off, 2); err != nil {
		return 0, err
	}
	return r.order.Uint16(r.data[off:]), nil
}

func (r *Reader) I16(off uint32) (int16, error) {
	v, err := r.U16(off)
	return int16(v), err
}

func (r *Reader) U32(off uint32) (uint32, error) {
	if err := r.Check(off, 4); err != nil {
		return 0, err
	}
	return r.order.Uint32(r.data[off:]), nil
}

// U32BE reads a big endian word regardless of the reader order. Chunk tags are stored this way.
func (r *Reader) U32BE(off uint32) (uint32, error) {
	if err := r.Check(off, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(r.data[off:]), nil
}

func (r *Reader) F32(off uint32) (float32, error) {
	v, err := r.U32(off)
	return math.Float32frombits(v), err
}

// FixedString returns up to n bytes at off, cut at the first NUL.
func (r *Reader) FixedString(off, n uint32) ([]byte, error) {
	b, err := r.Slice(off, n)
	if err != nil {
		return nil, err
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return b, nil
}

// CString returns the bytes from off up to (not including) the next NUL.
// A string running to the end of the buffer without terminator is an error.
func (r *Reader) CString(off uint32) ([]byte, error) {
	if off >= uint32(len(r.data)) {
		return nil, errors.Wrapf(ErrOutOfBounds, "string at 0x%x", off)
	}
	n := bytes.IndexByte(r.data[off:], 0)
	if n < 0 {
		return nil, errors.Wrapf(ErrOutOfBounds, "unterminated string at 0x%x", off)
	}
	return r.data[off : off+uint32(n)], nil
}

// View returns a window of size bytes at off. The window is checked once,
// reads inside it can not fail.
func (r *Reader) View(off, size uint32) (View, error) {
	if err := r.Check(off, size); err != nil {
		return View{}, err
	}
	return View{data: r.data[off : off+size], base: off, order: r.order}, nil
}

type View struct {
	data  []byte
	base  uint32
	order binary.ByteOrder
}

func (v View) Base() uint32 { return v.base }
func (v View) Size() uint32 { return uint32(len(v.data)) }
func (v View) Off(rel uint32) uint32 { return v.base + rel }
func (v View) U8(rel uint32) uint8 { return v.data[rel] }
func (v View) I8(rel uint32) int8 { return int8(v.data[rel]) }
func (v View) U16(rel uint32) uint16 { return v.order.Uint16(v.data[rel:]) }
func (v View) I16(rel uint32) int16 { return int16(v.order.Uint16(v.data[rel:])) }
func (v View) U32(rel uint32) uint32 { return v.order.Uint32(v.data[rel:]) }
func (v View) F32(rel uint32) float32 { return math.Float32frombits(v.order.Uint32(v.data[rel:])) }

func (v View) Bytes(rel, n uint32) []byte {
	return v.data[rel : rel+n]
}

func (v View) F32s(rel uint32, out []float32) {
	for i := range out {
		out[i] = v.F32(rel + uint32(i)*4)
	}
}
