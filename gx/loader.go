package gx

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/mogaika/toshi_browser/readat"
)

var (
	ErrUnknownCommand = errors.New("unknown display list command")
	ErrTruncated      = errors.New("display list truncated")
	ErrEmptyFormat    = errors.New("vertex format reads no stream bytes")
)

// OutputType is the component type of an attribute in the decoded vertex buffer.
type OutputType uint8

const (
	OutU8 OutputType = iota
	OutF32
)

// LayoutAttr describes one active attribute of the canonical vertex layout.
// Source fields keep the stream encoding the values were decoded from.
type LayoutAttr struct {
	Attr       Attr
	Offset     uint32
	Components uint32
	Output     OutputType

	SourceType     AttrType
	SourceCompType CompType
	SourceCompCnt  CompCnt
	Shift          uint8
}

func (la LayoutAttr) Size() uint32 {
	if la.Output == OutF32 {
		return la.Components * 4
	}
	return (la.Components + 3) &^ 3
}

type Layout struct {
	Attributes []LayoutAttr
	Stride     uint32
	// StreamSize is the display list bytes one vertex consumes
	StreamSize uint32

	index [AttrMax]int
}

// Find returns the layout entry of an attribute.
func (l *Layout) Find(a Attr) (LayoutAttr, bool) {
	if a >= AttrMax || l.index[a] < 0 {
		return LayoutAttr{}, false
	}
	return l.Attributes[l.index[a]], true
}

// Loader decodes display lists of one vertex format.
type Loader struct {
	format VertexFormat
	layout *Layout
}

func Compile(vf *VertexFormat) *Loader {
	l := &Loader{format: *vf, layout: &Layout{}}
	for i := range l.layout.index {
		l.layout.index[i] = -1
	}

	for a := Attr(0); a < AttrMax; a++ {
		if !vf.Enabled(a) {
			continue
		}
		f := vf.Fmt[a]
		la := LayoutAttr{
			Attr:           a,
			SourceType:     vf.Desc[a].Type,
			SourceCompType: f.CompType,
			SourceCompCnt:  f.CompCnt,
			Shift:          f.Shift,
		}
		switch {
		case a.IsMatrixIndex():
			la.Output, la.Components = OutU8, 1
		case a == AttrPOS:
			la.Output, la.Components = OutF32, 3
		case a == AttrNRM:
			la.Output, la.Components = OutF32, 3
			if f.CompCnt != CompCntNrmXYZ {
				la.Components = 9
			}
		case a.IsColor():
			la.Output, la.Components = OutU8, 4
		case a.IsTexCoord():
			la.Output, la.Components = OutF32, 2
		}
		la.Offset = l.layout.Stride
		l.layout.Stride += la.Size()
		l.layout.StreamSize += streamSize(a, la.SourceType, f)
		l.layout.index[a] = len(l.layout.Attributes)
		l.layout.Attributes = append(l.layout.Attributes, la)
	}
	return l
}

func (l *Loader) Layout() *Layout { return l.layout }

func streamSize(a Attr, t AttrType, f VtxAttrFmt) uint32 {
	var n uint32
	switch t {
	case AttrTypeDirect:
		return directSize(a, f)
	case AttrTypeIndex8:
		n = 1
	case AttrTypeIndex16:
		n = 2
	default:
		return 0
	}
	if a == AttrNRM && f.CompCnt == CompCntNrmNBT3 {
		n *= 3
	}
	return n
}

type Primitive struct {
	Type        PrimitiveType
	VertexStart uint32
	VertexCount uint32
}

// VertexData is a decoded display list. Buffer is little endian and follows Layout.
type VertexData struct {
	Layout      *Layout
	Buffer      []byte
	VertexCount uint32
	Indices     []uint32
	Primitives  []Primitive
	// MissingArrays lists indexed attributes without a data array. Their values are zero.
	MissingArrays []Attr
}

func (vd *VertexData) f32(i uint32, a Attr, comp uint32) float32 {
	la, ok := vd.Layout.Find(a)
	if !ok || comp >= la.Components || la.Output != OutF32 {
		return 0
	}
	off := i*vd.Layout.Stride + la.Offset + comp*4
	return math.Float32frombits(binary.LittleEndian.Uint32(vd.Buffer[off:]))
}

func (vd *VertexData) Has(a Attr) bool {
	_, ok := vd.Layout.Find(a)
	return ok
}

func (vd *VertexData) Position(i uint32) [3]float32 {
	return [3]float32{vd.f32(i, AttrPOS, 0), vd.f32(i, AttrPOS, 1), vd.f32(i, AttrPOS, 2)}
}

func (vd *VertexData) Normal(i uint32) [3]float32 {
	return [3]float32{vd.f32(i, AttrNRM, 0), vd.f32(i, AttrNRM, 1), vd.f32(i, AttrNRM, 2)}
}

func (vd *VertexData) TexCoord(layer int, i uint32) [2]float32 {
	a := AttrTEX0 + Attr(layer)
	return [2]float32{vd.f32(i, a, 0), vd.f32(i, a, 1)}
}

func (vd *VertexData) Color(layer int, i uint32) [4]uint8 {
	la, ok := vd.Layout.Find(AttrCLR0 + Attr(layer))
	if !ok {
		return [4]uint8{0xff, 0xff, 0xff, 0xff}
	}
	off := i*vd.Layout.Stride + la.Offset
	return [4]uint8{vd.Buffer[off], vd.Buffer[off+1], vd.Buffer[off+2], vd.Buffer[off+3]}
}

// MatrixIndex is the skinning matrix slot of a vertex, 0 when the stream has none.
func (vd *VertexData) MatrixIndex(i uint32) uint8 {
	la, ok := vd.Layout.Find(AttrPNMTXIDX)
	if !ok {
		return 0
	}
	return vd.Buffer[i*vd.Layout.Stride+la.Offset]
}

// Run decodes a display list. mem is the address space array offsets point into,
// both buffers are read with order.
func (l *Loader) Run(mem []byte, displayList []byte, order binary.ByteOrder) (*VertexData, error) {
	r := &runner{
		loader: l,
		mem:    readat.NewReader(mem, order),
		dl:     readat.NewReader(displayList, order),
		vd:     &VertexData{Layout: l.layout},
	}
	if err := r.run(); err != nil {
		return r.vd, err
	}
	return r.vd, nil
}

type runner struct {
	loader  *Loader
	mem     *readat.Reader
	dl      *readat.Reader
	pos     uint32
	vd      *VertexData
	missing [AttrMax]bool
}

func (r *runner) run() error {
	for r.pos < r.dl.Len() {
		cmd, _ := r.dl.U8(r.pos)
		r.pos++

		switch {
		case cmd == cmdNop:
			continue
		case cmd == cmdLoadIndxA || cmd == cmdLoadIndxB || cmd == cmdLoadIndxC || cmd == cmdLoadIndxD:
			r.pos += 4
			continue
		case isPrimitive(cmd):
		default:
			return errors.Wrapf(ErrUnknownCommand, "0x%.2x at 0x%x", cmd, r.pos-1)
		}

		count, err := r.dl.U16(r.pos)
		if err != nil {
			return errors.Wrap(ErrTruncated, "vertex count")
		}
		r.pos += 2

		if count > 0 {
			stream := r.loader.layout.StreamSize
			if stream == 0 {
				return errors.Wrapf(ErrEmptyFormat, "primitive 0x%.2x with %d vertices", cmd, count)
			}
			if uint64(count)*uint64(stream) > uint64(r.dl.Len()-r.pos) {
				return errors.Wrapf(ErrTruncated, "%d vertices of %d bytes at 0x%x", count, stream, r.pos)
			}
		}

		prim := Primitive{Type: PrimitiveType(cmd & cmdPrimitiveMask), VertexStart: r.vd.VertexCount, VertexCount: uint32(count)}
		for i := uint16(0); i < count; i++ {
			if err := r.vertex(); err != nil {
				return err
			}
		}
		r.vd.Primitives = append(r.vd.Primitives, prim)
		r.triangulate(prim)
	}
	return nil
}

func (r *runner) triangulate(p Primitive) {
	s, n := p.VertexStart, p.VertexCount
	idx := r.vd.Indices
	switch p.Type {
	case PrimTriangles:
		for i := uint32(0); i+2 < n; i += 3 {
			idx = append(idx, s+i, s+i+1, s+i+2)
		}
	case PrimTriangleStrip:
		for i := uint32(0); i+2 < n; i++ {
			if i%2 == 0 {
				idx = append(idx, s+i, s+i+1, s+i+2)
			} else {
				idx = append(idx, s+i+1, s+i, s+i+2)
			}
		}
	case PrimTriangleFan:
		for i := uint32(1); i+1 < n; i++ {
			idx = append(idx, s, s+i, s+i+1)
		}
	case PrimQuads:
		for i := uint32(0); i+3 < n; i += 4 {
			idx = append(idx, s+i, s+i+1, s+i+2, s+i, s+i+2, s+i+3)
		}
	}
	r.vd.Indices = idx
}

func (r *runner) vertex() error {
	layout := r.loader.layout
	out := make([]byte, layout.Stride)

	for _, la := range layout.Attributes {
		a := la.Attr
		src, err := r.source(a, la)
		if err != nil {
			return err
		}
		if src == nil {
			continue
		}
		if err := decodeAttr(src, la, out[la.Offset:la.Offset+la.Size()]); err != nil {
			return err
		}
	}

	r.vd.Buffer = append(r.vd.Buffer, out...)
	r.vd.VertexCount++
	return nil
}

// source returns the encoded bytes of one attribute of the current vertex
// and advances the display list cursor. nil means the value stays zero.
func (r *runner) source(a Attr, la LayoutAttr) (*readat.View, error) {
	size := directSize(a, r.loader.format.Fmt[a])

	switch la.SourceType {
	case AttrTypeDirect:
		v, err := r.dl.View(r.pos, size)
		if err != nil {
			return nil, errors.Wrapf(ErrTruncated, "direct %s", a)
		}
		r.pos += size
		return &v, nil
	case AttrTypeIndex8, AttrTypeIndex16:
		var index uint32
		if la.SourceType == AttrTypeIndex8 {
			b, err := r.dl.U8(r.pos)
			if err != nil {
				return nil, errors.Wrapf(ErrTruncated, "index %s", a)
			}
			index = uint32(b)
			r.pos++
		} else {
			h, err := r.dl.U16(r.pos)
			if err != nil {
				return nil, errors.Wrapf(ErrTruncated, "index %s", a)
			}
			index = uint32(h)
			r.pos += 2
		}
		if a == AttrNRM && la.SourceCompCnt == CompCntNrmNBT3 {
			// two more indices for binormal and tangent, only the first is used
			if la.SourceType == AttrTypeIndex8 {
				r.pos += 2
			} else {
				r.pos += 4
			}
		}

		arr := r.loader.format.Arrays[a]
		if !arr.Present {
			if !r.missing[a] {
				r.missing[a] = true
				r.vd.MissingArrays = append(r.vd.MissingArrays, a)
			}
			return nil, nil
		}
		v, err := r.mem.View(arr.Offset+index*arr.Stride, size)
		if err != nil {
			return nil, errors.Wrapf(err, "%s array element %d", a, index)
		}
		return &v, nil
	}
	return nil, nil
}

func compSize(t CompType) uint32 {
	switch t {
	case CompU8, CompS8:
		return 1
	case CompU16, CompS16:
		return 2
	case CompF32:
		return 4
	}
	return 0
}

func colorSize(t CompType) uint32 {
	switch t {
	case CompRGB565, CompRGBA4:
		return 2
	case CompRGB8, CompRGBA6:
		return 3
	}
	return 4
}

func compCount(a Attr, c CompCnt) uint32 {
	switch {
	case a == AttrPOS:
		if c == CompCntPosXY {
			return 2
		}
		return 3
	case a == AttrNRM:
		if c == CompCntNrmXYZ {
			return 3
		}
		return 9
	case a.IsTexCoord():
		if c == CompCntTexS {
			return 1
		}
		return 2
	}
	return 1
}

// directSize is the encoded size of one attribute value.
func directSize(a Attr, f VtxAttrFmt) uint32 {
	switch {
	case a.IsMatrixIndex():
		return 1
	case a.IsColor():
		return colorSize(f.CompType)
	}
	return compSize(f.CompType) * compCount(a, f.CompCnt)
}

func readComp(v *readat.View, off uint32, t CompType) float32 {
	switch t {
	case CompU8:
		return float32(v.U8(off))
	case CompS8:
		return float32(v.I8(off))
	case CompU16:
		return float32(v.U16(off))
	case CompS16:
		return float32(v.I16(off))
	case CompF32:
		return v.F32(off)
	}
	return 0
}

func decodeAttr(v *readat.View, la LayoutAttr, out []byte) error {
	a := la.Attr
	switch {
	case a.IsMatrixIndex():
		// stored as a matrix memory row, three rows per matrix
		out[0] = v.U8(0) / 3
	case a.IsColor():
		c := decodeColor(v, la.SourceCompType)
		copy(out, c[:])
	default:
		n := compCount(a, la.SourceCompCnt)
		size := compSize(la.SourceCompType)
		scale := float32(1)
		if la.SourceCompType != CompF32 {
			scale = float32(math.Ldexp(1, -int(la.Shift)))
		}
		for i := uint32(0); i < n && i < la.Components; i++ {
			f := readComp(v, i*size, la.SourceCompType) * scale
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
		}
	}
	return nil
}

func expand4(v uint32) uint8 { return uint8(v<<4 | v) }
func expand5(v uint32) uint8 { return uint8(v<<3 | v>>2) }
func expand6(v uint32) uint8 { return uint8(v<<2 | v>>4) }

func decodeColor(v *readat.View, t CompType) [4]uint8 {
	switch t {
	case CompRGB565:
		p := uint32(v.U16(0))
		return [4]uint8{expand5(p >> 11 & 0x1f), expand6(p >> 5 & 0x3f), expand5(p & 0x1f), 0xff}
	case CompRGB8:
		return [4]uint8{v.U8(0), v.U8(1), v.U8(2), 0xff}
	case CompRGBX8:
		return [4]uint8{v.U8(0), v.U8(1), v.U8(2), 0xff}
	case CompRGBA4:
		p := uint32(v.U16(0))
		return [4]uint8{expand4(p >> 12 & 0xf), expand4(p >> 8 & 0xf), expand4(p >> 4 & 0xf), expand4(p & 0xf)}
	case CompRGBA6:
		p := uint32(v.U8(0))<<16 | uint32(v.U8(1))<<8 | uint32(v.U8(2))
		return [4]uint8{expand6(p >> 18 & 0x3f), expand6(p >> 12 & 0x3f), expand6(p >> 6 & 0x3f), expand6(p & 0x3f)}
	}
	return [4]uint8{v.U8(0), v.U8(1), v.U8(2), v.U8(3)}
}
