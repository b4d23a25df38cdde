// Package trbtest assembles small TRB containers for tests.
package trbtest

import (
	"bytes"
	"encoding/binary"
	"math"
)

type reloc struct {
	at     uint32
	target *Section
}

// Section is a growing data region. All offsets it returns are local to the section.
type Section struct {
	Name   string
	index  int
	order  binary.ByteOrder
	data   []byte
	relocs []reloc
}

func (s *Section) Len() uint32 { return uint32(len(s.data)) }

func (s *Section) align() {
	for len(s.data)%4 != 0 {
		s.data = append(s.data, 0)
	}
}

// Alloc appends n zero bytes at a 4 byte aligned offset.
func (s *Section) Alloc(n int) uint32 {
	s.align()
	off := s.Len()
	s.data = append(s.data, make([]byte, n)...)
	return off
}

// Write appends v encoded in the section byte order.
func (s *Section) Write(v interface{}) uint32 {
	s.align()
	off := s.Len()
	var buf bytes.Buffer
	if err := binary.Write(&buf, s.order, v); err != nil {
		panic(err)
	}
	s.data = append(s.data, buf.Bytes()...)
	return off
}

func (s *Section) Floats(f ...float32) uint32 { return s.Write(f) }

// String appends a NUL terminated string.
func (s *Section) String(str string) uint32 {
	off := s.Len()
	s.data = append(s.data, str...)
	s.data = append(s.data, 0)
	return off
}

func (s *Section) PutU8(off uint32, v uint8) { s.data[off] = v }

func (s *Section) PutU16(off uint32, v uint16) { s.order.PutUint16(s.data[off:], v) }

func (s *Section) PutU32(off uint32, v uint32) { s.order.PutUint32(s.data[off:], v) }

func (s *Section) PutI16(off uint32, v int16) { s.PutU16(off, uint16(v)) }

func (s *Section) PutF32(off uint32, v float32) { s.PutU32(off, math.Float32bits(v)) }

func (s *Section) PutFloats(off uint32, f ...float32) {
	for i, v := range f {
		s.PutF32(off+uint32(i)*4, v)
	}
}

func (s *Section) PutBytes(off uint32, b []byte) { copy(s.data[off:], b) }

// Ptr stores a pointer at `at` addressing targetOff inside target and records its relocation.
func (s *Section) Ptr(at uint32, target *Section, targetOff uint32) {
	s.PutU32(at, targetOff)
	s.relocs = append(s.relocs, reloc{at: at, target: target})
}

// PtrString appends str to the section and points the field at `at` to it.
func (s *Section) PtrString(at uint32, str string) {
	s.Ptr(at, s, s.String(str))
}

type symbol struct {
	typ, name string
	section   *Section
	off       uint32
}

type Builder struct {
	Order    binary.ByteOrder
	sections []*Section
	symbols  []symbol
}

func New(order binary.ByteOrder) *Builder {
	return &Builder{Order: order}
}

func (b *Builder) Section(name string) *Section {
	s := &Section{Name: name, index: len(b.sections), order: b.Order}
	b.sections = append(b.sections, s)
	return s
}

// Symbol adds a symbol. v1 containers keep only the name.
func (b *Builder) Symbol(typ, name string, s *Section, off uint32) {
	b.symbols = append(b.symbols, symbol{typ: typ, name: name, section: s, off: off})
}

type writer struct {
	bytes.Buffer
	order binary.ByteOrder
}

func (w *writer) u16(v uint16) { binary.Write(w, w.order, v) }
func (w *writer) u32(v uint32) { binary.Write(w, w.order, v) }

func (w *writer) pad(n int) {
	for w.Len()%n != 0 {
		w.WriteByte(0)
	}
}

func (b *Builder) chunk(out *writer, tag string, payload []byte) {
	out.WriteString(tag)
	out.u32(uint32(len(payload)))
	out.Write(payload)
}

func (b *Builder) BuildV1() []byte {
	w := func() *writer { return &writer{order: b.Order} }

	hdrx := w()
	hdrx.u16(1)
	hdrx.u16(0)
	hdrx.u32(uint32(len(b.sections)))
	for _, s := range b.sections {
		s.align()
		hdrx.u16(0)
		hdrx.u16(0)
		hdrx.u32(s.Len())
		hdrx.u32(0)
		hdrx.u32(0)
	}

	sect := w()
	for _, s := range b.sections {
		sect.Write(s.data)
	}

	relc := w()
	var count uint32
	for _, s := range b.sections {
		count += uint32(len(s.relocs))
	}
	relc.u32(count)
	for _, s := range b.sections {
		for _, r := range s.relocs {
			relc.u16(uint16(s.index))
			relc.u16(uint16(r.target.index))
			relc.u32(r.at)
		}
	}

	symb := w()
	names := w()
	symb.u32(uint32(len(b.symbols)))
	for _, sym := range b.symbols {
		symb.u16(uint16(sym.section.index))
		symb.u16(uint16(names.Len()))
		symb.u32(0)
		symb.u32(sym.off)
		names.WriteString(sym.name)
		names.WriteByte(0)
	}
	symb.Write(names.Bytes())

	body := w()
	body.WriteString("TRBF")
	b.chunk(body, "HDRX", hdrx.Bytes())
	b.chunk(body, "SECT", sect.Bytes())
	b.chunk(body, "RELC", relc.Bytes())
	b.chunk(body, "SYMB", symb.Bytes())

	out := w()
	marker := "TSFB"
	if b.Order == binary.LittleEndian {
		marker = "TSFL"
	}
	b.chunk(out, marker, body.Bytes())
	return out.Bytes()
}

// BuildV2 writes a v2 container. An extra section holding the string table is placed first,
// so archive section indices are one above the builder ones.
func (b *Builder) BuildV2() []byte {
	strs := &writer{order: b.Order}
	strs.WriteByte(0)
	nameOff := func(s string) uint32 {
		off := uint32(strs.Len())
		strs.WriteString(s)
		strs.WriteByte(0)
		return off
	}
	stringsName := nameOff(".strings")
	sectionNames := make([]uint32, len(b.sections))
	for i, s := range b.sections {
		sectionNames[i] = nameOff(s.Name)
	}
	symbolNames := make([]uint32, len(b.symbols))
	for i, sym := range b.symbols {
		symbolNames[i] = nameOff(sym.name)
	}
	strs.pad(4)

	sectionCount := uint32(len(b.sections) + 1)
	sectionTableSize := sectionCount * 0x30
	symbolTableSize := uint32(len(b.symbols)) * 0x10

	dataOffsets := make([]uint32, len(b.sections))
	stringsOffset := 0x80 + sectionTableSize + symbolTableSize
	cur := stringsOffset + uint32(strs.Len())
	for i, s := range b.sections {
		s.align()
		dataOffsets[i] = cur
		cur += s.Len()
	}
	relocBase := cur

	relocs := &writer{order: b.Order}
	relocOffsets := make([]uint32, len(b.sections))
	for i, s := range b.sections {
		relocOffsets[i] = uint32(relocs.Len())
		for _, r := range s.relocs {
			relocs.u16(uint16(r.target.index + 1))
			relocs.u16(uint16(r.at & 0xffff))
			relocs.u16(uint16(r.at >> 16))
		}
	}

	out := &writer{order: b.Order}
	header := make([]byte, 0x80)
	copy(header, "TRB2")
	if b.Order == binary.LittleEndian {
		header[4] = 1
	}
	b.Order.PutUint32(header[0x0C:], sectionCount)
	b.Order.PutUint32(header[0x10:], sectionTableSize)
	b.Order.PutUint32(header[0x14:], uint32(len(b.symbols)))
	b.Order.PutUint32(header[0x18:], symbolTableSize)
	b.Order.PutUint32(header[0x1C:], relocBase)
	b.Order.PutUint32(header[0x20:], uint32(relocs.Len()))
	out.Write(header)

	writeSection := func(name, size, dataOff, relocCount, relocOff uint32) {
		e := make([]byte, 0x30)
		b.Order.PutUint32(e[0x04:], name)
		b.Order.PutUint32(e[0x10:], size)
		b.Order.PutUint32(e[0x14:], size)
		b.Order.PutUint32(e[0x18:], dataOff)
		b.Order.PutUint32(e[0x20:], relocCount)
		b.Order.PutUint32(e[0x24:], relocOff)
		out.Write(e)
	}
	writeSection(stringsName, uint32(strs.Len()), stringsOffset, 0, 0)
	for i, s := range b.sections {
		writeSection(sectionNames[i], s.Len(), dataOffsets[i], uint32(len(s.relocs)), relocOffsets[i])
	}

	for i, sym := range b.symbols {
		e := make([]byte, 0x10)
		copy(e[0:4], sym.typ)
		b.Order.PutUint32(e[0x04:], sym.off)
		b.Order.PutUint16(e[0x08:], uint16(sym.section.index+1))
		b.Order.PutUint32(e[0x0C:], symbolNames[i])
		out.Write(e)
	}

	out.Write(strs.Bytes())
	for _, s := range b.sections {
		out.Write(s.data)
	}
	out.Write(relocs.Bytes())
	return out.Bytes()
}
