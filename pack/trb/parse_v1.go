package trb

import (
	"encoding/binary"

	"github.com/mogaika/toshi_browser/readat"
	"github.com/mogaika/toshi_browser/utils"
)

const (
	v1Magic        = "TSF"
	v1MarkerLittle = 'L'
	v1MarkerBig    = 'B'

	v1ChunkHeaderSize = 8

	v1TagHDRX = 0x48445258
	v1TagSECT = 0x53454354
	v1TagRELC = 0x52454C43
	v1TagSYMB = 0x53594D42

	v1SectionEntrySize    = 0x10
	v1RelocationEntrySize = 0x08
	v1SymbolEntrySize     = 0x0C
)

type v1Chunk struct {
	Tag  uint32
	Off  uint32
	Size uint32
}

func (c v1Chunk) End() uint32 { return c.Off + c.Size }

// readChunk reads the chunk header at off. The tag is always big endian, the size follows the file order.
func readChunk(r *readat.Reader, off uint32, want uint32) (v1Chunk, error) {
	tag, err := r.U32BE(off)
	if err != nil {
		return v1Chunk{}, malformed("chunk header at 0x%x", off)
	}
	size, err := r.U32(off + 4)
	if err != nil {
		return v1Chunk{}, malformed("chunk header at 0x%x", off)
	}
	if want != 0 && tag != want {
		return v1Chunk{}, malformed("expected chunk %q at 0x%x, got %q", tagString(want), off, tagString(tag))
	}
	c := v1Chunk{Tag: tag, Off: off + v1ChunkHeaderSize, Size: size}
	if !r.Has(c.Off, c.Size) {
		return v1Chunk{}, malformed("chunk %q size 0x%x exceeds file", tagString(tag), size)
	}
	return c, nil
}

func tagString(tag uint32) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], tag)
	return string(b[:])
}

func parseV1(data []byte) (*Archive, error) {
	if len(data) < 12 || string(data[:3]) != v1Magic {
		return nil, ErrUnsupportedFormat
	}
	var order binary.ByteOrder
	switch data[3] {
	case v1MarkerLittle:
		order = binary.LittleEndian
	case v1MarkerBig:
		order = binary.BigEndian
	default:
		return nil, ErrUnsupportedFormat
	}
	r := readat.NewReader(data, order)

	top, err := readChunk(r, 0, 0)
	if err != nil {
		return nil, err
	}
	form, _ := r.FixedString(top.Off, 4)

	a := &Archive{
		Magic:        top.Tag,
		FormType:     string(form),
		LittleEndian: order == binary.LittleEndian,
		index:        make(map[uint32]int),
	}

	hdrx, err := readChunk(r, top.Off+4, v1TagHDRX)
	if err != nil {
		return nil, err
	}
	sect, err := readChunk(r, hdrx.End(), v1TagSECT)
	if err != nil {
		return nil, err
	}
	relc, err := readChunk(r, sect.End(), v1TagRELC)
	if err != nil {
		return nil, err
	}
	symb, err := readChunk(r, relc.End(), v1TagSYMB)
	if err != nil {
		return nil, err
	}

	a.data = data[sect.Off:sect.End()]

	if err := a.parseV1Sections(r, hdrx); err != nil {
		return nil, err
	}
	if err := a.parseV1Relocations(r, relc); err != nil {
		return nil, err
	}
	if err := a.parseV1Symbols(r, symb); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Archive) parseV1Sections(r *readat.Reader, hdrx v1Chunk) error {
	count, err := r.U32(hdrx.Off + 4)
	if err != nil {
		return malformed("HDRX section count")
	}
	if uint64(count)*v1SectionEntrySize+8 > uint64(hdrx.Size) {
		return malformed("HDRX declares %d sections in 0x%x bytes", count, hdrx.Size)
	}

	base := uint32(0)
	a.Sections = make([]Section, count)
	for i := range a.Sections {
		size, _ := r.U32(hdrx.Off + 8 + uint32(i)*v1SectionEntrySize + 4)
		a.Sections[i] = Section{Index: i, Size: size, DataOffset: base}
		base += size
	}
	return nil
}

func (a *Archive) sectionBase(index uint16) (uint32, error) {
	if int(index) >= len(a.Sections) {
		return 0, malformed("section index %d out of %d", index, len(a.Sections))
	}
	return a.Sections[index].DataOffset, nil
}

func (a *Archive) parseV1Relocations(r *readat.Reader, relc v1Chunk) error {
	count, err := r.U32(relc.Off)
	if err != nil {
		return malformed("RELC count")
	}
	if uint64(count)*v1RelocationEntrySize+4 > uint64(relc.Size) {
		return malformed("RELC declares %d relocations in 0x%x bytes", count, relc.Size)
	}

	sect := a.Reader()
	a.Relocations = make([]Relocation, 0, count)
	for i := uint32(0); i < count; i++ {
		v, _ := r.View(relc.Off+4+i*v1RelocationEntrySize, v1RelocationEntrySize)
		rel := Relocation{SourceSection: v.U16(0), TargetSection: v.U16(2)}

		srcBase, err := a.sectionBase(rel.SourceSection)
		if err != nil {
			return err
		}
		tgtBase, err := a.sectionBase(rel.TargetSection)
		if err != nil {
			return err
		}
		rel.SourceOffset = srcBase + v.U32(4)
		stored, err := sect.U32(rel.SourceOffset)
		if err != nil {
			return malformed("relocation %d source 0x%x outside section data", i, rel.SourceOffset)
		}
		rel.TargetOffset = stored + tgtBase
		a.addRelocation(rel)
	}
	return nil
}

func (a *Archive) parseV1Symbols(r *readat.Reader, symb v1Chunk) error {
	count, err := r.U32(symb.Off)
	if err != nil {
		return malformed("SYMB count")
	}
	if uint64(count)*v1SymbolEntrySize+4 > uint64(symb.Size) {
		return malformed("SYMB declares %d symbols in 0x%x bytes", count, symb.Size)
	}
	namesOff := symb.Off + 4 + count*v1SymbolEntrySize
	namesData, _ := r.Slice(namesOff, symb.End()-namesOff)
	names := readat.NewReader(namesData, r.Order())

	a.Symbols = make([]Symbol, count)
	for i := range a.Symbols {
		v, _ := r.View(symb.Off+4+uint32(i)*v1SymbolEntrySize, v1SymbolEntrySize)
		s := Symbol{Index: i, Section: v.U16(0), Local: v.U32(8)}

		name, err := names.CString(uint32(v.U16(2)))
		if err != nil {
			return malformed("symbol %d name: %v", i, err)
		}
		s.Name = utils.BytesToString(name)

		base, err := a.sectionBase(s.Section)
		if err != nil {
			return err
		}
		s.Offset = base + s.Local
		a.Symbols[i] = s
	}
	return nil
}
