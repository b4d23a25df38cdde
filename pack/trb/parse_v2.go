package trb

import (
	"encoding/binary"

	"github.com/mogaika/toshi_browser/readat"
	"github.com/mogaika/toshi_browser/utils"
)

const (
	v2EndianMarker     = 0x04
	v2SectionCount     = 0x0C
	v2SectionTableSize = 0x10
	v2SymbolCount      = 0x14
	v2RelocationBase   = 0x1C
	v2RelocationSize   = 0x20
	v2SectionTable     = 0x80
	v2SectionEntrySize = 0x30
	v2SymbolEntrySize  = 0x10
	v2RelocationEntry  = 0x06
	v2SymbolTypeLength = 4
)

func parseV2(data []byte) (*Archive, error) {
	if len(data) < v2SectionTable {
		return nil, malformed("header truncated, 0x%x bytes", len(data))
	}
	var order binary.ByteOrder = binary.BigEndian
	if data[v2EndianMarker] != 0 {
		order = binary.LittleEndian
	}
	r := readat.NewReader(data, order)

	hdr, _ := r.View(0, v2SectionTable)
	a := &Archive{
		Magic:        hdr.U32(0),
		LittleEndian: order == binary.LittleEndian,
		data:         data,
		index:        make(map[uint32]int),
	}

	sectionCount := hdr.U32(v2SectionCount)
	sectionTableSize := hdr.U32(v2SectionTableSize)
	if !r.Has(v2SectionTable, sectionTableSize) || uint64(sectionCount)*v2SectionEntrySize > uint64(sectionTableSize) {
		return nil, malformed("section table of %d entries, 0x%x bytes", sectionCount, sectionTableSize)
	}
	if err := a.parseV2Sections(r, sectionCount); err != nil {
		return nil, err
	}

	symbolTable := v2SectionTable + sectionTableSize
	symbolCount := hdr.U32(v2SymbolCount)
	if !r.Has(symbolTable, symbolCount*v2SymbolEntrySize) || uint64(symbolCount)*v2SymbolEntrySize > uint64(r.Len()) {
		return nil, malformed("symbol table of %d entries at 0x%x", symbolCount, symbolTable)
	}
	if err := a.parseV2Symbols(r, symbolTable, symbolCount); err != nil {
		return nil, err
	}

	relocationBase := hdr.U32(v2RelocationBase)
	relocationSize := hdr.U32(v2RelocationSize)
	if !r.Has(relocationBase, relocationSize) {
		return nil, malformed("relocation area 0x%x+0x%x", relocationBase, relocationSize)
	}
	area, _ := r.Slice(relocationBase, relocationSize)
	if err := a.parseV2Relocations(r, readat.NewReader(area, order)); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Archive) parseV2Sections(r *readat.Reader, count uint32) error {
	a.Sections = make([]Section, count)
	for i := range a.Sections {
		v, _ := r.View(v2SectionTable+uint32(i)*v2SectionEntrySize, v2SectionEntrySize)
		s := Section{
			Index:            i,
			Size:             v.U32(0x10),
			ZSize:            v.U32(0x14),
			DataOffset:       v.U32(0x18),
			RelocationCount:  v.U32(0x20),
			RelocationOffset: v.U32(0x24),
		}
		if i == 0 {
			a.StringTable = s.DataOffset
		}
		if name, err := r.CString(a.StringTable + v.U32(0x04)); err == nil {
			s.Name = utils.BytesToString(name)
		}
		a.Sections[i] = s
	}
	return nil
}

func (a *Archive) parseV2Symbols(r *readat.Reader, table, count uint32) error {
	a.Symbols = make([]Symbol, count)
	for i := range a.Symbols {
		v, _ := r.View(table+uint32(i)*v2SymbolEntrySize, v2SymbolEntrySize)
		s := Symbol{Index: i, Section: v.U16(0x08), Local: v.U32(0x04)}

		typ, _ := r.FixedString(v.Off(0), v2SymbolTypeLength)
		s.Type = string(typ)

		name, err := r.CString(a.StringTable + v.U32(0x0C))
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

// parseV2Relocations reads entries from area, which holds only the relocation
// area. Source words are read from the whole file.
func (a *Archive) parseV2Relocations(r *readat.Reader, area *readat.Reader) error {
	for si := range a.Sections {
		sec := &a.Sections[si]
		if sec.RelocationCount > 0 && uint64(sec.RelocationOffset)+uint64(sec.RelocationCount)*v2RelocationEntry > uint64(area.Len()) {
			return malformed("section %d relocations 0x%x+%d exceed relocation area of 0x%x bytes",
				si, sec.RelocationOffset, sec.RelocationCount, area.Len())
		}
		for i := uint32(0); i < sec.RelocationCount; i++ {
			v, _ := area.View(sec.RelocationOffset+i*v2RelocationEntry, v2RelocationEntry)
			rel := Relocation{
				SourceSection: uint16(si),
				TargetSection: v.U16(0),
				SourceOffset:  sec.DataOffset + (uint32(v.U16(4))<<16 | uint32(v.U16(2))),
			}
			tgtBase, err := a.sectionBase(rel.TargetSection)
			if err != nil {
				return err
			}
			stored, err := r.U32(rel.SourceOffset)
			if err != nil {
				return malformed("relocation source 0x%x outside file", rel.SourceOffset)
			}
			rel.TargetOffset = stored + tgtBase
			a.addRelocation(rel)
		}
	}
	return nil
}
