package gx

import "fmt"

// VtxDesc says how an attribute is addressed inside the vertex stream.
type VtxDesc struct {
	Type AttrType
}

// VtxAttrFmt says how the attribute values are encoded.
type VtxAttrFmt struct {
	CompType CompType
	CompCnt  CompCnt
	Shift    uint8
}

// Array is the indexed data source of an attribute: absolute offset and element stride.
type Array struct {
	Offset  uint32
	Stride  uint32
	Present bool
}

type VertexFormat struct {
	Desc   [AttrMax]VtxDesc
	Fmt    [AttrMax]VtxAttrFmt
	Arrays [AttrMax]Array
}

func (vf *VertexFormat) Set(a Attr, t AttrType, f VtxAttrFmt) {
	a = a.Canonical()
	if a >= AttrMax {
		return
	}
	vf.Desc[a] = VtxDesc{Type: t}
	vf.Fmt[a] = f
}

func (vf *VertexFormat) SetArray(a Attr, offset, stride uint32) {
	a = a.Canonical()
	if a >= AttrMax {
		return
	}
	vf.Arrays[a] = Array{Offset: offset, Stride: stride, Present: true}
}

func (vf *VertexFormat) Enabled(a Attr) bool {
	return a < AttrMax && vf.Desc[a].Type != AttrTypeNone
}

// HasAttributes reports whether any attribute is present in the vertex stream.
func (vf *VertexFormat) HasAttributes() bool {
	for a := Attr(0); a < AttrMax; a++ {
		if vf.Enabled(a) {
			return true
		}
	}
	return false
}

func (vf *VertexFormat) String() string {
	s := ""
	for a := Attr(0); a < AttrMax; a++ {
		if !vf.Enabled(a) {
			continue
		}
		f := vf.Fmt[a]
		s += fmt.Sprintf("%s:%s(t%d c%d s%d) ", a, vf.Desc[a].Type, f.CompType, f.CompCnt, f.Shift)
	}
	return s
}

// Bit layout of the packed 16-bit format word of attribute format tables.
const (
	packedVtxFmtShift   = 0
	packedAttrTypeShift = 3
	packedCompCntShift  = 6
	packedCompTypeShift = 9
	packedFieldMask     = 0x3
)

// PackedFormat is one entry of an explicit attribute format table.
type PackedFormat struct {
	Attr     Attr
	AttrType AttrType
	VtxFmt   uint8
	CompCnt  CompCnt
	CompType CompType
	Shift    uint8
}

func UnpackFormat(word uint16, shift uint8, attr uint8) PackedFormat {
	return PackedFormat{
		Attr:     Attr(attr),
		VtxFmt:   uint8((word >> packedVtxFmtShift) & packedFieldMask),
		AttrType: AttrType((word >> packedAttrTypeShift) & packedFieldMask),
		CompCnt:  CompCnt((word >> packedCompCntShift) & packedFieldMask),
		CompType: CompType((word >> packedCompTypeShift) & packedFieldMask),
		Shift:    shift,
	}
}

// Source is one attribute data array of an explicit attribute source table.
type Source struct {
	Attr       Attr
	DataOffset uint32
	HasData    bool
	Stride     uint8
	Count      uint16
}

// FormatFromTables builds a vertex format from an explicit format table and its data sources.
func FormatFromTables(formats []PackedFormat, sources []Source) *VertexFormat {
	vf := &VertexFormat{}
	for _, s := range sources {
		if !s.HasData {
			continue
		}
		vf.SetArray(s.Attr, s.DataOffset, uint32(s.Stride))
	}
	for _, f := range formats {
		vf.Set(f.Attr, f.AttrType, VtxAttrFmt{CompType: f.CompType, CompCnt: f.CompCnt, Shift: f.Shift})
	}
	return vf
}

// Bits of the compact attribute words.
const (
	v1TypeMask        = 0x0F
	v1SkinnedFlag     = 0x80 // byte 1: matrix indices present
	v1ColorFlag       = 0x80 // byte 1 of the raw form: channel 2 holds color instead of normal
	v1ColorPresetMask = 0x03
	v1ColorPresetBit  = 4
)

var (
	colorPresetCnt    = [3]CompCnt{CompCntClrRGB, CompCntClrRGB, CompCntClrRGBA}
	colorPresetType   = [3]CompType{CompRGB565, CompRGBA4, CompRGBA8}
	colorPresetStride = [3]uint32{2, 2, 4}
)

// ColorPreset returns the component count, type and array stride for a 2-bit color selector.
// Selector 3 is not defined and falls back to RGBA8.
func ColorPreset(selector uint8) (CompCnt, CompType, uint32) {
	if int(selector) >= len(colorPresetCnt) {
		selector = 2
	}
	return colorPresetCnt[selector], colorPresetType[selector], colorPresetStride[selector]
}

// ExpandCompactAttributes converts the 4-byte raw attribute word of mesh records
// into the 8-byte form: shift, pos, nrm, clr0, tex0, tex1, unused, unused.
func ExpandCompactAttributes(raw [4]byte) [8]byte {
	var r [8]byte
	r[0] = raw[0]
	r[1] = (raw[1] & v1TypeMask) | v1SkinnedFlag
	if raw[1]&v1ColorFlag == 0 {
		r[2] = raw[2]
	} else {
		r[3] = (raw[2] & v1TypeMask) | ((raw[2] >> 3) & 0xF0)
	}
	r[4] = raw[3]
	return r
}

// CompactArrays are the data arrays referenced by the 8-byte attribute form.
type CompactArrays struct {
	Pos, Nrm, Clr0, Tex0, Tex1 uint32
	HasPos, HasNrm, HasClr0    bool
	HasTex0, HasTex1           bool
}

// FormatFromCompact reconstructs a vertex format from the 8-byte attribute form.
// Position is always present, matrix indices follow bit 7 of byte 1.
func FormatFromCompact(attrs [8]byte, arrays CompactArrays) *VertexFormat {
	vf := &VertexFormat{}
	shift := attrs[0]

	vf.Set(AttrPOS, AttrType(attrs[1]&v1TypeMask), VtxAttrFmt{CompType: CompS16, CompCnt: CompCntPosXYZ, Shift: shift})
	if arrays.HasPos {
		vf.SetArray(AttrPOS, arrays.Pos, 6)
	}

	if attrs[1]&v1SkinnedFlag != 0 {
		vf.Set(AttrPNMTXIDX, AttrTypeDirect, VtxAttrFmt{CompType: CompU8})
	}

	vf.Set(AttrNRM, AttrType(attrs[2]&v1TypeMask), VtxAttrFmt{CompType: CompS8, CompCnt: CompCntNrmXYZ, Shift: 6})
	if arrays.HasNrm {
		vf.SetArray(AttrNRM, arrays.Nrm, 3)
	}

	cnt, typ, stride := ColorPreset((attrs[3] >> v1ColorPresetBit) & v1ColorPresetMask)
	vf.Set(AttrCLR0, AttrType(attrs[3]&v1TypeMask), VtxAttrFmt{CompType: typ, CompCnt: cnt})
	if arrays.HasClr0 {
		vf.SetArray(AttrCLR0, arrays.Clr0, stride)
	}

	vf.Set(AttrTEX0, AttrType(attrs[4]&v1TypeMask), VtxAttrFmt{CompType: CompS16, CompCnt: CompCntTexST, Shift: 8})
	if arrays.HasTex0 {
		vf.SetArray(AttrTEX0, arrays.Tex0, 4)
	}

	vf.Set(AttrTEX1, AttrType(attrs[5]&v1TypeMask), VtxAttrFmt{CompType: CompS16, CompCnt: CompCntTexST, Shift: 12})
	if arrays.HasTex1 {
		vf.SetArray(AttrTEX1, arrays.Tex1, 4)
	}

	return vf
}
