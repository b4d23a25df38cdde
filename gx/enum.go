// Package gx decodes GameCube/Wii style vertex streams and texture formats.
package gx

import "fmt"

type Attr uint8

const (
	AttrPNMTXIDX Attr = iota
	AttrTEX0MTXIDX
	AttrTEX1MTXIDX
	AttrTEX2MTXIDX
	AttrTEX3MTXIDX
	AttrTEX4MTXIDX
	AttrTEX5MTXIDX
	AttrTEX6MTXIDX
	AttrTEX7MTXIDX
	AttrPOS
	AttrNRM
	AttrCLR0
	AttrCLR1
	AttrTEX0
	AttrTEX1
	AttrTEX2
	AttrTEX3
	AttrTEX4
	AttrTEX5
	AttrTEX6
	AttrTEX7

	AttrMax
)

// AttrNBT is the attribute id some tables use for normal+binormal+tangent data.
// It is folded into AttrNRM.
const AttrNBT Attr = 25

var attrNames = [AttrMax]string{
	"PNMTXIDX",
	"TEX0MTXIDX", "TEX1MTXIDX", "TEX2MTXIDX", "TEX3MTXIDX",
	"TEX4MTXIDX", "TEX5MTXIDX", "TEX6MTXIDX", "TEX7MTXIDX",
	"POS", "NRM", "CLR0", "CLR1",
	"TEX0", "TEX1", "TEX2", "TEX3", "TEX4", "TEX5", "TEX6", "TEX7",
}

func (a Attr) String() string {
	if a < AttrMax {
		return attrNames[a]
	}
	if a == AttrNBT {
		return "NBT"
	}
	return fmt.Sprintf("ATTR_%d", uint8(a))
}

// Canonical maps aliases onto the attribute they are stored as.
func (a Attr) Canonical() Attr {
	if a == AttrNBT {
		return AttrNRM
	}
	return a
}

func (a Attr) IsMatrixIndex() bool { return a <= AttrTEX7MTXIDX }
func (a Attr) IsColor() bool { return a == AttrCLR0 || a == AttrCLR1 }
func (a Attr) IsTexCoord() bool { return a >= AttrTEX0 && a <= AttrTEX7 }

type AttrType uint8

const (
	AttrTypeNone AttrType = iota
	AttrTypeDirect
	AttrTypeIndex8
	AttrTypeIndex16
)

func (t AttrType) String() string {
	switch t {
	case AttrTypeNone:
		return "NONE"
	case AttrTypeDirect:
		return "DIRECT"
	case AttrTypeIndex8:
		return "INDEX8"
	case AttrTypeIndex16:
		return "INDEX16"
	}
	return fmt.Sprintf("ATTRTYPE_%d", uint8(t))
}

// CompType holds either a numeric component type or, for color attributes, a color format.
type CompType uint8

const (
	CompU8 CompType = iota
	CompS8
	CompU16
	CompS16
	CompF32
)

const (
	CompRGB565 CompType = iota
	CompRGB8
	CompRGBX8
	CompRGBA4
	CompRGBA6
	CompRGBA8
)

type CompCnt uint8

const (
	CompCntPosXY  CompCnt = 0
	CompCntPosXYZ CompCnt = 1

	CompCntNrmXYZ  CompCnt = 0
	CompCntNrmNBT  CompCnt = 1
	CompCntNrmNBT3 CompCnt = 2

	CompCntClrRGB  CompCnt = 0
	CompCntClrRGBA CompCnt = 1

	CompCntTexS  CompCnt = 0
	CompCntTexST CompCnt = 1
)

// PrimitiveType is the opcode of a display list draw command with the vertex format bits cleared.
type PrimitiveType uint8

const (
	PrimQuads         PrimitiveType = 0x80
	PrimTriangles     PrimitiveType = 0x90
	PrimTriangleStrip PrimitiveType = 0x98
	PrimTriangleFan   PrimitiveType = 0xA0
	PrimLines         PrimitiveType = 0xA8
	PrimLineStrip     PrimitiveType = 0xB0
	PrimPoints        PrimitiveType = 0xB8
)

const (
	cmdNop       = 0x00
	cmdLoadIndxA = 0x20
	cmdLoadIndxB = 0x28
	cmdLoadIndxC = 0x30
	cmdLoadIndxD = 0x38

	cmdPrimitiveMask = 0xF8
	cmdVatMask       = 0x07
)

func (p PrimitiveType) String() string {
	switch p {
	case PrimQuads:
		return "QUADS"
	case PrimTriangles:
		return "TRIANGLES"
	case PrimTriangleStrip:
		return "TRIANGLESTRIP"
	case PrimTriangleFan:
		return "TRIANGLEFAN"
	case PrimLines:
		return "LINES"
	case PrimLineStrip:
		return "LINESTRIP"
	case PrimPoints:
		return "POINTS"
	}
	return fmt.Sprintf("PRIM_0x%x", uint8(p))
}

func isPrimitive(cmd uint8) bool {
	switch PrimitiveType(cmd & cmdPrimitiveMask) {
	case PrimQuads, PrimTriangles, PrimTriangleStrip, PrimTriangleFan, PrimLines, PrimLineStrip, PrimPoints:
		return true
	}
	return false
}
