package terrain

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/toshi_browser/config"
	"github.com/mogaika/toshi_browser/pack/trb"
	"github.com/mogaika/toshi_browser/readat"
)

const (
	tdatHeaderSize       = 0x74
	tdatCellSize         = 0xA0
	tdatCellInstanceSize = 0x40
	tdatMeshInstanceSize = 0xA0
)

// name pointer of each mesh instance slot
var meshInstanceNames = [MeshSlots]uint32{0x68, 0x6C, 0x74, 0x78, 0x80}

// readVec4Pair reads the two unknown vectors that follow a leading matrix.
func readVec4Pair(v readat.View) (*mgl32.Vec4, *mgl32.Vec4) {
	var a, b mgl32.Vec4
	v.F32s(0x40, a[:])
	v.F32s(0x50, b[:])
	return &a, &b
}

func loadCellInstance(ctx *trb.LoadContext, off uint32) *CellInstance {
	v, err := ctx.View(off, tdatCellInstanceSize)
	if err != nil {
		return nil
	}
	ci := &CellInstance{}
	v.F32s(0x00, ci.Unknown0[:])
	v.F32s(0x10, ci.Unknown1[:])
	ci.InstanceName, _ = ctx.PtrString(off + 0x20)
	return ci
}

func loadMeshInstance(ctx *trb.LoadContext, off uint32) *MeshInstance {
	v, err := ctx.View(off, tdatMeshInstanceSize)
	if err != nil {
		return nil
	}
	mi := &MeshInstance{}
	v.F32s(0x00, mi.Transform[:])
	v.F32s(0x40, mi.Unknown0[:])
	v.F32s(0x50, mi.Unknown1[:])
	for i, ptr := range meshInstanceNames {
		mi.Names[i], _ = ctx.PtrString(off + ptr)
	}
	return mi
}

func loadTDATCell(ctx *trb.LoadContext, off uint32) *Cell {
	v, err := ctx.View(off, tdatCellSize)
	if err != nil {
		return nil
	}
	c := &Cell{}
	var transform mgl32.Mat4
	v.F32s(0x00, transform[:])
	c.Transform = &transform
	c.Unknown0, c.Unknown1 = readVec4Pair(v)
	c.Path, _ = ctx.PtrString(off + 0x60)
	c.Name, _ = ctx.PtrString(off + 0x64)

	if base, ok := ctx.Resolve(off + 0x68); ok {
		c.CellInstances = trb.LoadStructArray(ctx, base, v.U32(0x6C), tdatCellInstanceSize, loadCellInstance)
	}
	if base, ok := ctx.Resolve(off + 0x7C); ok {
		c.MeshInstances = trb.LoadStructArray(ctx, base, v.U32(0x78), tdatMeshInstanceSize, loadMeshInstance)
	}
	return c
}

func loadTDAT(ctx *trb.LoadContext, sym *trb.Symbol) (trb.Resource, error) {
	off := sym.Offset
	v, err := ctx.View(off, tdatHeaderSize)
	if err != nil {
		return nil, err
	}

	t := &Terrain{Type: sym.Key(), Cells: []*Cell{}}
	var transform mgl32.Mat4
	v.F32s(0x00, transform[:])
	t.Transform = &transform
	t.Unknown0, t.Unknown1 = readVec4Pair(v)
	t.Name, _ = ctx.PtrString(off + 0x60)

	if base, ok := ctx.Resolve(off + 0x68); ok {
		if cells := trb.LoadStructArray(ctx, base, v.U32(0x70), tdatCellSize, loadTDATCell); cells != nil {
			t.Cells = cells
		}
	}

	ctx.Append(trb.KindTerrain, t)
	return t, nil
}

func init() {
	trb.SetHandler(config.FormatV2, "tdat", loadTDAT)
	trb.SetHandler(config.FormatV2, "tadt", loadTDAT)
}
