package terrain

import (
	"github.com/mogaika/toshi_browser/config"
	"github.com/mogaika/toshi_browser/pack/trb"
)

const (
	v1InfoSize     = 0x4C
	v1CellSize     = 0x3C
	v1InstanceSize = 0x40
)

func loadInstance(ctx *trb.LoadContext, off uint32) *Instance {
	if _, err := ctx.View(off, v1InstanceSize); err != nil {
		return nil
	}
	i := &Instance{Transform: ctx.PtrMat4(off)}
	i.InstanceName, _ = ctx.PtrString(off + 0x08)
	i.ResourceName, _ = ctx.PtrString(off + 0x0C)
	i.UVName, _ = ctx.PtrString(off + 0x20)
	// position is stored behind two pointers
	if pos, ok := ctx.Resolve(off + 0x10); ok {
		i.Position = ctx.PtrVec3(pos)
	}
	return i
}

func loadCell(ctx *trb.LoadContext, off uint32) *Cell {
	v, err := ctx.View(off, v1CellSize)
	if err != nil {
		return nil
	}
	c := &Cell{
		Transform: ctx.PtrMat4(off + 0x1C),
		Position:  ctx.PtrVec3(off + 0x08),
		Position2: ctx.PtrVec3(off + 0x0C),
	}
	c.Name, _ = ctx.PtrString(off)
	if path, ok := ctx.Resolve(off + 0x10); ok {
		c.Path, _ = ctx.PtrString(path)
	}
	if base, ok := ctx.Resolve(off + 0x28); ok {
		c.Instances = trb.LoadStructArray(ctx, base, v.U32(0x24), v1InstanceSize, loadInstance)
	}
	return c
}

func loadInfo(ctx *trb.LoadContext, off uint32) *Info {
	v, err := ctx.View(off, v1InfoSize)
	if err != nil {
		return nil
	}
	info := &Info{}
	if base, ok := ctx.Resolve(off); ok {
		info.Cells = trb.LoadStructArray(ctx, base, v.U32(0x08), v1CellSize, loadCell)
	}
	return info
}

func loadTerrainMain(ctx *trb.LoadContext, sym *trb.Symbol) (trb.Resource, error) {
	off := sym.Offset
	v, err := ctx.View(off, 0x08)
	if err != nil {
		return nil, err
	}

	t := &Terrain{Type: sym.Key(), Cells: []*Cell{}}
	if base, ok := ctx.Resolve(off); ok {
		t.Infos = trb.LoadStructArray(ctx, base, v.U32(0x04), v1InfoSize, loadInfo)
	}
	for _, info := range t.Infos {
		t.Cells = append(t.Cells, info.Cells...)
	}

	ctx.Append(trb.KindTerrain, t)
	return t, nil
}

func init() {
	trb.SetHandler(config.FormatV1, "Terrain_Main", loadTerrainMain)
}
