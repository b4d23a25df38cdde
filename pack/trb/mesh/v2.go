package mesh

import (
	"github.com/mogaika/toshi_browser/config"
	"github.com/mogaika/toshi_browser/gx"
	"github.com/mogaika/toshi_browser/pack/trb"
)

const (
	tcmdMeshSize        = 0x1C
	tcmdDisplayListSize = 0x14
	tcmdAttributeSize   = 0x08
	tcmdFormatEntrySize = 0x04
)

func loadTCMDDisplayList(ctx *trb.LoadContext, off uint32) *DisplayList {
	v, err := ctx.View(off, tcmdDisplayListSize)
	if err != nil {
		return nil
	}
	dl := &DisplayList{
		Stride:     v.U8(0x00),
		IndexCount: v.U8(0x01),
		DataSize:   v.U32(0x0C),
	}
	copy(dl.MatrixIndices[:], v.Bytes(0x02, 10))
	dl.DataOffset, dl.HasData = ctx.Resolve(off + 0x10)
	return dl
}

func loadTCMDAttribute(ctx *trb.LoadContext, off uint32) *gx.Source {
	v, err := ctx.View(off, tcmdAttributeSize)
	if err != nil {
		return nil
	}
	s := &gx.Source{
		Attr:   gx.Attr(v.U8(0x04)),
		Stride: v.U8(0x05),
		Count:  v.U16(0x06),
	}
	s.DataOffset, s.HasData = ctx.Resolve(off)
	return s
}

func loadTCMDFormats(ctx *trb.LoadContext, off uint32) []gx.PackedFormat {
	count, err := ctx.U32(off)
	if err != nil {
		return nil
	}
	if uint64(count)*tcmdFormatEntrySize > uint64(ctx.Reader().Len()) {
		return nil
	}
	v, err := ctx.View(off+4, count*tcmdFormatEntrySize)
	if err != nil {
		return nil
	}
	formats := make([]gx.PackedFormat, count)
	for i := range formats {
		e := uint32(i) * tcmdFormatEntrySize
		formats[i] = gx.UnpackFormat(v.U16(e), v.U8(e+2), v.U8(e+3))
	}
	return formats
}

func loadTCMDMesh(ctx *trb.LoadContext, off uint32) *MeshInfo {
	v, err := ctx.View(off, tcmdMeshSize)
	if err != nil {
		return nil
	}

	mi := &MeshInfo{}
	if formats, ok := ctx.Resolve(off + 0x04); ok {
		mi.Formats = loadTCMDFormats(ctx, formats)
	}
	if base, ok := ctx.Resolve(off + 0x0C); ok {
		mi.DisplayLists = trb.LoadStructArray(ctx, base, v.U32(0x08), tcmdDisplayListSize, loadTCMDDisplayList)
	}
	if base, ok := ctx.Resolve(off + 0x14); ok {
		for _, s := range trb.LoadStructArray(ctx, base, v.U32(0x10), tcmdAttributeSize, loadTCMDAttribute) {
			mi.Sources = append(mi.Sources, *s)
		}
	}
	if info, ok := ctx.Resolve(off + 0x18); ok {
		if count, err := ctx.Reader().U16(info + 0x04); err == nil {
			if weights, ok := ctx.Resolve(info); ok {
				mi.JointWeights = trb.LoadStructArray(ctx, weights, uint32(count), ctx.Profile().Weight.Stride, loadJointWeights)
			}
		}
	}

	mi.AttributesValid = true
	for _, s := range mi.Sources {
		mi.AttributesValid = mi.AttributesValid && s.HasData
	}
	mi.Format = gx.FormatFromTables(mi.Formats, mi.Sources)
	if !mi.Format.HasAttributes() {
		mi.AttributesValid = false
	}
	return mi
}

func loadTCMD(ctx *trb.LoadContext, sym *trb.Symbol) (trb.Resource, error) {
	off := sym.Offset
	if _, err := ctx.View(off, 0x30); err != nil {
		return nil, err
	}
	name, err := loadModelName(ctx, off+0x1C)
	if err != nil {
		return nil, err
	}

	m := &Model{
		Name:     name,
		Type:     sym.Key(),
		Skeleton: loadOptionalSkeleton(ctx, off+0x2C),
		Groups:   trb.LoadOffsetToPointerArray(ctx, off+0x10, loadTCMDMesh),
	}
	if bs, err := ctx.Vec4(off); err == nil {
		m.BoundingSphere = &bs
	}
	if m.Groups == nil {
		m.Groups = []*MeshInfo{}
	}

	ctx.RegisterKeyed(trb.KindMesh, m.Name, m)
	return m, nil
}

func init() {
	trb.SetHandler(config.FormatV2, "tcmd", loadTCMD)
	trb.SetHandler(config.FormatV2, "dmct", loadTCMD)
}
