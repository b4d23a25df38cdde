package mesh

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/toshi_browser/config"
	"github.com/mogaika/toshi_browser/gx"
	"github.com/mogaika/toshi_browser/pack/trb"
)

const (
	tmodMeshInfoSize    = 0x2C
	tmodDisplayListSize = 0x18
	twldSubMeshDataSize = 0x44
	twldMeshGroupArray  = 0x84

	tmodColorFlag = 0x80
)

// world sub meshes have no matrix table, every vertex uses matrix 0
var defaultMatrixIndices = [10]uint8{0, 255, 255, 255, 255, 255, 255, 255, 255, 255}

func loadModelName(ctx *trb.LoadContext, ptr uint32) (string, error) {
	off, err := ctx.MustResolve(ptr)
	if err != nil {
		return "", errors.Wrap(err, "model name")
	}
	return ctx.String(off)
}

func optionalCollision(ctx *trb.LoadContext, ptr uint32) *Collision {
	if _, ok := ctx.Resolve(ptr); ok {
		return &Collision{}
	}
	return nil
}

func optionalSkeletonHeader(ctx *trb.LoadContext, ptr uint32) *SkeletonHeader {
	if _, ok := ctx.Resolve(ptr); ok {
		return &SkeletonHeader{}
	}
	return nil
}

func loadTMODDisplayList(ctx *trb.LoadContext, off uint32) *DisplayList {
	v, err := ctx.View(off, tmodDisplayListSize)
	if err != nil {
		return nil
	}
	dl := &DisplayList{DataSize: v.U32(0x04)}
	dl.DataOffset, dl.HasData = ctx.Resolve(off)
	copy(dl.MatrixIndices[:], v.Bytes(0x0C, 10))
	return dl
}

func loadTMODMeshInfo(ctx *trb.LoadContext, off uint32) *MeshInfo {
	v, err := ctx.View(off, tmodMeshInfoSize)
	if err != nil {
		return nil
	}

	var raw [4]byte
	copy(raw[:], v.Bytes(0x28, 4))
	mi := &MeshInfo{Attributes: gx.ExpandCompactAttributes(raw), AttributesValid: true}
	mi.Name, _ = ctx.PtrString(off + 0x20)

	var arrays gx.CompactArrays
	arrays.Pos, arrays.HasPos = ctx.Resolve(off + 0x0C)
	arrays.Tex0, arrays.HasTex0 = ctx.Resolve(off + 0x14)
	// the second channel holds either colors or normals
	if raw[1]&tmodColorFlag != 0 {
		arrays.Clr0, arrays.HasClr0 = ctx.Resolve(off + 0x10)
	} else {
		arrays.Nrm, arrays.HasNrm = ctx.Resolve(off + 0x10)
	}
	mi.Format = gx.FormatFromCompact(mi.Attributes, arrays)

	if base, ok := ctx.Resolve(off + 0x18); ok {
		mi.DisplayLists = trb.LoadStructArray(ctx, base, v.U32(0x1C), tmodDisplayListSize, loadTMODDisplayList)
	}
	if weights, ok := ctx.Resolve(off + 0x24); ok {
		mi.JointWeights = trb.LoadOffsetToStructArray(ctx, weights, ctx.Profile().Weight.Stride, loadJointWeights)
	}
	return mi
}

func loadLod(ctx *trb.LoadContext, off uint32) *Lod {
	count, err := ctx.U32(off + 0x08)
	if err != nil {
		return nil
	}
	lod := &Lod{}
	// the header record carries no decoded payload
	if _, ok := ctx.Resolve(off); ok {
		lod.Header = &LodHeader{}
	}
	if base, ok := ctx.Resolve(off + 0x04); ok {
		lod.Groups = trb.LoadPointerArray(ctx, base, count, loadTMODMeshInfo)
	}
	return lod
}

func loadTMOD(ctx *trb.LoadContext, sym *trb.Symbol) (trb.Resource, error) {
	off := sym.Offset
	v, err := ctx.View(off, 0x1C)
	if err != nil {
		return nil, err
	}
	name, err := loadModelName(ctx, off)
	if err != nil {
		return nil, err
	}

	m := &Model{
		Name:           name,
		Type:           sym.Key(),
		Unknown1:       v.F32(0x08),
		SkeletonHeader: optionalSkeletonHeader(ctx, off+0x0C),
		Skeleton:       loadOptionalSkeleton(ctx, off+0x10),
		Collision:      optionalCollision(ctx, off+0x14),
		Groups:         []*MeshInfo{},
	}
	if base, ok := ctx.Resolve(off + 0x18); ok {
		m.addLods(trb.LoadPointerArray(ctx, base, v.U32(0x04), loadLod))
	}

	ctx.RegisterKeyed(trb.KindMesh, m.Name, m)
	return m, nil
}

func loadSubMeshData(ctx *trb.LoadContext, off uint32) *MeshInfo {
	v, err := ctx.View(off, twldSubMeshDataSize)
	if err != nil {
		return nil
	}

	mi := &MeshInfo{AttributesValid: true}
	copy(mi.Attributes[:], v.Bytes(0x3C, 8))
	mi.Name, _ = ctx.PtrString(off + 0x34)

	var arrays gx.CompactArrays
	arrays.Pos, arrays.HasPos = ctx.Resolve(off + 0x18)
	arrays.Nrm, arrays.HasNrm = ctx.Resolve(off + 0x1C)
	arrays.Tex0, arrays.HasTex0 = ctx.Resolve(off + 0x20)
	arrays.Clr0, arrays.HasClr0 = ctx.Resolve(off + 0x24)
	arrays.Tex1, arrays.HasTex1 = ctx.Resolve(off + 0x28)
	mi.Format = gx.FormatFromCompact(mi.Attributes, arrays)

	dl := &DisplayList{DataSize: v.U32(0x30), MatrixIndices: defaultMatrixIndices}
	dl.DataOffset, dl.HasData = ctx.Resolve(off + 0x2C)
	mi.DisplayLists = []*DisplayList{dl}
	return mi
}

func loadSubMeshInfo(ctx *trb.LoadContext, off uint32) *Lod {
	bs, err := ctx.Vec4(off)
	if err != nil {
		return nil
	}
	lod := &Lod{Header: &LodHeader{BoundingSphere: bs}}
	if data, ok := ctx.Resolve(off + 0x10); ok {
		if mi := loadSubMeshData(ctx, data); mi != nil {
			bsCopy := bs
			mi.BoundingSphere = &bsCopy
			lod.Groups = append(lod.Groups, mi)
		}
	}
	return lod
}

type lodList []*Lod

func loadMeshGroup(ctx *trb.LoadContext, off uint32) *lodList {
	lods := lodList(trb.LoadOffsetToPointerArray(ctx, off+twldMeshGroupArray, loadSubMeshInfo))
	return &lods
}

func loadMeshGroupList(ctx *trb.LoadContext, off uint32) *lodList {
	var lods lodList
	for _, group := range trb.LoadOffsetToPointerArray(ctx, off, loadMeshGroup) {
		lods = append(lods, *group...)
	}
	return &lods
}

func loadTWLD(ctx *trb.LoadContext, sym *trb.Symbol) (trb.Resource, error) {
	off := sym.Offset
	if _, err := ctx.View(off, 0x14); err != nil {
		return nil, err
	}
	name, err := loadModelName(ctx, off)
	if err != nil {
		return nil, err
	}

	m := &Model{
		Name:           name,
		Type:           sym.Key(),
		Collision:      optionalCollision(ctx, off+0x08),
		SkeletonHeader: optionalSkeletonHeader(ctx, off+0x0C),
		Skeleton:       loadOptionalSkeleton(ctx, off+0x10),
		Groups:         []*MeshInfo{},
	}
	if groups, ok := ctx.Resolve(off + 0x04); ok {
		for _, list := range trb.LoadOffsetToPointerArray(ctx, groups, loadMeshGroupList) {
			m.addLods(*list)
		}
	}

	ctx.RegisterKeyed(trb.KindMesh, m.Name, m)
	return m, nil
}

// UVEntry is one material pass of a UV resource: a display list over the second texture channel.
type UVEntry struct {
	MaterialName string
	Tex1Name     string
	Mesh         *MeshInfo
}

// UV holds the second texture coordinate layer of world geometry.
type UV struct {
	Name     string
	Type     string
	Unknown0 mgl32.Vec3
	Unknown1 mgl32.Vec3
	Entries  []*UVEntry
}

func (uv *UV) ResourceName() string { return uv.Name }
func (uv *UV) ResourceType() string { return uv.Type }

const uvEntrySize = 0x20

func loadUVEntry(ctx *trb.LoadContext, off uint32) *UVEntry {
	v, err := ctx.View(off, uvEntrySize)
	if err != nil {
		return nil
	}
	e := &UVEntry{}
	e.MaterialName, _ = ctx.PtrString(off + 0x04)
	e.Tex1Name, _ = ctx.PtrString(off + 0x08)

	mi := &MeshInfo{Name: e.MaterialName, AttributesValid: true}
	copy(mi.Attributes[:], v.Bytes(0x14, 8))
	var arrays gx.CompactArrays
	arrays.Tex1, arrays.HasTex1 = ctx.Resolve(off)
	mi.Format = gx.FormatFromCompact(mi.Attributes, arrays)

	dl := &DisplayList{DataSize: v.U32(0x10)}
	dl.DataOffset, dl.HasData = ctx.Resolve(off + 0x0C)
	mi.DisplayLists = []*DisplayList{dl}
	e.Mesh = mi
	return e
}

func loadUV(ctx *trb.LoadContext, sym *trb.Symbol) (trb.Resource, error) {
	off := sym.Offset
	v, err := ctx.View(off, 0x20)
	if err != nil {
		return nil, err
	}
	base, err := ctx.MustResolve(off + 0x04)
	if err != nil {
		return nil, errors.Wrap(err, "uv entries")
	}

	uv := &UV{Name: sym.Key(), Type: "UV"}
	v.F32s(0x08, uv.Unknown0[:])
	v.F32s(0x14, uv.Unknown1[:])
	uv.Entries = trb.LoadStructArray(ctx, base, v.U32(0x00), uvEntrySize, loadUVEntry)

	ctx.RegisterKeyed(trb.KindUV, uv.Name, uv)
	return uv, nil
}

func FindUV(ctx *trb.LoadContext, name string) (*UV, bool) {
	res, ok := ctx.Find(trb.KindUV, name)
	if !ok {
		return nil, false
	}
	uv, ok := res.(*UV)
	return uv, ok
}

func init() {
	trb.SetHandler(config.FormatV1, "tmod", loadTMOD)
	trb.SetHandler(config.FormatV1, "twld", loadTWLD)
	trb.SetPrefixHandler(config.FormatV1, "UV", loadUV)
}
