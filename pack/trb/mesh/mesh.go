package mesh

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/toshi_browser/gx"
	"github.com/mogaika/toshi_browser/pack/trb"
)

type Collision struct{}

type SkeletonHeader struct{}

type Joint struct {
	Name             string
	Parent           int16 // -1 for root
	Bind             mgl32.Vec4
	Transform        mgl32.Mat4
	InverseTransform mgl32.Mat4
	Extra            *mgl32.Vec4 `json:",omitempty"`
}

type Skeleton struct {
	Name           string
	BoundingSphere *mgl32.Vec4 `json:",omitempty"`
	Joints         []*Joint
}

type JointWeights struct {
	Indices [4]uint8
	Weights mgl32.Vec3
}

// DisplayList is a byte range of GX draw commands.
// MatrixIndices map the matrix index of a vertex to a joint.
type DisplayList struct {
	DataOffset    uint32
	HasData       bool
	DataSize      uint32
	MatrixIndices [10]uint8
	Stride        uint8
	IndexCount    uint8
}

// MeshInfo is one draw unit: vertex format, display lists and skinning weights.
type MeshInfo struct {
	Name           string
	BoundingSphere *mgl32.Vec4 `json:",omitempty"`

	// v1 records keep the 8-byte compact attribute form, v2 records the explicit tables
	Attributes [8]byte
	Formats    []gx.PackedFormat `json:",omitempty"`
	Sources    []gx.Source       `json:",omitempty"`

	Format          *gx.VertexFormat `json:"-"`
	DisplayLists    []*DisplayList
	JointWeights    []*JointWeights
	AttributesValid bool

	lock    sync.Mutex
	loader  *gx.Loader
	decoded map[int]*gx.VertexData
}

type LodHeader struct {
	BoundingSphere mgl32.Vec4
}

type Lod struct {
	Header *LodHeader
	Groups []*MeshInfo
}

// Model is a decoded mesh resource. Groups lists every MeshInfo in file order,
// Lods keeps the v1 grouping.
type Model struct {
	Name           string
	Type           string
	BoundingSphere *mgl32.Vec4 `json:",omitempty"`
	Unknown1       float32
	Collision      *Collision      `json:",omitempty"`
	SkeletonHeader *SkeletonHeader `json:",omitempty"`
	Skeleton       *Skeleton       `json:",omitempty"`
	Lods           []*Lod          `json:",omitempty"`
	Groups         []*MeshInfo
}

func (m *Model) ResourceName() string { return m.Name }
func (m *Model) ResourceType() string { return m.Type }

func (m *Model) addLods(lods []*Lod) {
	m.Lods = append(m.Lods, lods...)
	for _, lod := range lods {
		m.Groups = append(m.Groups, lod.Groups...)
	}
}

// FindMesh looks a model up by name. Extension and case are ignored.
func FindMesh(ctx *trb.LoadContext, name string) (*Model, bool) {
	res, ok := ctx.Find(trb.KindMesh, name)
	if !ok {
		return nil, false
	}
	m, ok := res.(*Model)
	return m, ok
}

// Models returns the registered models sorted by key.
func Models(ctx *trb.LoadContext) []*Model {
	keys := ctx.Keys(trb.KindMesh)
	out := make([]*Model, 0, len(keys))
	for _, k := range keys {
		if m, ok := FindMesh(ctx, k); ok {
			out = append(out, m)
		}
	}
	return out
}
