// Package terrain decodes level layout: cells, their external archives and object placements.
package terrain

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/toshi_browser/pack/trb"
)

// MeshSlots is the number of resource name slots of a v2 mesh instance.
const MeshSlots = 5

// Instance is a v1 object placement.
type Instance struct {
	InstanceName string `json:",omitempty"`
	ResourceName string `json:",omitempty"`
	UVName       string `json:",omitempty"`
	Transform    *mgl32.Mat4
	Position     *mgl32.Vec3 `json:",omitempty"`
}

// ModelName is the mesh drawn for the instance: the resource name, else the instance name.
func (i *Instance) ModelName() string {
	if i.ResourceName != "" {
		return i.ResourceName
	}
	return i.InstanceName
}

// CellInstance is a v2 placement-only reference.
type CellInstance struct {
	InstanceName string
	Unknown0     mgl32.Vec4
	Unknown1     mgl32.Vec4
}

// MeshInstance places up to MeshSlots resources with one transform. Empty names are unset slots.
type MeshInstance struct {
	Names     [MeshSlots]string
	Transform mgl32.Mat4
	Unknown0  mgl32.Vec4
	Unknown1  mgl32.Vec4
}

// ResourceNames returns the set names among the first slots.
func (mi *MeshInstance) ResourceNames(slots int) []string {
	var names []string
	for i := 0; i < slots && i < MeshSlots; i++ {
		if mi.Names[i] != "" {
			names = append(names, mi.Names[i])
		}
	}
	return names
}

type Cell struct {
	Name      string      `json:",omitempty"`
	Path      string      `json:",omitempty"` // archive holding the cell's own meshes
	Transform *mgl32.Mat4 `json:",omitempty"`

	// v1
	Position  *mgl32.Vec3 `json:",omitempty"`
	Position2 *mgl32.Vec3 `json:",omitempty"`
	Instances []*Instance `json:",omitempty"`

	// v2
	Unknown0      *mgl32.Vec4     `json:",omitempty"`
	Unknown1      *mgl32.Vec4     `json:",omitempty"`
	CellInstances []*CellInstance `json:",omitempty"`
	MeshInstances []*MeshInstance `json:",omitempty"`
}

// Info groups v1 cells.
type Info struct {
	Cells []*Cell
}

type Terrain struct {
	Name      string
	Type      string
	Transform *mgl32.Mat4 `json:",omitempty"`
	Unknown0  *mgl32.Vec4 `json:",omitempty"`
	Unknown1  *mgl32.Vec4 `json:",omitempty"`
	Infos     []*Info     `json:",omitempty"`
	Cells     []*Cell     // every cell, v1 cells in info order
}

func (t *Terrain) ResourceName() string { return t.Name }
func (t *Terrain) ResourceType() string { return t.Type }

// Resources returns the decoded terrain resources in symbol order.
func Resources(ctx *trb.LoadContext) []*Terrain {
	var out []*Terrain
	for _, res := range ctx.List(trb.KindTerrain) {
		if t, ok := res.(*Terrain); ok {
			out = append(out, t)
		}
	}
	return out
}
