// Package entity decodes EntitiesMain placement tables.
package entity

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/toshi_browser/config"
	"github.com/mogaika/toshi_browser/pack/trb"
	"github.com/mogaika/toshi_browser/utils"
)

const (
	entitySize   = 0x28
	propertySize = 0x0C
)

type ValueKind uint32

const (
	ValueU32 ValueKind = iota
	ValueF32
	ValueBool
	ValueString
	// ValueOffset covers every other data type: the payload is a pointer kept as a resolved offset.
	ValueOffset
)

func (k ValueKind) String() string {
	switch k {
	case ValueU32:
		return "u32"
	case ValueF32:
		return "f32"
	case ValueBool:
		return "bool"
	case ValueString:
		return "string"
	default:
		return "offset"
	}
}

// Value is a property payload. Only the field matching Kind is set.
type Value struct {
	Kind   ValueKind
	U32    uint32
	F32    float32
	Bool   bool
	Str    string
	Offset *uint32
}

// Interface returns the payload as a plain Go value. An unresolved offset is nil.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case ValueU32:
		return v.U32
	case ValueF32:
		return v.F32
	case ValueBool:
		return v.Bool
	case ValueString:
		return v.Str
	default:
		if v.Offset == nil {
			return nil
		}
		return *v.Offset
	}
}

func (v Value) String() string { return fmt.Sprint(v.Interface()) }

func (v Value) MarshalJSON() ([]byte, error) { return json.Marshal(v.Interface()) }

type Property struct {
	Name     string
	DataType uint32
	Value    Value
}

type Entity struct {
	Type       string
	Transform  *mgl32.Mat4 `json:",omitempty"`
	Properties map[string]*Property
	Order      []string // property names in first seen order
}

func (e *Entity) Property(name string) (*Property, bool) {
	p, ok := e.Properties[name]
	return p, ok
}

// MeshNames returns the models referenced by the Mesh and Mesh2 properties,
// as base names without directory or extension.
func (e *Entity) MeshNames() []string {
	var names []string
	for _, prop := range []string{"Mesh", "Mesh2"} {
		p, ok := e.Properties[prop]
		if !ok || p.Value.Kind != ValueString || p.Value.Str == "" {
			continue
		}
		name := utils.AssetBaseName(p.Value.Str)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

type Entities struct {
	Name     string
	Type     string
	Entities []*Entity
}

func (e *Entities) ResourceName() string { return e.Name }
func (e *Entities) ResourceType() string { return e.Type }

func loadProperty(ctx *trb.LoadContext, off uint32) *Property {
	v, err := ctx.View(off, propertySize)
	if err != nil {
		return nil
	}
	p := &Property{DataType: v.U32(0x04)}
	p.Name, _ = ctx.PtrString(off)

	switch p.DataType {
	case 0:
		p.Value = Value{Kind: ValueU32, U32: v.U32(0x08)}
	case 1:
		p.Value = Value{Kind: ValueF32, F32: v.F32(0x08)}
	case 2:
		p.Value = Value{Kind: ValueBool, Bool: v.U32(0x08) != 0}
	case 3:
		p.Value = Value{Kind: ValueString}
		p.Value.Str, _ = ctx.PtrString(off + 0x08)
	default:
		p.Value = Value{Kind: ValueOffset}
		if target, ok := ctx.Resolve(off + 0x08); ok {
			p.Value.Offset = &target
		}
	}
	return p
}

func loadEntity(ctx *trb.LoadContext, off uint32) *Entity {
	v, err := ctx.View(off, entitySize)
	if err != nil {
		return nil
	}
	e := &Entity{
		Transform:  ctx.PtrMat4(off + 0x0C),
		Properties: make(map[string]*Property),
	}
	e.Type, _ = ctx.PtrString(off)

	if base, ok := ctx.Resolve(off + 0x08); ok {
		for _, p := range trb.LoadStructArray(ctx, base, v.U32(0x04), propertySize, loadProperty) {
			if _, seen := e.Properties[p.Name]; !seen {
				e.Order = append(e.Order, p.Name)
			}
			e.Properties[p.Name] = p
		}
	}
	return e
}

func loadEntities(ctx *trb.LoadContext, sym *trb.Symbol) (trb.Resource, error) {
	off := sym.Offset
	v, err := ctx.View(off, 0x08)
	if err != nil {
		return nil, err
	}

	res := &Entities{Name: sym.Name, Type: sym.Key(), Entities: []*Entity{}}
	if base, ok := ctx.Resolve(off); ok {
		if list := trb.LoadStructArray(ctx, base, v.U32(0x04), entitySize, loadEntity); list != nil {
			res.Entities = list
		}
	}

	ctx.Append(trb.KindEntity, res)
	return res, nil
}

// Resources returns the decoded entity tables in symbol order.
func Resources(ctx *trb.LoadContext) []*Entities {
	var out []*Entities
	for _, res := range ctx.List(trb.KindEntity) {
		if e, ok := res.(*Entities); ok {
			out = append(out, e)
		}
	}
	return out
}

func init() {
	trb.SetHandler(config.FormatAuto, "EntitiesMain", loadEntities)
}
