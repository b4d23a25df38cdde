package mat

import (
	"github.com/pkg/errors"

	"github.com/mogaika/toshi_browser/config"
	"github.com/mogaika/toshi_browser/pack/trb"
)

const textureEntrySize = 0x08

// Material lists the textures of a material in render pass order.
type Material struct {
	Name     string
	Type     string
	Hash     uint32
	Textures []string
}

func (m *Material) ResourceName() string { return m.Name }
func (m *Material) ResourceType() string { return m.Type }

func loadTextureName(ctx *trb.LoadContext, off uint32) *string {
	if name, ok := ctx.PtrString(off + 0x04); ok {
		return &name
	}
	return nil
}

func loadMaterial(ctx *trb.LoadContext, sym *trb.Symbol) (trb.Resource, error) {
	off := sym.Offset
	v, err := ctx.View(off, 0x18)
	if err != nil {
		return nil, err
	}

	m := &Material{
		Type:     sym.Key(),
		Hash:     v.U32(0x0C),
		Textures: []string{},
	}
	nameOff, err := ctx.MustResolve(off + 0x08)
	if err != nil {
		return nil, errors.Wrap(err, "material name")
	}
	if m.Name, err = ctx.String(nameOff); err != nil {
		return nil, err
	}

	if base, ok := ctx.Resolve(off + 0x14); ok {
		for _, name := range trb.LoadStructArray(ctx, base, v.U32(0x10), textureEntrySize, loadTextureName) {
			m.Textures = append(m.Textures, *name)
		}
	}

	ctx.RegisterKeyed(trb.KindMaterial, m.Name, m)
	return m, nil
}

func FindMaterial(ctx *trb.LoadContext, name string) (*Material, bool) {
	res, ok := ctx.Find(trb.KindMaterial, name)
	if !ok {
		return nil, false
	}
	m, ok := res.(*Material)
	return m, ok
}

func Materials(ctx *trb.LoadContext) []*Material {
	keys := ctx.Keys(trb.KindMaterial)
	out := make([]*Material, 0, len(keys))
	for _, k := range keys {
		if m, ok := FindMaterial(ctx, k); ok {
			out = append(out, m)
		}
	}
	return out
}

func init() {
	trb.SetHandler(config.FormatAuto, "tmat", loadMaterial)
	trb.SetHandler(config.FormatV2, "tamt", loadMaterial)
}
