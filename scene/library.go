package scene

import (
	"github.com/mogaika/toshi_browser/pack/trb"
	"github.com/mogaika/toshi_browser/pack/trb/mat"
	"github.com/mogaika/toshi_browser/pack/trb/mesh"
	"github.com/mogaika/toshi_browser/pack/trb/txr"
	"github.com/mogaika/toshi_browser/utils"
)

type ownedModel struct {
	model *mesh.Model
	ctx   *trb.LoadContext
}

// Library is the common model map of a level. Models of archives added later
// replace models with the same key.
type Library struct {
	models   map[string]ownedModel
	contexts []*trb.LoadContext
}

func NewLibrary() *Library {
	return &Library{models: make(map[string]ownedModel)}
}

func (lib *Library) Add(ctx *trb.LoadContext) {
	for _, m := range mesh.Models(ctx) {
		lib.models[utils.ResourceKey(m.Name)] = ownedModel{model: m, ctx: ctx}
	}
	lib.contexts = append(lib.contexts, ctx)
}

func (lib *Library) Len() int { return len(lib.models) }

// Find looks a model up in the cell archive first, then in the common map.
// The returned context is the archive the model was decoded from.
func (lib *Library) Find(cell *trb.LoadContext, name string) (*mesh.Model, *trb.LoadContext, bool) {
	if name == "" {
		return nil, nil, false
	}
	if cell != nil {
		if m, ok := mesh.FindMesh(cell, name); ok {
			return m, cell, true
		}
	}
	if om, ok := lib.models[utils.ResourceKey(name)]; ok {
		return om.model, om.ctx, true
	}
	return nil, nil, false
}

// search returns the given contexts followed by the common archives, latest first.
func (lib *Library) search(first ...*trb.LoadContext) []*trb.LoadContext {
	out := make([]*trb.LoadContext, 0, len(first)+len(lib.contexts))
	for _, ctx := range first {
		if ctx != nil {
			out = append(out, ctx)
		}
	}
	for i := len(lib.contexts) - 1; i >= 0; i-- {
		out = append(out, lib.contexts[i])
	}
	return out
}

// MaterialSource resolves materials and textures through the given archives and then the common ones.
func (lib *Library) MaterialSource(first ...*trb.LoadContext) mesh.MaterialSource {
	chain := lib.search(first...)
	return mesh.MaterialSource{
		Materials: func(name string) (*mat.Material, bool) {
			for _, ctx := range chain {
				if m, ok := mat.FindMaterial(ctx, name); ok {
					return m, true
				}
			}
			return nil, false
		},
		Textures: func(name string) (*txr.Texture, bool) {
			for _, ctx := range chain {
				if t, ok := txr.FindTexture(ctx, name); ok {
					return t, true
				}
			}
			return nil, false
		},
	}
}
