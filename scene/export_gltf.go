package scene

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/mogaika/toshi_browser/logger"
	"github.com/mogaika/toshi_browser/pack/trb/mesh"
	"github.com/mogaika/toshi_browser/utils/gltfutils"
)

func (s *Scene) exportModel(gltfCacher *gltfutils.GLTFCacher, p *Placement) (*mesh.GLTFModelExported, bool, error) {
	key := fmt.Sprintf("mdl:%p", p.Model)
	if cached, ok := gltfCacher.GetCached(key); ok {
		return cached.(*mesh.GLTFModelExported), false, nil
	}
	tfme, err := p.Model.ExportGLTF(p.ctx, s.library.MaterialSource(p.cell, p.ctx), gltfCacher)
	if err != nil {
		return nil, false, err
	}
	gltfCacher.AddCache(key, tfme)
	return tfme, true, nil
}

// ExportGLTF writes every placement as a node holding the meshes of its model.
// Models are exported once and shared between placements. Joints of a model
// hang under its first placement.
func (s *Scene) ExportGLTF() (*gltf.Document, error) {
	gltfCacher := gltfutils.NewCacher()
	doc := gltfCacher.Doc

	root := gltfutils.AddRootNode(doc, &gltf.Node{Name: s.Path})
	for i, p := range s.Placements {
		tfme, first, err := s.exportModel(gltfCacher, p)
		if err != nil {
			logger.Log.Warn("model export failed", zap.String("model", p.Name), zap.Error(err))
			continue
		}

		node := gltfutils.AddChildNode(doc, root, &gltf.Node{
			Name:   fmt.Sprintf("%s_%d", p.Name, i),
			Matrix: p.Transform,
		})
		for _, m := range tfme.Meshes {
			gltfutils.AddChildNode(doc, node, &gltf.Node{
				Name: doc.Meshes[m].Name,
				Mesh: gltf.Index(m),
			})
		}
		if first {
			doc.Nodes[node].Children = append(doc.Nodes[node].Children, tfme.SkeletonRoots...)
		}
	}
	return doc, nil
}
