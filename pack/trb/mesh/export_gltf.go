package mesh

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/mogaika/toshi_browser/gx"
	"github.com/mogaika/toshi_browser/logger"
	"github.com/mogaika/toshi_browser/pack/trb"
	"github.com/mogaika/toshi_browser/pack/trb/mat"
	"github.com/mogaika/toshi_browser/pack/trb/txr"
	"github.com/mogaika/toshi_browser/utils/gltfutils"
)

// MaterialSource resolves mesh info names to materials and their textures.
type MaterialSource struct {
	Materials func(name string) (*mat.Material, bool)
	Textures  mat.TextureLookup
}

func ContextMaterialSource(ctx *trb.LoadContext) MaterialSource {
	return MaterialSource{
		Materials: func(name string) (*mat.Material, bool) { return mat.FindMaterial(ctx, name) },
		Textures:  mat.ContextTextureLookup(ctx),
	}
}

type GLTFModelExported struct {
	// mesh index per exported group
	Meshes []uint32
	// joint nodes, roots are listed in SkeletonRoots
	JointNodes    []uint32
	SkeletonRoots []uint32
}

func (ms MaterialSource) materialIndex(gltfCacher *gltfutils.GLTFCacher, name string) *uint32 {
	if ms.Materials == nil || name == "" {
		return nil
	}
	m, ok := ms.Materials(name)
	if !ok {
		return nil
	}
	if cached, ok := gltfCacher.GetCached("mat:" + m.Name); ok {
		return gltf.Index(cached.(*mat.GLTFMaterialExported).MaterialId)
	}
	lookup := ms.Textures
	if lookup == nil {
		lookup = func(string) (*txr.Texture, bool) { return nil, false }
	}
	glme, err := m.ExportGLTF(lookup, gltfCacher)
	if err != nil {
		return nil
	}
	return gltf.Index(glme.MaterialId)
}

func writePrimitive(doc *gltf.Document, vd *gx.VertexData) *gltf.Primitive {
	n := vd.VertexCount
	attributes := make(map[string]uint32)

	positions := make([][3]float32, n)
	for i := uint32(0); i < n; i++ {
		positions[i] = vd.Position(i)
	}
	attributes["POSITION"] = modeler.WritePosition(doc, positions)

	if vd.Has(gx.AttrNRM) {
		normals := make([][3]float32, n)
		for i := uint32(0); i < n; i++ {
			normals[i] = vd.Normal(i)
		}
		attributes["NORMAL"] = modeler.WriteNormal(doc, normals)
	}
	for layer := 0; layer < 2; layer++ {
		if !vd.Has(gx.AttrTEX0 + gx.Attr(layer)) {
			continue
		}
		uvs := make([][2]float32, n)
		for i := uint32(0); i < n; i++ {
			uvs[i] = vd.TexCoord(layer, i)
		}
		attributes[fmt.Sprintf("TEXCOORD_%d", layer)] = modeler.WriteTextureCoord(doc, uvs)
	}
	if vd.Has(gx.AttrCLR0) {
		colors := make([][4]uint8, n)
		for i := uint32(0); i < n; i++ {
			colors[i] = vd.Color(0, i)
		}
		attributes["COLOR_0"] = modeler.WriteColor(doc, colors)
	}

	indices := modeler.WriteIndices(doc, vd.Indices)
	return &gltf.Primitive{
		Indices:    &indices,
		Attributes: attributes,
	}
}

// ExportGLTF writes one glTF mesh per mesh info that has decodable display lists.
func (m *Model) ExportGLTF(ctx *trb.LoadContext, materials MaterialSource, gltfCacher *gltfutils.GLTFCacher) (*GLTFModelExported, error) {
	doc := gltfCacher.Doc
	log := logger.Log.With(zap.String("model", m.Name))
	tfme := &GLTFModelExported{}

	for iGroup, mi := range m.Groups {
		material := materials.materialIndex(gltfCacher, mi.Name)

		var primitives []*gltf.Primitive
		for iDl := range mi.DisplayLists {
			vd, err := mi.DecodeVertices(ctx, iDl)
			if err != nil {
				log.Debug("display list skipped", zap.Int("group", iGroup), zap.Int("dl", iDl), zap.Error(err))
				continue
			}
			if len(vd.Indices) == 0 {
				continue
			}
			p := writePrimitive(doc, vd)
			p.Material = material
			primitives = append(primitives, p)
		}
		if len(primitives) == 0 {
			continue
		}

		tfme.Meshes = append(tfme.Meshes, uint32(len(doc.Meshes)))
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{
			Name:       fmt.Sprintf("%s_g%d", m.Name, iGroup),
			Primitives: primitives,
		})
	}

	if m.Skeleton != nil {
		tfme.JointNodes = make([]uint32, len(m.Skeleton.Joints))
		for i, j := range m.Skeleton.Joints {
			tfme.JointNodes[i] = uint32(len(doc.Nodes))
			doc.Nodes = append(doc.Nodes, &gltf.Node{
				Name:   j.Name,
				Matrix: j.Transform,
			})
		}
		for i, j := range m.Skeleton.Joints {
			if j.Parent < 0 || int(j.Parent) >= len(tfme.JointNodes) || int(j.Parent) == i {
				tfme.SkeletonRoots = append(tfme.SkeletonRoots, tfme.JointNodes[i])
				continue
			}
			parent := doc.Nodes[tfme.JointNodes[j.Parent]]
			parent.Children = append(parent.Children, tfme.JointNodes[i])
		}
	}

	return tfme, nil
}

// ExportGLTFDefault exports the model alone under a single root node.
func (m *Model) ExportGLTFDefault(ctx *trb.LoadContext) (*gltf.Document, error) {
	gltfCacher := gltfutils.NewCacher()
	doc := gltfCacher.Doc

	tfme, err := m.ExportGLTF(ctx, ContextMaterialSource(ctx), gltfCacher)
	if err != nil {
		return nil, err
	}

	root := gltfutils.AddRootNode(doc, &gltf.Node{Name: m.Name})
	for _, mesh := range tfme.Meshes {
		gltfutils.AddChildNode(doc, root, &gltf.Node{
			Name: doc.Meshes[mesh].Name,
			Mesh: gltf.Index(mesh),
		})
	}
	doc.Nodes[root].Children = append(doc.Nodes[root].Children, tfme.SkeletonRoots...)
	return doc, nil
}
