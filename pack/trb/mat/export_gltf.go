package mat

import (
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/mogaika/toshi_browser/logger"
	"github.com/mogaika/toshi_browser/pack/trb"
	"github.com/mogaika/toshi_browser/pack/trb/txr"
	"github.com/mogaika/toshi_browser/utils/gltfutils"
)

type GLTFMaterialExported struct {
	MaterialId uint32
}

// TextureLookup finds a texture by name, searching further archives when the
// material's own archive has none.
type TextureLookup func(name string) (*txr.Texture, bool)

func ContextTextureLookup(ctx *trb.LoadContext) TextureLookup {
	return func(name string) (*txr.Texture, bool) { return txr.FindTexture(ctx, name) }
}

// ExportGLTF writes the material with its first texture as base color.
func (m *Material) ExportGLTF(lookup TextureLookup, gltfCacher *gltfutils.GLTFCacher) (*GLTFMaterialExported, error) {
	glme := &GLTFMaterialExported{}
	defer gltfCacher.AddCache("mat:"+m.Name, glme)

	gltfMaterial := &gltf.Material{
		Name:                 m.Name,
		DoubleSided:          true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{},
	}

	if len(m.Textures) != 0 {
		if t, ok := lookup(m.Textures[0]); ok {
			gte := gltfCacher.GetCachedOr("txr:"+t.Name, func() interface{} {
				gte, err := t.ExportGLTF(gltfCacher)
				if err != nil {
					logger.Log.Debug("texture export failed",
						zap.String("texture", t.Name), zap.String("material", m.Name), zap.Error(err))
					return (*txr.GLTFTextureExported)(nil)
				}
				return gte
			}).(*txr.GLTFTextureExported)

			if gte != nil {
				gltfMaterial.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{
					Index: gte.TextureIndex,
				}
			}
		}
	}

	glme.MaterialId = uint32(len(gltfCacher.Doc.Materials))
	gltfCacher.Doc.Materials = append(gltfCacher.Doc.Materials, gltfMaterial)
	return glme, nil
}
