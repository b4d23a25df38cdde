package txr

import (
	"bytes"
	"image"
	"image/png"
	"io"

	"github.com/HugoSmits86/nativewebp"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"golang.org/x/image/draw"

	"github.com/mogaika/toshi_browser/utils/gltfutils"
)

func (t *Texture) EncodePNG(w io.Writer, level int) error {
	img, err := t.Decode(level)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

func (t *Texture) EncodeWebP(w io.Writer, level int) error {
	img, err := t.Decode(level)
	if err != nil {
		return err
	}
	return nativewebp.Encode(w, img, nil)
}

// Thumbnail scales the first mip level to fit a size x size box, keeping the aspect ratio.
func (t *Texture) Thumbnail(size int) (*image.NRGBA, error) {
	img, err := t.Decode(0)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() <= size && b.Dy() <= size {
		return img, nil
	}
	w, h := size, size
	if b.Dx() > b.Dy() {
		h = max(1, b.Dy()*size/b.Dx())
	} else {
		w = max(1, b.Dx()*size/b.Dy())
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, nil
}

type GLTFTextureExported struct {
	TextureIndex uint32
	ImageIndex   uint32
	SamplerIndex uint32
}

func (t *Texture) ExportGLTF(gltfCacher *gltfutils.GLTFCacher) (*GLTFTextureExported, error) {
	doc := gltfCacher.Doc
	gte := &GLTFTextureExported{}

	var pngBytes bytes.Buffer
	if err := t.EncodePNG(&pngBytes, 0); err != nil {
		return nil, errors.Wrapf(err, "Unable to decode texture %q", t.Name)
	}

	gte.SamplerIndex = uint32(len(doc.Samplers))
	doc.Samplers = append(doc.Samplers, &gltf.Sampler{
		Name:      t.Name + "_sampler",
		MinFilter: gltf.MinLinear,
		MagFilter: gltf.MagLinear,
		WrapS:     gltf.WrapRepeat,
		WrapT:     gltf.WrapRepeat,
	})

	var err error
	gte.ImageIndex, err = modeler.WriteImage(doc, t.Name+"_image", "image/png", &pngBytes)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to write gltf image")
	}

	gte.TextureIndex = uint32(len(doc.Textures))
	doc.Textures = append(doc.Textures, &gltf.Texture{
		Name:    t.Name,
		Sampler: gltf.Index(gte.SamplerIndex),
		Source:  gltf.Index(gte.ImageIndex),
	})
	return gte, nil
}
