package txr

import (
	"image"

	"github.com/pkg/errors"

	"github.com/mogaika/toshi_browser/config"
	"github.com/mogaika/toshi_browser/gx"
	"github.com/mogaika/toshi_browser/pack/trb"
)

const (
	textureRecordSize = 0x81
	textureHashCount  = 11
)

type Texture struct {
	Name          string
	Type          string
	Hash          uint32
	Hashes        [textureHashCount]uint32
	ImageFormat   gx.TexFormat
	PaletteFormat gx.TexPalette
	Image         []byte `json:"-"`
	Palette       []byte `json:"-"`
	ImageSize     uint32
	PaletteSize   uint32
	Width         uint16
	Height        uint16
	MipCount      uint8

	// CalculatedSize is the size of the mip chain the header describes.
	// It differs from ImageSize for textures with padding.
	CalculatedSize uint32
}

func (t *Texture) ResourceName() string { return t.Name }
func (t *Texture) ResourceType() string { return t.Type }

func loadTexture(ctx *trb.LoadContext, sym *trb.Symbol) (trb.Resource, error) {
	off := sym.Offset
	v, err := ctx.View(off, textureRecordSize)
	if err != nil {
		return nil, err
	}

	t := &Texture{
		Type:          sym.Key(),
		Hash:          v.U32(0x08),
		ImageFormat:   gx.TexFormat(v.U32(0x38)),
		PaletteFormat: gx.TexPalette(v.U32(0x3C)),
		ImageSize:     v.U32(0x54),
		Width:         v.U16(0x78),
		Height:        v.U16(0x7A),
		MipCount:      v.U8(0x80) + 1,
	}
	for i := range t.Hashes {
		t.Hashes[i] = v.U32(0x08 + uint32(i)*4)
	}
	t.Name, _ = ctx.PtrString(off + 0x04)
	t.CalculatedSize = gx.CalcMipChainSize(t.ImageFormat, uint32(t.Width), uint32(t.Height), uint32(t.MipCount))

	imageOff, err := ctx.MustResolve(off + 0x44)
	if err != nil {
		return nil, errors.Wrapf(err, "texture %q image", t.Name)
	}
	if t.Image, err = ctx.Reader().Slice(imageOff, t.ImageSize); err != nil {
		return nil, errors.Wrapf(err, "texture %q image", t.Name)
	}

	if t.ImageFormat.HasPalette() {
		if paletteOff, ok := ctx.Resolve(off + 0x4C); ok {
			size := gx.CalcPaletteSize(t.ImageFormat)
			if pal, err := ctx.Reader().Slice(paletteOff, size); err == nil {
				t.Palette = pal
				t.PaletteSize = size
			}
		}
	}

	ctx.RegisterKeyed(trb.KindTexture, t.Name, t)
	return t, nil
}

// Level returns the raw data of a mip level.
func (t *Texture) Level(level int) ([]byte, uint32, uint32, error) {
	if level < 0 || level >= int(t.MipCount) {
		return nil, 0, 0, errors.Errorf("mip level %d out of %d", level, t.MipCount)
	}
	w, h := uint32(t.Width), uint32(t.Height)
	var start uint32
	for i := 0; i < level; i++ {
		start += gx.CalcTextureSize(t.ImageFormat, w, h)
		w, h = max(w/2, 1), max(h/2, 1)
	}
	if start > uint32(len(t.Image)) {
		return nil, 0, 0, errors.Wrapf(gx.ErrTextureTruncated, "mip level %d", level)
	}
	return t.Image[start:], w, h, nil
}

// Decode converts a mip level into an image.
func (t *Texture) Decode(level int) (*image.NRGBA, error) {
	data, w, h, err := t.Level(level)
	if err != nil {
		return nil, err
	}
	return gx.DecodeTexture(&gx.Texture{
		Format:        t.ImageFormat,
		Width:         w,
		Height:        h,
		Data:          data,
		PaletteFormat: t.PaletteFormat,
		Palette:       t.Palette,
	})
}

func FindTexture(ctx *trb.LoadContext, name string) (*Texture, bool) {
	res, ok := ctx.Find(trb.KindTexture, name)
	if !ok {
		return nil, false
	}
	t, ok := res.(*Texture)
	return t, ok
}

func Textures(ctx *trb.LoadContext) []*Texture {
	keys := ctx.Keys(trb.KindTexture)
	out := make([]*Texture, 0, len(keys))
	for _, k := range keys {
		if t, ok := FindTexture(ctx, k); ok {
			out = append(out, t)
		}
	}
	return out
}

func init() {
	trb.SetHandler(config.FormatAuto, "ttex", loadTexture)
	trb.SetHandler(config.FormatV2, "xett", loadTexture)
}
