package txr

import (
	"bytes"
	"encoding/binary"
	"image/color"
	"image/png"
	"testing"

	"github.com/mogaika/toshi_browser/gx"
	"github.com/mogaika/toshi_browser/pack/trb"
	"github.com/mogaika/toshi_browser/pack/trb/trbtest"
	"github.com/mogaika/toshi_browser/utils/gltfutils"
)

type textureSpec struct {
	name          string
	format        gx.TexFormat
	width, height uint16
	mips          uint8
	image         []byte
	palette       []byte
}

func writeTexture(s *trbtest.Section, def textureSpec) uint32 {
	var img, pal uint32
	if def.image != nil {
		img = s.Write(def.image)
	}
	if def.palette != nil {
		pal = s.Write(def.palette)
	}

	rec := s.Alloc(0x81)
	s.PtrString(rec+0x04, def.name)
	s.PutU32(rec+0x08, 0xCAFE)
	s.PutU32(rec+0x38, uint32(def.format))
	s.PutU32(rec+0x3C, uint32(gx.TlutRGB565))
	if def.image != nil {
		s.Ptr(rec+0x44, s, img)
		s.PutU32(rec+0x54, uint32(len(def.image)))
	}
	if def.palette != nil {
		s.Ptr(rec+0x4C, s, pal)
	}
	s.PutU16(rec+0x78, def.width)
	s.PutU16(rec+0x7A, def.height)
	s.PutU8(rec+0x80, def.mips-1)
	return rec
}

func redRGB565(width, height int) []byte {
	data := make([]byte, width*height*2)
	for i := 0; i < width*height; i++ {
		binary.BigEndian.PutUint16(data[i*2:], 0xF800)
	}
	return data
}

func load(t *testing.T, b *trbtest.Builder, v2 bool) *trb.LoadContext {
	t.Helper()
	data := b.BuildV1()
	if v2 {
		data = b.BuildV2()
	}
	ctx, _, err := trb.Load("test.trb", data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return ctx
}

func TestLoadTexture_Decode(t *testing.T) {
	b := trbtest.New(binary.BigEndian)
	s := b.Section("main")
	// 8x8 level followed by a 4x4 one
	image := append(redRGB565(8, 8), redRGB565(4, 4)...)
	b.Symbol("", "ttex", s, writeTexture(s, textureSpec{
		name: "Crate.tga", format: gx.TexRGB565, width: 8, height: 8, mips: 2, image: image,
	}))

	ctx := load(t, b, false)
	tex, ok := FindTexture(ctx, "crate")
	if !ok {
		t.Fatal("texture not registered")
	}
	if tex.Hash != 0xCAFE || tex.Hashes[0] != 0xCAFE || tex.MipCount != 2 {
		t.Errorf("texture = %+v", tex)
	}
	if tex.ImageSize != uint32(len(image)) || tex.CalculatedSize != tex.ImageSize {
		t.Errorf("image size %d calculated %d", tex.ImageSize, tex.CalculatedSize)
	}
	if tex.Palette != nil || tex.PaletteSize != 0 {
		t.Error("direct color texture must have no palette")
	}

	img, err := tex.Decode(1)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 4 {
		t.Errorf("mip 1 bounds = %v", img.Bounds())
	}
	if c := img.NRGBAAt(2, 2); c != (color.NRGBA{R: 0xff, A: 0xff}) {
		t.Errorf("pixel = %v", c)
	}
	if _, err := tex.Decode(2); err == nil {
		t.Error("decoding a missing mip level must fail")
	}

	var buf bytes.Buffer
	if err := tex.EncodePNG(&buf, 0); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if decoded.Bounds().Dx() != 8 {
		t.Errorf("png bounds = %v", decoded.Bounds())
	}

	thumb, err := tex.Thumbnail(2)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if thumb.Bounds().Dx() != 2 || thumb.Bounds().Dy() != 2 {
		t.Errorf("thumbnail bounds = %v", thumb.Bounds())
	}
}

func TestLoadTexture_Palette(t *testing.T) {
	palette := make([]byte, gx.CalcPaletteSize(gx.TexC8))
	binary.BigEndian.PutUint16(palette[2:], 0x07E0)

	b := trbtest.New(binary.LittleEndian)
	s := b.Section("main")
	b.Symbol("ttex", "a", s, writeTexture(s, textureSpec{
		name: "indexed", format: gx.TexC8, width: 8, height: 4, mips: 1,
		image: append([]byte{1}, make([]byte, 31)...), palette: palette,
	}))
	b.Symbol("ttex", "b", s, writeTexture(s, textureSpec{
		name: "indexed_nopal", format: gx.TexC8, width: 8, height: 4, mips: 1,
		image: make([]byte, 32),
	}))
	b.Symbol("ttex", "c", s, writeTexture(s, textureSpec{
		name: "direct_pal", format: gx.TexRGB565, width: 4, height: 4, mips: 1,
		image: redRGB565(4, 4), palette: palette,
	}))

	ctx := load(t, b, true)
	if len(Textures(ctx)) != 3 {
		t.Fatalf("textures = %d", len(Textures(ctx)))
	}

	tex, _ := FindTexture(ctx, "indexed")
	if tex.PaletteSize != 512 || len(tex.Palette) != 512 {
		t.Errorf("palette size %d len %d", tex.PaletteSize, len(tex.Palette))
	}
	img, err := tex.Decode(0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c := img.NRGBAAt(0, 0); c != (color.NRGBA{G: 0xff, A: 0xff}) {
		t.Errorf("pixel = %v", c)
	}

	tex, _ = FindTexture(ctx, "indexed_nopal")
	if tex.Palette != nil || tex.PaletteSize != 0 {
		t.Error("absent palette pointer must leave the palette empty")
	}

	tex, _ = FindTexture(ctx, "direct_pal")
	if tex.Palette != nil || tex.PaletteSize != 0 {
		t.Error("palette of a direct color format must be ignored")
	}
}

func TestLoadTexture_MissingImage(t *testing.T) {
	b := trbtest.New(binary.BigEndian)
	s := b.Section("main")
	b.Symbol("xett", "a", s, writeTexture(s, textureSpec{name: "broken", format: gx.TexRGB565, width: 4, height: 4, mips: 1}))

	ctx, res, err := trb.Load("test.trb", b.BuildV2())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(res) != 0 {
		t.Errorf("texture without image must be dropped, got %d", len(res))
	}
	if _, ok := FindTexture(ctx, "broken"); ok {
		t.Error("dropped texture must not be registered")
	}
}

func TestExportGLTF(t *testing.T) {
	b := trbtest.New(binary.BigEndian)
	s := b.Section("main")
	b.Symbol("", "ttex", s, writeTexture(s, textureSpec{
		name: "red", format: gx.TexRGB565, width: 4, height: 4, mips: 1, image: redRGB565(4, 4),
	}))
	ctx := load(t, b, false)
	tex, _ := FindTexture(ctx, "red")

	cacher := gltfutils.NewCacher()
	gte, err := tex.ExportGLTF(cacher)
	if err != nil {
		t.Fatalf("ExportGLTF: %v", err)
	}
	doc := cacher.Doc
	if len(doc.Textures) != 1 || len(doc.Images) != 1 || len(doc.Samplers) != 1 {
		t.Fatalf("textures %d images %d samplers %d", len(doc.Textures), len(doc.Images), len(doc.Samplers))
	}
	if gte.TextureIndex != 0 || doc.Images[gte.ImageIndex].MimeType != "image/png" {
		t.Errorf("exported = %+v", gte)
	}
}
