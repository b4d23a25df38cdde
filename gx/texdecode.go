package gx

import (
	"encoding/binary"
	"image"
	"image/color"

	"github.com/pkg/errors"
)

var (
	ErrUnsupportedTexture = errors.New("unsupported texture format")
	ErrTextureTruncated   = errors.New("texture data truncated")
)

func expand3(v uint16) uint8 { return uint8(v<<5 | v<<2 | v>>1) }

func rgb565(v uint16) color.NRGBA {
	return color.NRGBA{
		R: expand5(uint32(v>>11) & 0x1f),
		G: expand6(uint32(v>>5) & 0x3f),
		B: expand5(uint32(v) & 0x1f),
		A: 0xff,
	}
}

func rgb5a3(v uint16) color.NRGBA {
	if v&0x8000 != 0 {
		return color.NRGBA{
			R: expand5(uint32(v>>10) & 0x1f),
			G: expand5(uint32(v>>5) & 0x1f),
			B: expand5(uint32(v) & 0x1f),
			A: 0xff,
		}
	}
	return color.NRGBA{
		R: expand4(uint32(v>>8) & 0xf),
		G: expand4(uint32(v>>4) & 0xf),
		B: expand4(uint32(v) & 0xf),
		A: expand3((v >> 12) & 0x7),
	}
}

func ia8(v uint16) color.NRGBA {
	i := uint8(v)
	return color.NRGBA{R: i, G: i, B: i, A: uint8(v >> 8)}
}

func paletteColor(p TexPalette, v uint16) color.NRGBA {
	switch p {
	case TlutIA8:
		return ia8(v)
	case TlutRGB565:
		return rgb565(v)
	}
	return rgb5a3(v)
}

// Texture is the input of DecodeTexture. Pixel data is big endian and tiled.
type Texture struct {
	Format        TexFormat
	Width, Height uint32
	Data          []byte

	PaletteFormat TexPalette
	Palette       []byte
}

// DecodeTexture converts the first mip level into an image.
func DecodeTexture(t *Texture) (*image.NRGBA, error) {
	bw, bh, bs, ok := t.Format.BlockSize()
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedTexture, "%s", t.Format)
	}
	if t.Width == 0 || t.Height == 0 {
		return nil, errors.Errorf("texture has zero dimension %dx%d", t.Width, t.Height)
	}
	need := CalcTextureSize(t.Format, t.Width, t.Height)
	if uint32(len(t.Data)) < need {
		return nil, errors.Wrapf(ErrTextureTruncated, "%s %dx%d needs 0x%x bytes, got 0x%x",
			t.Format, t.Width, t.Height, need, len(t.Data))
	}

	var palette []color.NRGBA
	if t.Format.HasPalette() {
		entries := uint32(len(t.Palette)) / 2
		if limit := t.Format.PaletteEntries(); entries > limit {
			entries = limit
		}
		palette = make([]color.NRGBA, entries)
		for i := range palette {
			palette[i] = paletteColor(t.PaletteFormat, binary.BigEndian.Uint16(t.Palette[i*2:]))
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, int(t.Width), int(t.Height)))
	set := func(x, y uint32, c color.NRGBA) {
		if x < t.Width && y < t.Height {
			img.SetNRGBA(int(x), int(y), c)
		}
	}
	lookup := func(i uint32) color.NRGBA {
		if i < uint32(len(palette)) {
			return palette[i]
		}
		return color.NRGBA{}
	}

	blocksX := (t.Width + bw - 1) / bw
	blocksY := (t.Height + bh - 1) / bh
	for by := uint32(0); by < blocksY; by++ {
		for bx := uint32(0); bx < blocksX; bx++ {
			block := t.Data[(by*blocksX+bx)*bs:][:bs]
			x0, y0 := bx*bw, by*bh

			switch t.Format {
			case TexCMPR:
				for sub := uint32(0); sub < 4; sub++ {
					var colors [16]color.NRGBA
					decompressBlockCMPR(block[sub*8:], colors[:])
					sx, sy := x0+(sub%2)*4, y0+(sub/2)*4
					for i, c := range colors {
						set(sx+uint32(i)%4, sy+uint32(i)/4, c)
					}
				}
			case TexRGBA8:
				// AR and GB halves are stored as two 32 byte planes
				for i := uint32(0); i < 16; i++ {
					set(x0+i%4, y0+i/4, color.NRGBA{
						A: block[i*2], R: block[i*2+1],
						G: block[32+i*2], B: block[32+i*2+1],
					})
				}
			default:
				for i := uint32(0); i < bw*bh; i++ {
					x, y := x0+i%bw, y0+i/bw
					switch t.Format {
					case TexI4:
						v := block[i/2]
						if i%2 == 0 {
							v >>= 4
						}
						l := expand4(uint32(v & 0xf))
						set(x, y, color.NRGBA{R: l, G: l, B: l, A: l})
					case TexI8:
						l := block[i]
						set(x, y, color.NRGBA{R: l, G: l, B: l, A: l})
					case TexIA4:
						v := uint32(block[i])
						l := expand4(v & 0xf)
						set(x, y, color.NRGBA{R: l, G: l, B: l, A: expand4(v >> 4)})
					case TexIA8:
						set(x, y, ia8(binary.BigEndian.Uint16(block[i*2:])))
					case TexRGB565:
						set(x, y, rgb565(binary.BigEndian.Uint16(block[i*2:])))
					case TexRGB5A3:
						set(x, y, rgb5a3(binary.BigEndian.Uint16(block[i*2:])))
					case TexC4:
						v := block[i/2]
						if i%2 == 0 {
							v >>= 4
						}
						set(x, y, lookup(uint32(v&0xf)))
					case TexC8:
						set(x, y, lookup(uint32(block[i])))
					case TexC14X2:
						set(x, y, lookup(uint32(binary.BigEndian.Uint16(block[i*2:])&0x3fff)))
					}
				}
			}
		}
	}
	return img, nil
}

// decompressBlockCMPR decodes one 4x4 DXT1 style sub-block with big endian colors
// and most significant bits first selectors.
func decompressBlockCMPR(data []byte, out []color.NRGBA) {
	c0 := binary.BigEndian.Uint16(data[0:])
	c1 := binary.BigEndian.Uint16(data[2:])
	code := binary.BigEndian.Uint32(data[4:])

	var pal [4]color.NRGBA
	pal[0], pal[1] = rgb565(c0), rgb565(c1)
	if c0 > c1 {
		pal[2] = mixColor(pal[0], pal[1], 2, 1, 3)
		pal[3] = mixColor(pal[0], pal[1], 1, 2, 3)
	} else {
		pal[2] = mixColor(pal[0], pal[1], 1, 1, 2)
		pal[3] = color.NRGBA{}
	}

	for i := uint32(0); i < 16; i++ {
		out[i] = pal[(code>>(30-i*2))&3]
	}
}

func mixColor(a, b color.NRGBA, wa, wb, div uint32) color.NRGBA {
	mix := func(x, y uint8) uint8 { return uint8((uint32(x)*wa + uint32(y)*wb) / div) }
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}
