package gx

import "fmt"

type TexFormat uint32

const (
	TexI4     TexFormat = 0x0
	TexI8     TexFormat = 0x1
	TexIA4    TexFormat = 0x2
	TexIA8    TexFormat = 0x3
	TexRGB565 TexFormat = 0x4
	TexRGB5A3 TexFormat = 0x5
	TexRGBA8  TexFormat = 0x6
	TexC4     TexFormat = 0x8
	TexC8     TexFormat = 0x9
	TexC14X2  TexFormat = 0xA
	TexCMPR   TexFormat = 0xE
)

func (f TexFormat) String() string {
	switch f {
	case TexI4:
		return "I4"
	case TexI8:
		return "I8"
	case TexIA4:
		return "IA4"
	case TexIA8:
		return "IA8"
	case TexRGB565:
		return "RGB565"
	case TexRGB5A3:
		return "RGB5A3"
	case TexRGBA8:
		return "RGBA8"
	case TexC4:
		return "C4"
	case TexC8:
		return "C8"
	case TexC14X2:
		return "C14X2"
	case TexCMPR:
		return "CMPR"
	}
	return fmt.Sprintf("TEXFMT_0x%x", uint32(f))
}

type TexPalette uint32

const (
	TlutIA8    TexPalette = 0
	TlutRGB565 TexPalette = 1
	TlutRGB5A3 TexPalette = 2
)

func (p TexPalette) String() string {
	switch p {
	case TlutIA8:
		return "IA8"
	case TlutRGB565:
		return "RGB565"
	case TlutRGB5A3:
		return "RGB5A3"
	}
	return fmt.Sprintf("TLUT_%d", uint32(p))
}

// HasPalette reports whether pixels of the format are palette indices.
func (f TexFormat) HasPalette() bool {
	return f == TexC4 || f == TexC8 || f == TexC14X2
}

// PaletteEntries is the number of palette entries an indexed format addresses.
func (f TexFormat) PaletteEntries() uint32 {
	switch f {
	case TexC4:
		return 16
	case TexC8:
		return 256
	case TexC14X2:
		return 16384
	}
	return 0
}

// CalcPaletteSize returns the palette byte size. Every entry is 16 bits wide.
func CalcPaletteSize(f TexFormat) uint32 {
	return f.PaletteEntries() * 2
}

// BlockSize returns tile width, tile height and tile byte size.
func (f TexFormat) BlockSize() (w, h, size uint32, ok bool) {
	switch f {
	case TexI4, TexC4, TexCMPR:
		return 8, 8, 32, true
	case TexI8, TexIA4, TexC8:
		return 8, 4, 32, true
	case TexIA8, TexRGB565, TexRGB5A3, TexC14X2:
		return 4, 4, 32, true
	case TexRGBA8:
		return 4, 4, 64, true
	}
	return 0, 0, 0, false
}

// CalcTextureSize returns the byte size of one mip level. Dimensions are rounded up to whole tiles.
func CalcTextureSize(f TexFormat, width, height uint32) uint32 {
	bw, bh, bs, ok := f.BlockSize()
	if !ok {
		return 0
	}
	nx := (width + bw - 1) / bw
	ny := (height + bh - 1) / bh
	return nx * ny * bs
}

// CalcMipChainSize sums CalcTextureSize over mipCount levels, each half the size of the previous one.
func CalcMipChainSize(f TexFormat, width, height, mipCount uint32) uint32 {
	if mipCount == 0 {
		mipCount = 1
	}
	var size uint32
	for i := uint32(0); i < mipCount; i++ {
		size += CalcTextureSize(f, width, height)
		if width > 1 {
			width /= 2
		}
		if height > 1 {
			height /= 2
		}
	}
	return size
}
