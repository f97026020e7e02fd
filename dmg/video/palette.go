package video

import "image/color"

// Palette maps shades to colors for each layer: sprites with OBP0, sprites with
// OBP1 and the background. Entries are 15 bit BGR colors.
type Palette [3][4]uint16

// layers of a Palette
const (
	paletteOBP0 = iota
	paletteOBP1
	paletteBG
)

var (
	// GreyPalette is used for titles without a known palette.
	GreyPalette = uniform(0x7FFF, 0x5294, 0x294A, 0x0000)

	redPalette    = [4]uint16{0x7FFF, 0x329F, 0x001F, 0x0000}
	greenPalette  = [4]uint16{0x7FFF, 0x3FE6, 0x0200, 0x0000}
	brownPalette  = [4]uint16{0x7FFF, 0x7E10, 0x48E7, 0x0000}
	yellowPalette = [4]uint16{0x7FFF, 0x7FE0, 0x7C00, 0x0000}
	orangePalette = [4]uint16{0x7FFF, 0x7E60, 0x7C00, 0x0000}
)

func uniform(c0, c1, c2, c3 uint16) Palette {
	row := [4]uint16{c0, c1, c2, c3}
	return Palette{row, row, row}
}

// titlePalettes is keyed by the sum of the title bytes of the cartridge header.
var titlePalettes = map[uint8]Palette{}

func init() {
	register := func(p Palette, checksums ...uint8) {
		for _, sum := range checksums {
			titlePalettes[sum] = p
		}
	}

	register(Palette{redPalette, greenPalette, {0x7FFF, 0x7EAC, 0x40C0, 0x0000}},
		0x01, 0x10, 0x29, 0x52, 0x5D, 0x68, 0x6D, 0xF6)
	register(Palette{greenPalette, brownPalette, brownPalette}, 0x14)
	register(Palette{yellowPalette, yellowPalette, yellowPalette}, 0x15, 0xDB, 0x95)
	register(Palette{brownPalette, brownPalette, orangePalette}, 0x19)
	register(Palette{orangePalette, orangePalette, orangePalette}, 0x71, 0xFF)
	register(Palette{brownPalette, redPalette, redPalette}, 0x61, 0x45, 0xD8)
	register(Palette{brownPalette, redPalette, greenPalette}, 0x8B)
	register(Palette{
		{0x7D8A, 0x6800, 0x3000, 0x0000},
		{0x001F, 0x7FFF, 0x7FEF, 0x021F},
		{0x527F, 0x7FE0, 0x0180, 0x0000},
	}, 0x27, 0x49, 0x5C, 0xB3)
	register(Palette{
		{0x7F08, 0x7F40, 0x48E0, 0x2400},
		{0x7FFF, 0x2EFF, 0x7C00, 0x001F},
		{0x7FFF, 0x463B, 0x2951, 0x0000},
	}, 0x18, 0x6A, 0x4B, 0x6B)
	register(Palette{
		{0x7FFF, 0x03E0, 0x1A00, 0x0120},
		{0x7FFF, 0x329F, 0x001F, 0x001F},
		brownPalette,
	}, 0x70)
}

// PaletteFor picks the colors for a cartridge from its title checksum. The
// second result is false when the grey fallback was used.
func PaletteFor(titleChecksum uint8) (Palette, bool) {
	p, ok := titlePalettes[titleChecksum]
	if !ok {
		return GreyPalette, false
	}
	return p, true
}

// Color maps a composited pixel to RGBA.
func (p Palette) Color(pixel uint8) color.RGBA {
	layer := paletteOBP0
	switch {
	case pixel&BGLayer != 0:
		layer = paletteBG
	case pixel&ObjPalette1 != 0:
		layer = paletteOBP1
	}
	return bgr555(p[layer][pixel&ShadeMask])
}

// bgr555 expands a 15 bit color, red in the low bits.
func bgr555(c uint16) color.RGBA {
	expand := func(v uint16) uint8 {
		v &= 0x1F
		return uint8(v<<3 | v>>2)
	}
	return color.RGBA{R: expand(c), G: expand(c >> 5), B: expand(c >> 10), A: 0xFF}
}
