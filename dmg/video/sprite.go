package video

import "github.com/valerio/go-dmg/dmg/bit"

// MaxSprites is the number of entries in OAM.
const MaxSprites = 40

// Sprite is one decoded OAM entry. Y and X keep the hardware offsets (+16, +8).
type Sprite struct {
	Y         uint8
	X         uint8
	TileIndex uint8
	Flags     uint8

	PaletteOBP1 bool // false = OBP0, true = OBP1
	FlipX       bool
	FlipY       bool
	BehindBG    bool // only drawn over shade 0 of the background
}

// spriteAt decodes OAM entry i. In 8x16 mode the low bit of the tile index is ignored.
func spriteAt(oam []byte, i int, tall bool) Sprite {
	entry := oam[i*4 : i*4+4]
	s := Sprite{
		Y:         entry[0],
		X:         entry[1],
		TileIndex: entry[2],
		Flags:     entry[3],
	}
	if tall {
		s.TileIndex &= 0xFE
	}

	s.PaletteOBP1 = bit.IsSet(4, s.Flags)
	s.FlipX = bit.IsSet(5, s.Flags)
	s.FlipY = bit.IsSet(6, s.Flags)
	s.BehindBG = bit.IsSet(7, s.Flags)
	return s
}

// onLine reports whether the sprite covers scanline ly.
func (s Sprite) onLine(ly uint8, height int) bool {
	top := int(s.Y) - 16
	return int(ly) >= top && int(ly) < top+height
}

// visible is false for sprites parked off screen horizontally.
func (s Sprite) visible() bool {
	return s.X != 0 && s.X < Width+8
}

// Sprites decodes every OAM entry, for debugging views.
func Sprites(oam []byte, tall bool) []Sprite {
	out := make([]Sprite, 0, MaxSprites)
	for i := range MaxSprites {
		out = append(out, spriteAt(oam, i, tall))
	}
	return out
}

// Visible reports whether the sprite is on screen at all.
func (s Sprite) Visible(height int) bool {
	return s.visible() && int(s.Y)+height > 16 && s.Y < Height+16
}
