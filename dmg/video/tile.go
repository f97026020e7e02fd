package video

import "github.com/valerio/go-dmg/dmg/bit"

// TileRow is one 8 pixel row of a tile, stored as two bit planes.
//
//	Low  (0x3C): 0 0 1 1 1 1 0 0
//	High (0x7E): 0 1 1 1 1 1 1 0
//	            -----------------
//	Colors:      0 2 3 3 3 3 2 0
//
// Bit 7 of each plane is the leftmost pixel.
type TileRow struct {
	Low  byte
	High byte
}

// fetchRow reads the row at offset into VRAM.
func fetchRow(vram []byte, offset uint16) TileRow {
	return TileRow{Low: vram[offset], High: vram[offset+1]}
}

// Pixel returns the color index (0-3) of pixel x, 0 being the leftmost.
func (t TileRow) Pixel(x int) uint8 {
	index := uint8(7 - x)
	return bit.Value(index, t.Low) | bit.Value(index, t.High)<<1
}

// PixelFlipped is Pixel with the row mirrored horizontally.
func (t TileRow) PixelFlipped(x int) uint8 {
	index := uint8(x)
	return bit.Value(index, t.Low) | bit.Value(index, t.High)<<1
}
