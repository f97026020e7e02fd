package regs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valerio/go-dmg/dmg/addr"
)

func TestLCDControl(t *testing.T) {
	c := LCDControl(0x91)
	assert.True(t, c.Enabled())
	assert.True(t, c.UnsignedTiles())
	assert.True(t, c.BGEnabled())
	assert.False(t, c.WindowEnabled())
	assert.False(t, c.SpritesEnabled())
	assert.Equal(t, addr.TileMap0, c.BGTileMap())
	assert.Equal(t, uint8(8), c.SpriteHeight())

	c = LCDControl(LCDEnable | WindowMap | BGMap | ObjSize)
	assert.Equal(t, addr.TileMap1, c.BGTileMap())
	assert.Equal(t, addr.TileMap1, c.WindowTileMap())
	assert.Equal(t, uint8(16), c.SpriteHeight())
}

func TestTileAddress(t *testing.T) {
	unsigned := LCDControl(TileSelect)
	assert.Equal(t, uint16(0x0000), unsigned.TileAddress(0))
	assert.Equal(t, uint16(0x0FF0), unsigned.TileAddress(0xFF))

	signed := LCDControl(0)
	assert.Equal(t, uint16(0x1000), signed.TileAddress(0))
	assert.Equal(t, uint16(0x0800), signed.TileAddress(0x80))
	assert.Equal(t, uint16(0x17F0), signed.TileAddress(0x7F))
}

func TestTimerControl(t *testing.T) {
	tests := []struct {
		tac     uint8
		enabled bool
		period  int
	}{
		{0x00, false, 1024},
		{0x04, true, 1024},
		{0x05, true, 16},
		{0x06, true, 64},
		{0xFF, true, 256},
	}
	for _, tt := range tests {
		tac := TimerControl(tt.tac)
		assert.Equal(t, tt.enabled, tac.Enabled(), "TAC 0x%02X", tt.tac)
		assert.Equal(t, tt.period, tac.Period(), "TAC 0x%02X", tt.tac)
	}
}

func TestPending(t *testing.T) {
	f := &File{IF: 0xE5, IE: 0x04}
	assert.Equal(t, addr.TimerInterrupt, f.Pending())

	f.Request(addr.SerialInterrupt)
	f.IE |= 0x08
	assert.Equal(t, addr.TimerInterrupt|addr.SerialInterrupt, f.Pending())
}

func TestReset(t *testing.T) {
	f := &File{}
	f.Window.Interlace = true
	f.LY = 99
	f.Reset()

	assert.Equal(t, uint8(0), f.LY)
	assert.Equal(t, uint8(0xE1), f.IF)
	assert.Equal(t, LCDControl(0x91), f.LCDC)
	assert.Equal(t, [4]uint8{0, 3, 3, 3}, f.BGPalette)
	assert.Equal(t, [8]uint8{3, 3, 3, 3, 3, 3, 0, 0}, f.ObjPalette)
	assert.True(t, f.Window.Interlace, "display options survive a reset")
}
