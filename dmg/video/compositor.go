// Package video turns VRAM, OAM and the LCD registers into scanlines of
// palette-mapped pixels, and collects them into frames.
package video

import (
	"github.com/valerio/go-dmg/dmg/regs"
)

// Memory exposes the video memory regions the compositor reads.
type Memory interface {
	VRAM() []byte
	OAM() []byte
}

// LineSink receives every composited scanline.
type LineSink interface {
	DrawLine(line uint8, pixels *Line)
}

// LineSinkFunc adapts a function to LineSink.
type LineSinkFunc func(line uint8, pixels *Line)

func (f LineSinkFunc) DrawLine(line uint8, pixels *Line) { f(line, pixels) }

// windowMaxX is the largest WX that still shows part of the window.
const windowMaxX = 166

// Compositor draws the background, window and sprites for the current LY.
// It is invoked by the timing coordinator on each entry into pixel transfer.
type Compositor struct {
	mem  Memory
	regs *regs.File
	sink LineSink

	line Line
}

// NewCompositor creates a compositor. Lines are dropped while sink is nil.
func NewCompositor(mem Memory, r *regs.File, sink LineSink) *Compositor {
	return &Compositor{mem: mem, regs: r, sink: sink}
}

// SetSink replaces the line sink.
func (c *Compositor) SetSink(sink LineSink) {
	c.sink = sink
}

// DrawLine composites scanline LY and hands it to the sink.
func (c *Compositor) DrawLine() {
	if c.sink == nil {
		return
	}

	r := c.regs
	w := &r.Window

	if w.SkipFrames && !w.SkipPhase {
		return
	}

	if w.Interlace && (r.LY&1 == 1) == w.InterlacePhase {
		// the window keeps counting lines it did not draw
		if c.windowVisible() {
			w.Line++
		}
		return
	}

	c.line = Line{}

	if r.LCDC.BGEnabled() {
		c.drawBackground()
	}

	if c.windowVisible() {
		c.drawWindow()
		w.Line++
	}

	if r.LCDC.SpritesEnabled() {
		c.drawSprites()
	}

	c.sink.DrawLine(r.LY, &c.line)
}

func (c *Compositor) windowVisible() bool {
	r := c.regs
	return r.LCDC.WindowEnabled() && r.LY >= r.Window.Y && r.WX <= windowMaxX
}

func (c *Compositor) drawBackground() {
	r := c.regs
	vram := c.mem.VRAM()

	y := r.LY + r.SCY
	mapRow := r.LCDC.BGTileMap() + uint16(y>>3)*32
	rowOffset := uint16(y&7) * 2

	for x := 0; x < Width; x++ {
		bgX := uint8(x) + r.SCX
		index := vram[mapRow+uint16(bgX>>3)]
		row := fetchRow(vram, r.LCDC.TileAddress(index)+rowOffset)

		c.line[x] = r.BGPalette[row.Pixel(int(bgX&7))] | BGLayer
	}
}

func (c *Compositor) drawWindow() {
	r := c.regs
	vram := c.mem.VRAM()

	wl := r.Window.Line
	mapRow := r.LCDC.WindowTileMap() + uint16(wl>>3)*32
	rowOffset := uint16(wl&7) * 2

	start := int(r.WX) - 7
	if start < 0 {
		start = 0
	}

	for x := start; x < Width; x++ {
		winX := uint8(x - int(r.WX) + 7)
		index := vram[mapRow+uint16(winX>>3)]
		row := fetchRow(vram, r.LCDC.TileAddress(index)+rowOffset)

		c.line[x] = r.BGPalette[row.Pixel(int(winX&7))] | BGLayer
	}
}

// drawSprites walks OAM backwards so lower indices end up on top. There is no
// per-line sprite limit.
func (c *Compositor) drawSprites() {
	r := c.regs
	vram := c.mem.VRAM()
	oam := c.mem.OAM()

	tall := r.LCDC.TallSprites()
	height := int(r.LCDC.SpriteHeight())

	for i := MaxSprites - 1; i >= 0; i-- {
		s := spriteAt(oam, i, tall)
		if !s.onLine(r.LY, height) || !s.visible() {
			continue
		}

		py := int(r.LY) - (int(s.Y) - 16)
		if s.FlipY {
			py = height - 1 - py
		}
		row := fetchRow(vram, uint16(s.TileIndex)*16+uint16(py*2))

		palette := r.ObjPalette[0:4]
		layer := uint8(0)
		if s.PaletteOBP1 {
			palette = r.ObjPalette[4:8]
			layer = ObjPalette1
		}

		left := int(s.X) - 8
		for col := 0; col < 8; col++ {
			x := left + col
			if x < 0 || x >= Width {
				continue
			}

			var color uint8
			if s.FlipX {
				color = row.PixelFlipped(col)
			} else {
				color = row.Pixel(col)
			}
			if color == 0 {
				continue
			}
			if s.BehindBG && c.line[x]&ShadeMask != 0 {
				continue
			}

			c.line[x] = palette[color] | layer
		}
	}
}
