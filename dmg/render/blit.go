package render

import (
	"github.com/gdamore/tcell/v2"

	"github.com/valerio/go-dmg/dmg/video"
)

// upperHalf draws the top pixel as foreground and the bottom one as background,
// so one terminal cell shows two rows.
const upperHalf = '▀'

func tcellColor(p video.Palette, pixel uint8) tcell.Color {
	c := p.Color(pixel)
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

// Blit draws frame at (x0, y0), 160 columns by 72 rows.
func Blit(screen tcell.Screen, frame *video.Frame, p video.Palette, x0, y0 int) {
	for row := 0; row < video.Height/2; row++ {
		top, bottom := &frame[2*row], &frame[2*row+1]
		for x := range video.Width {
			style := tcell.StyleDefault.
				Foreground(tcellColor(p, top[x])).
				Background(tcellColor(p, bottom[x]))
			screen.SetContent(x0+x, y0+row, upperHalf, nil, style)
		}
	}
}

// drawText writes s starting at (x, y), clipped at maxX.
func drawText(screen tcell.Screen, x, y, maxX int, style tcell.Style, s string) {
	for _, r := range s {
		if x >= maxX {
			return
		}
		screen.SetContent(x, y, r, nil, style)
		x++
	}
}
