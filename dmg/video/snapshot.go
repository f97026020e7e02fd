package video

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// Scale upsizes img by an integer factor with nearest neighbour sampling so
// pixels stay sharp.
func Scale(img image.Image, factor int) image.Image {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// SavePNG writes the current frame of fb as a PNG, scaled by factor.
func SavePNG(path string, fb *FrameBuffer, p Palette, factor int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, Scale(fb.Image(p), factor)); err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", path, err)
	}
	return f.Close()
}
