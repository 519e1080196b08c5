package testpattern

import (
	"image"
	"image/color"
)

// barWidth is the width of the moving bar in pixels.
const barWidth = 24

// Generator produces synthetic camera frames: a color gradient background
// with a white bar sweeping across it, so motion is visible in the viewer.
//
// Generator is not safe for concurrent use; the producer loop owns it.
type Generator struct {
	width  int
	height int
	n      int
}

// New creates a [Generator] for frames of the given dimensions.
func New(width, height int) *Generator {
	return &Generator{width: width, height: height}
}

// Next returns the next frame in the sequence. Each returned frame is a
// fresh image; the caller may hand it to snapview.Server.Publish, which
// holds frames by reference.
func (g *Generator) Next() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, g.width, g.height))

	barX := (g.n * 4) % g.width
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			c := color.RGBA{
				R: uint8(x * 255 / g.width),
				G: uint8(y * 255 / g.height),
				B: uint8((g.n * 3) % 256),
				A: 255,
			}
			if dx := x - barX; dx >= 0 && dx < barWidth {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}

	g.n++
	return img
}
