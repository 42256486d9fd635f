package render

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"unicode/utf8"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/noah-isme/backend-struk/internal/receipt"
)

const (
	glyphWidth = 7
	lineHeight = 16
	padding    = 12
	// Scale is the upscaling factor applied to the rasterised receipt.
	Scale = 2
)

var ink = image.NewUniform(color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff})

// PNG rasterises the receipt onto a white canvas.
func PNG(w io.Writer, r receipt.Receipt) error {
	return png.Encode(w, Rasterize(Lines(r)))
}

// Rasterize draws lines with the 7x13 bitmap face and scales the result up.
func Rasterize(lines []Line) image.Image {
	width := Width*glyphWidth + 2*padding
	height := len(lines)*lineHeight + 2*padding
	base := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(base, base.Bounds(), image.White, image.Point{}, xdraw.Src)

	d := &font.Drawer{Dst: base, Src: ink, Face: basicfont.Face7x13}
	for i, line := range lines {
		x := padding
		if line.Align == Center {
			x += (Width - utf8.RuneCountInString(line.Text)) / 2 * glyphWidth
		}
		y := padding + i*lineHeight + basicfont.Face7x13.Ascent
		d.Dot = fixed.P(x, y)
		d.DrawString(line.Text)
		if line.Bold {
			d.Dot = fixed.P(x+1, y)
			d.DrawString(line.Text)
		}
	}

	scaled := image.NewRGBA(image.Rect(0, 0, width*Scale, height*Scale))
	xdraw.NearestNeighbor.Scale(scaled, scaled.Bounds(), base, base.Bounds(), xdraw.Src, nil)
	return scaled
}
