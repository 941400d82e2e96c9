// Package debug renders shadow atlases into images for inspection.
package debug

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Faultbox/midgard-shadows/internal/shadow"
)

var (
	backgroundColor = color.RGBA{24, 24, 32, 255}
	borderColor     = color.RGBA{220, 220, 220, 255}
	labelColor      = color.RGBA{255, 255, 255, 255}
)

// Per-light tile tints, cycled.
var lightColors = []color.RGBA{
	{196, 72, 60, 255},
	{72, 150, 70, 255},
	{60, 100, 190, 255},
	{200, 160, 50, 255},
	{150, 80, 170, 255},
	{60, 160, 170, 255},
}

// TileLabel names a draw: "L<light> C<cascade>" in the directional atlas,
// "L<light> F<face>" for point light faces and "L<light>" for spot lights.
func TileLabel(req shadow.DrawRequest, point bool) string {
	switch {
	case req.Atlas == shadow.AtlasDirectional:
		return fmt.Sprintf("L%d C%d", req.VisibleLight, req.Slice)
	case point:
		return fmt.Sprintf("L%d F%d", req.VisibleLight, req.Slice)
	}
	return fmt.Sprintf("L%d", req.VisibleLight)
}

// AtlasLayout draws the tiles of one atlas at atlasSize pixels, with the
// atlas origin at the bottom-left like the GPU target.
func AtlasLayout(draws []shadow.DrawRequest, atlas shadow.AtlasKind, atlasSize int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, atlasSize, atlasSize))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	// Point lights are the other-atlas lights with more than one tile.
	tiles := make(map[int]int)
	for _, req := range draws {
		if req.Atlas == shadow.AtlasOther {
			tiles[req.VisibleLight]++
		}
	}

	for _, req := range draws {
		if req.Atlas != atlas {
			continue
		}
		r := flipRect(req.Viewport, atlasSize)
		tint := lightColors[req.VisibleLight%len(lightColors)]
		draw.Draw(img, r, image.NewUniform(tint), image.Point{}, draw.Src)
		strokeRect(img, r, borderColor)

		drawLabel(img, r, TileLabel(req, tiles[req.VisibleLight] > 1))
	}
	return img
}

// flipRect converts a bottom-left origin viewport to image coordinates.
func flipRect(v shadow.Rect, height int) image.Rectangle {
	return image.Rect(v.X, height-v.Y-v.Height, v.X+v.Width, height-v.Y)
}

func strokeRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}

func drawLabel(img *image.RGBA, r image.Rectangle, label string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: face,
	}
	width := d.MeasureString(label).Ceil()
	height := face.Metrics().Height.Ceil()
	if width+4 > r.Dx() || height+4 > r.Dy() {
		return
	}
	d.Dot = fixed.P(r.Min.X+4, r.Min.Y+4+face.Metrics().Ascent.Ceil())
	d.DrawString(label)
}
