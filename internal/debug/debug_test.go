package debug

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-shadows/internal/shadow"
)

func grey(img image.Image, x, y int) uint8 {
	return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
}

func TestTileLabel(t *testing.T) {
	assert.Equal(t, "L2 C3", TileLabel(shadow.DrawRequest{Atlas: shadow.AtlasDirectional, VisibleLight: 2, Slice: 3}, false))
	assert.Equal(t, "L5 F0", TileLabel(shadow.DrawRequest{Atlas: shadow.AtlasOther, VisibleLight: 5}, true))
	assert.Equal(t, "L1", TileLabel(shadow.DrawRequest{Atlas: shadow.AtlasOther, VisibleLight: 1}, false))
}

func TestAtlasLayout(t *testing.T) {
	draws := []shadow.DrawRequest{
		{Atlas: shadow.AtlasDirectional, VisibleLight: 0, Slice: 0, Viewport: shadow.Rect{X: 0, Y: 0, Width: 128, Height: 128}},
		{Atlas: shadow.AtlasDirectional, VisibleLight: 0, Slice: 1, Viewport: shadow.Rect{X: 128, Y: 0, Width: 128, Height: 128}},
		{Atlas: shadow.AtlasOther, VisibleLight: 1, Viewport: shadow.Rect{X: 0, Y: 0, Width: 256, Height: 256}},
	}

	img := AtlasLayout(draws, shadow.AtlasDirectional, 256)
	require.Equal(t, image.Rect(0, 0, 256, 256), img.Bounds())

	// Tile 0 sits at the bottom-left, so the top half stays background.
	assert.Equal(t, backgroundColor, img.RGBAAt(64, 64))
	assert.Equal(t, lightColors[0], img.RGBAAt(64, 250))
	assert.Equal(t, borderColor, img.RGBAAt(0, 200))

	// The other atlas draw is not part of this layout.
	other := AtlasLayout(draws, shadow.AtlasOther, 256)
	assert.Equal(t, lightColors[1], other.RGBAAt(128, 250))
}

func TestDepthImage(t *testing.T) {
	// 2x2, bottom row first: bottom is near (0), top is far (1).
	depth := []float32{0, 0, 1, 1}

	img, err := DepthImage(depth, 2, 2, 0, false)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), grey(img, 0, 0))
	assert.Equal(t, uint8(0), grey(img, 0, 1))

	img, err = DepthImage(depth, 2, 2, 0, true)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), grey(img, 0, 0))

	img, err = DepthImage(depth, 2, 2, 8, false)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 8), img.Bounds())

	_, err = DepthImage(depth, 3, 2, 0, false)
	assert.Error(t, err)
}

func TestColorImage(t *testing.T) {
	// 1x2, bottom row red, top row blue.
	pixels := []byte{255, 0, 0, 255, 0, 0, 255, 255}

	img, err := ColorImage(pixels, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(0, 1))

	_, err = ColorImage(pixels, 2, 2)
	assert.Error(t, err)
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "atlas.png")
	img := AtlasLayout(nil, shadow.AtlasDirectional, 64)
	require.NoError(t, SavePNG(path, img))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestScale(t *testing.T) {
	img := AtlasLayout(nil, shadow.AtlasDirectional, 256)
	scaled := Scale(img, 64)
	assert.Equal(t, image.Rect(0, 0, 64, 64), scaled.Bounds())
	assert.Equal(t, backgroundColor, scaled.RGBAAt(32, 32))
}
