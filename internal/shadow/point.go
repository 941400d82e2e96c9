package shadow

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/logger"
)

// normalBiasScale turns a light's normal bias into a world-space offset
// for a tile whose texel is texelSize wide. Texels are square, so the
// worst case lies along the diagonal.
func normalBiasScale(normalBias, texelSize float32, filter FilterMode) (bias, filterSize float32) {
	filterSize = texelSize * filter.TapRadius()
	return normalBias * filterSize * math.Sqrt2, filterSize
}

// PointFOVBias returns the extra field of view, in degrees, that keeps a
// filter kernel of filterSize from sampling past a cube face edge.
func PointFOVBias(bias, filterSize float32) float32 {
	return float32(math.Atan(float64(1+bias+filterSize)))*(180/math.Pi)*2 - 90
}

// flipFaceWinding undoes the upside-down cube face rendering, which would
// otherwise reverse triangle winding and draw back faces.
func flipFaceWinding(view mgl32.Mat4) mgl32.Mat4 {
	view.Set(1, 1, -view.At(1, 1))
	view.Set(1, 2, -view.At(1, 2))
	view.Set(1, 3, -view.At(1, 3))
	return view
}

func (c *Controller) renderSpotLight(target TargetID, index, split, tileSize int) error {
	entry := c.ledger.other[index]
	m, ok := c.culler.SpotMatrices(entry.visibleLight)

	texelSize := 2 / (float32(tileSize) * m.Projection.At(0, 0))
	bias, _ := normalBiasScale(entry.normalBias, texelSize, c.settings.Other.Filter)
	tileScale := 1 / float32(split)
	offset := TileOffset(index, split)

	c.frame.otherTiles[index] = otherTileData(offset, tileScale, c.tileBorder(), bias)
	c.frame.otherMatrices[index] = ToAtlasMatrix(m.Projection.Mul4(m.View), offset, tileScale, c.caps.ReversedZ)
	if !ok {
		logger.Debug("spot light has nothing to draw", zap.Int("visibleLight", entry.visibleLight))
		return nil
	}

	err := c.backend.SubmitShadowDraws(DrawRequest{
		Target:       target,
		Atlas:        AtlasOther,
		VisibleLight: entry.visibleLight,
		Tile:         index,
		Viewport:     TileViewport(index, split, tileSize),
		View:         m.View,
		Projection:   m.Projection,
		Kind:         ProjectionPerspective,
		Split:        m.Split,
		Bias:         DepthBias{SlopeScale: entry.slopeScaleBias},
	})
	if err != nil {
		return fmt.Errorf("drawing spot light %d: %w", entry.visibleLight, err)
	}
	return nil
}

func (c *Controller) renderPointLight(target TargetID, index, split, tileSize int) error {
	entry := c.ledger.other[index]
	texelSize := 2 / float32(tileSize)
	bias, filterSize := normalBiasScale(entry.normalBias, texelSize, c.settings.Other.Filter)
	tileScale := 1 / float32(split)
	fovBias := PointFOVBias(bias, filterSize)

	for face := 0; face < CubeFaceCount; face++ {
		m, ok := c.culler.CubeFaceMatrices(entry.visibleLight, CubeFace(face), fovBias)
		m.View = flipFaceWinding(m.View)

		tile := index + face
		offset := TileOffset(tile, split)
		c.frame.otherTiles[tile] = otherTileData(offset, tileScale, c.tileBorder(), bias)
		c.frame.otherMatrices[tile] = ToAtlasMatrix(m.Projection.Mul4(m.View), offset, tileScale, c.caps.ReversedZ)
		if !ok {
			logger.Debug("cube face has nothing to draw",
				zap.Int("visibleLight", entry.visibleLight),
				zap.Int("face", face),
			)
			continue
		}

		err := c.backend.SubmitShadowDraws(DrawRequest{
			Target:       target,
			Atlas:        AtlasOther,
			VisibleLight: entry.visibleLight,
			Slice:        face,
			Tile:         tile,
			Viewport:     TileViewport(tile, split, tileSize),
			View:         m.View,
			Projection:   m.Projection,
			Kind:         ProjectionPerspective,
			Split:        m.Split,
			Bias:         DepthBias{SlopeScale: entry.slopeScaleBias},
		})
		if err != nil {
			return fmt.Errorf("drawing face %d of point light %d: %w", face, entry.visibleLight, err)
		}
	}
	return nil
}

// tileBorder is half a texel of the other atlas.
func (c *Controller) tileBorder() float32 {
	return c.frame.atlasSizes.W() * 0.5
}
