package shadow

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/logger"
)

// cascadeCullingData shrinks a cascade's culling sphere by the filter
// footprint so the kernel never samples outside the cascade. It returns
// the sphere with the squared shrunk radius in W and the cascade data
// (1/r², diagonal filter margin).
func cascadeCullingData(sphere mgl32.Vec4, tileSize int, filter FilterMode) (mgl32.Vec4, mgl32.Vec4) {
	texelSize := 2 * sphere.W() / float32(tileSize)
	filterSize := texelSize * filter.TapRadius()
	r := sphere.W() - filterSize
	if r < 0 {
		r = 0
	}
	sphere[3] = r * r
	// An empty sphere keeps 1/r² at zero so nothing samples the cascade.
	var invRadiusSq float32
	if sphere.W() > 0 {
		invRadiusSq = 1 / sphere.W()
	}
	return sphere, mgl32.Vec4{invRadiusSq, filterSize * math.Sqrt2, 0, 0}
}

// cascadeBlendCullingFactor lets casters near a cascade edge be drawn into
// both neighbours so the shader can blend them.
func cascadeBlendCullingFactor(cascadeFade float32) float32 {
	return max(0, 0.8-cascadeFade)
}

// renderDirectionalLight draws every cascade of the index-th reserved
// directional light. Only the first light fills the shared culling
// spheres; they depend on the camera, not on the light direction.
func (c *Controller) renderDirectionalLight(target TargetID, index, split, tileSize int) error {
	entry := c.ledger.directional[index]
	ds := c.settings.Directional
	cascadeCount := ds.CascadeCount
	tileBase := index * cascadeCount
	ratios := ds.CascadeRatios()
	cullingFactor := cascadeBlendCullingFactor(ds.CascadeFade)
	tileScale := 1 / float32(split)

	for i := 0; i < cascadeCount; i++ {
		m, ok := c.culler.DirectionalCascade(entry.visibleLight, i, cascadeCount, ratios, tileSize, entry.nearPlaneOffset)
		m.Split.BlendCullingFactor = cullingFactor
		if index == 0 {
			c.frame.cascadeCullingSpheres[i], c.frame.cascadeData[i] =
				cascadeCullingData(m.Split.CullingSphere, tileSize, ds.Filter)
		}

		tile := tileBase + i
		c.frame.directionalMatrices[tile] = ToAtlasMatrix(
			m.Projection.Mul4(m.View), TileOffset(tile, split), tileScale, c.caps.ReversedZ,
		)
		if !ok {
			logger.Debug("cascade has nothing to draw",
				zap.Int("visibleLight", entry.visibleLight),
				zap.Int("cascade", i),
			)
			continue
		}

		err := c.backend.SubmitShadowDraws(DrawRequest{
			Target:       target,
			Atlas:        AtlasDirectional,
			VisibleLight: entry.visibleLight,
			Slice:        i,
			Tile:         tile,
			Viewport:     TileViewport(tile, split, tileSize),
			View:         m.View,
			Projection:   m.Projection,
			Kind:         ProjectionOrthographic,
			Split:        m.Split,
			Bias:         DepthBias{SlopeScale: entry.slopeScaleBias},
			Pancaking:    true,
		})
		if err != nil {
			return fmt.Errorf("drawing cascade %d of light %d: %w", i, entry.visibleLight, err)
		}
	}
	return nil
}
