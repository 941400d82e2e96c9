package glbackend

import (
	"errors"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-shadows/internal/lighting"
	"github.com/Faultbox/midgard-shadows/internal/shadow"
)

// Uniform names read by shading programs.
const (
	UniformDirectionalAtlas    = "_DirectionalShadowAtlas"
	UniformOtherAtlas          = "_OtherShadowAtlas"
	UniformDirectionalMatrices = "_DirectionalShadowMatrices"
	UniformOtherMatrices       = "_OtherShadowMatrices"
	UniformOtherTiles          = "_OtherShadowTiles"
	UniformCascadeCount        = "_CascadeCount"
	UniformCascadeSpheres      = "_CascadeCullingSpheres"
	UniformCascadeData         = "_CascadeData"
	UniformAtlasSize           = "_ShadowAtlasSize"
	UniformDistanceFade        = "_ShadowDistanceFade"

	UniformDirectionalLightCount      = "_DirectionalLightCount"
	UniformDirectionalLightColors     = "_DirectionalLightColors"
	UniformDirectionalLightDirections = "_DirectionalLightDirections"
	UniformDirectionalLightShadowData = "_DirectionalLightShadowData"
	UniformOtherLightCount            = "_OtherLightCount"
	UniformOtherLightColors           = "_OtherLightColors"
	UniformOtherLightPositions        = "_OtherLightPositions"
	UniformOtherLightDirections       = "_OtherLightDirections"
	UniformOtherLightSpotAngles       = "_OtherLightSpotAngles"
	UniformOtherLightShadowData       = "_OtherLightShadowData"
)

// ApplyUniforms binds the published atlases to texture units firstUnit
// and firstUnit+1 and uploads the published globals to program. Uniforms
// the program does not declare are skipped.
func (b *Backend) ApplyUniforms(program, firstUnit uint32) error {
	g := b.globals
	if g == nil {
		return errors.New("glbackend: no shadow globals published")
	}
	dirTex, ok := b.Texture(g.DirectionalAtlas)
	if !ok {
		return ErrUnknownTarget
	}
	otherTex, ok := b.Texture(g.OtherAtlas)
	if !ok {
		return ErrUnknownTarget
	}

	gl.UseProgram(program)

	gl.ActiveTexture(gl.TEXTURE0 + firstUnit)
	gl.BindTexture(gl.TEXTURE_2D, dirTex)
	gl.ActiveTexture(gl.TEXTURE0 + firstUnit + 1)
	gl.BindTexture(gl.TEXTURE_2D, otherTex)
	gl.ActiveTexture(gl.TEXTURE0)
	if loc := uniform(program, UniformDirectionalAtlas); loc >= 0 {
		gl.Uniform1i(loc, int32(firstUnit))
	}
	if loc := uniform(program, UniformOtherAtlas); loc >= 0 {
		gl.Uniform1i(loc, int32(firstUnit+1))
	}

	if loc := uniform(program, UniformDirectionalMatrices); loc >= 0 {
		gl.UniformMatrix4fv(loc, int32(len(g.DirectionalMatrices)), false, &g.DirectionalMatrices[0][0])
	}
	if loc := uniform(program, UniformOtherMatrices); loc >= 0 {
		gl.UniformMatrix4fv(loc, int32(len(g.OtherMatrices)), false, &g.OtherMatrices[0][0])
	}
	if loc := uniform(program, UniformOtherTiles); loc >= 0 {
		gl.Uniform4fv(loc, int32(len(g.OtherTiles)), &g.OtherTiles[0][0])
	}
	if loc := uniform(program, UniformCascadeCount); loc >= 0 {
		gl.Uniform1i(loc, int32(g.CascadeCount))
	}
	if loc := uniform(program, UniformCascadeSpheres); loc >= 0 {
		gl.Uniform4fv(loc, shadow.MaxCascades, &g.CascadeCullingSpheres[0][0])
	}
	if loc := uniform(program, UniformCascadeData); loc >= 0 {
		gl.Uniform4fv(loc, shadow.MaxCascades, &g.CascadeData[0][0])
	}
	if loc := uniform(program, UniformAtlasSize); loc >= 0 {
		gl.Uniform4fv(loc, 1, &g.AtlasSizes[0])
	}
	if loc := uniform(program, UniformDistanceFade); loc >= 0 {
		gl.Uniform4fv(loc, 1, &g.DistanceFade[0])
	}
	return nil
}

// applyLights uploads the per-light arrays of the lighting stage to the
// current program.
func applyLights(program uint32, g *lighting.Globals) {
	if loc := uniform(program, UniformDirectionalLightCount); loc >= 0 {
		gl.Uniform1i(loc, int32(g.DirectionalCount))
	}
	if loc := uniform(program, UniformOtherLightCount); loc >= 0 {
		gl.Uniform1i(loc, int32(g.OtherCount))
	}

	arrays := []struct {
		name   string
		values []mgl32.Vec4
	}{
		{UniformDirectionalLightColors, g.DirectionalColors[:]},
		{UniformDirectionalLightDirections, g.DirectionalDirections[:]},
		{UniformDirectionalLightShadowData, g.DirectionalShadowData[:]},
		{UniformOtherLightColors, g.OtherColors[:]},
		{UniformOtherLightPositions, g.OtherPositions[:]},
		{UniformOtherLightDirections, g.OtherDirections[:]},
		{UniformOtherLightSpotAngles, g.OtherSpotAngles[:]},
		{UniformOtherLightShadowData, g.OtherShadowData[:]},
	}
	for _, a := range arrays {
		if loc := uniform(program, a.name); loc >= 0 {
			gl.Uniform4fv(loc, int32(len(a.values)), &a.values[0][0])
		}
	}
}
