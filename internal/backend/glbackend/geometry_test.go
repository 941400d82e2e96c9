package glbackend

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-shadows/internal/culling"
	"github.com/Faultbox/midgard-shadows/internal/shadow"
)

func TestCubeVertices(t *testing.T) {
	require.Len(t, cubeVertices, 36*3)

	// Every triangle faces away from the centre.
	for i := 0; i < len(cubeVertices); i += 9 {
		a := mgl32.Vec3{cubeVertices[i], cubeVertices[i+1], cubeVertices[i+2]}
		b := mgl32.Vec3{cubeVertices[i+3], cubeVertices[i+4], cubeVertices[i+5]}
		c := mgl32.Vec3{cubeVertices[i+6], cubeVertices[i+7], cubeVertices[i+8]}
		normal := b.Sub(a).Cross(c.Sub(a))
		centroid := a.Add(b).Add(c).Mul(1.0 / 3)
		assert.Greater(t, normal.Dot(centroid), float32(0), "triangle %d winds inward", i/9)
	}
}

func TestCasterModel(t *testing.T) {
	box := culling.AABB{Min: mgl32.Vec3{1, 0, -2}, Max: mgl32.Vec3{3, 4, 2}}
	m := casterModel(box)

	lo := m.Mul4x1(mgl32.Vec4{-0.5, -0.5, -0.5, 1}).Vec3()
	hi := m.Mul4x1(mgl32.Vec4{0.5, 0.5, 0.5, 1}).Vec3()
	assert.True(t, lo.ApproxEqual(box.Min), "got %v", lo)
	assert.True(t, hi.ApproxEqual(box.Max), "got %v", hi)
}

func TestViewProjectionReversedZ(t *testing.T) {
	req := shadow.DrawRequest{
		View:       mgl32.Ident4(),
		Projection: mgl32.Perspective(mgl32.DegToRad(90), 1, 1, 10),
	}
	near := mgl32.Vec4{0, 0, -1, 1}

	clip := viewProjection(req, false).Mul4x1(near)
	assert.InDelta(t, -1, clip.Z()/clip.W(), 1e-5)

	clip = viewProjection(req, true).Mul4x1(near)
	assert.InDelta(t, 1, clip.Z()/clip.W(), 1e-5)
}

func TestDefines(t *testing.T) {
	assert.Empty(t, Defines(shadow.Variants{DirectionalFilter: -1, OtherFilter: -1, CascadeBlend: -1, ShadowMask: -1}))

	got := Defines(shadow.Variants{DirectionalFilter: 1, OtherFilter: -1, CascadeBlend: 0, ShadowMask: 1})
	assert.Equal(t, "#define _DIRECTIONAL_PCF5\n#define _CASCADE_BLEND_SOFT\n#define _SHADOW_MASK_DISTANCE\n", got)
}

func TestWithDefines(t *testing.T) {
	src := "#version 410 core\nvoid main() {}\n"
	got := withDefines(src, "#define _OTHER_PCF3\n")
	assert.Equal(t, "#version 410 core\n#define _OTHER_PCF3\nvoid main() {}\n", got)

	assert.Equal(t, "#define A\nvoid main() {}", withDefines("void main() {}", "#define A\n"))
}

func TestReceiverShaderDeclaresUniforms(t *testing.T) {
	for _, name := range []string{
		UniformDirectionalAtlas,
		UniformOtherAtlas,
		UniformDirectionalMatrices,
		UniformOtherMatrices,
		UniformOtherTiles,
		UniformCascadeCount,
		UniformCascadeSpheres,
		UniformCascadeData,
		UniformAtlasSize,
		UniformDistanceFade,
		UniformDirectionalLightCount,
		UniformDirectionalLightColors,
		UniformDirectionalLightDirections,
		UniformDirectionalLightShadowData,
		UniformOtherLightCount,
		UniformOtherLightColors,
		UniformOtherLightPositions,
		UniformOtherLightDirections,
		UniformOtherLightSpotAngles,
		UniformOtherLightShadowData,
	} {
		assert.Regexp(t, `uniform \w+ `+name+`[\[;]`, receiverFragmentShader)
	}

	// Every keyword the controller can enable has a branch in the shader.
	for _, set := range [][]string{
		shadow.DirectionalFilterKeywords,
		shadow.OtherFilterKeywords,
		shadow.CascadeBlendKeywords,
		shadow.ShadowMaskKeywords,
	} {
		for _, kw := range set {
			assert.Contains(t, receiverFragmentShader, "defined("+kw+")", kw)
		}
	}
}
