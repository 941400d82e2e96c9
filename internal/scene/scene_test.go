package scene

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-shadows/internal/shadow"
)

func TestLoadDemo(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "demo.yaml"))
	require.NoError(t, err)

	require.Len(t, s.Lights, 3)
	require.Len(t, s.Casters, 4)
	assert.Equal(t, []string{"ground", "well", "wall", "tower"}, s.CasterNames)

	sun := s.Lights[0]
	assert.Equal(t, uuid.MustParse("2f6f7d8e-6a3c-4b1e-9d7a-1c2b3a4d5e6f"), sun.ID)
	assert.Equal(t, shadow.LightDirectional, sun.Visible.Shadow.Type)
	assert.Equal(t, shadow.ShadowsSoft, sun.Visible.Shadow.Shadows)
	assert.InDelta(t, 0.9, sun.Visible.Shadow.ShadowStrength, 1e-6)
	assert.Equal(t, shadow.BakeMixed, sun.Visible.Shadow.Baking.BakeType)
	assert.Equal(t, shadow.MixedShadowmask, sun.Visible.Shadow.Baking.MixedMode)
	assert.Equal(t, 0, sun.Visible.Shadow.Baking.OcclusionMaskChannel)
	// The sun is above the horizon so its light travels down.
	assert.Less(t, sun.Visible.Direction.Y(), float32(0))
	assert.InDelta(t, 1, sun.Visible.Direction.Len(), 1e-5)
	assert.InDelta(t, 1.2, sun.Visible.Color.X(), 1e-5)

	spot := s.Lights[1]
	assert.NotEqual(t, uuid.Nil, spot.ID)
	assert.Equal(t, shadow.LightSpot, spot.Geometry.Type)
	assert.Equal(t, float32(70), spot.Geometry.SpotAngle)
	assert.Equal(t, float32(50), spot.Visible.InnerSpotAngle)
	// Strength defaults to 1.
	assert.Equal(t, float32(1), spot.Visible.Shadow.ShadowStrength)
	assert.Equal(t, -1, spot.Visible.Shadow.Baking.OcclusionMaskChannel)

	assert.Equal(t, shadow.LightPoint, s.Lights[2].Visible.Shadow.Type)
	assert.Equal(t, float32(8), s.Lights[2].Geometry.Range)

	cam := s.Camera
	assert.InDelta(t, 1, cam.Forward.Len(), 1e-5)
	assert.InDelta(t, 30, cam.Position.Sub(mgl32.Vec3{0, 1, 0}).Len(), 1e-3)
	assert.Equal(t, float32(500), cam.Far)
}

func TestVisibleLightsMatchCuller(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "demo.yaml"))
	require.NoError(t, err)

	visible := s.VisibleLights()
	require.Len(t, visible, len(s.Lights))
	culler := s.Culler(100)
	for i := range visible {
		_, ok := culler.ShadowCasterBounds(i)
		assert.True(t, ok, "light %d sees no casters", i)
	}
	_, ok := culler.ShadowCasterBounds(len(visible))
	assert.False(t, ok)
}

func TestParseDefaults(t *testing.T) {
	s, err := Parse([]byte(`
camera:
  position: [0, 0, 5]
lights:
  - type: point
    position: [0, 1, 0]
    range: 3
`))
	require.NoError(t, err)
	assert.Equal(t, float32(60), s.Camera.FOV)
	assert.Equal(t, float32(0.3), s.Camera.Near)
	assert.Equal(t, mgl32.Vec3{0, 0, -1}, s.Camera.Forward)
	require.Len(t, s.Lights, 1)
	assert.Equal(t, shadow.ShadowsNone, s.Lights[0].Visible.Shadow.Shadows)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, s.Lights[0].Visible.Color)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no camera placement", `camera: {}`},
		{"camera on target", `camera: {position: [0, 0, 0]}`},
		{"near beyond far", `camera: {position: [0, 0, 5], near: 10, far: 5}`},
		{"unknown type", "camera: {position: [0, 0, 5]}\nlights: [{type: area}]"},
		{"bad id", "camera: {position: [0, 0, 5]}\nlights: [{id: nope, type: directional, direction: [0, -1, 0]}]"},
		{"directional without direction", "camera: {position: [0, 0, 5]}\nlights: [{type: directional}]"},
		{"point without range", "camera: {position: [0, 0, 5]}\nlights: [{type: point}]"},
		{"spot angle", "camera: {position: [0, 0, 5]}\nlights: [{type: spot, direction: [0, -1, 0], range: 5, spot_angle: 190}]"},
		{"shadow mode", "camera: {position: [0, 0, 5]}\nlights: [{type: point, range: 5, shadows: blurry}]"},
		{"strength", "camera: {position: [0, 0, 5]}\nlights: [{type: point, range: 5, strength: 2}]"},
		{"mask channel", "camera: {position: [0, 0, 5]}\nlights: [{type: point, range: 5, baking: {type: mixed, mixed: shadowmask, mask_channel: 4}}]"},
		{"inverted caster", "camera: {position: [0, 0, 5]}\ncasters: [{min: [1, 0, 0], max: [0, 1, 1]}]"},
		{"duplicate id", `
camera: {position: [0, 0, 5]}
lights:
  - {id: 2f6f7d8e-6a3c-4b1e-9d7a-1c2b3a4d5e6f, type: point, range: 1}
  - {id: 2f6f7d8e-6a3c-4b1e-9d7a-1c2b3a4d5e6f, type: point, range: 1}
`},
		{"not yaml", `camera: [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestOrbitPosition(t *testing.T) {
	center := mgl32.Vec3{1, 2, 3}
	p := OrbitPosition(center, 10, 0, 0)
	assert.True(t, p.ApproxEqualThreshold(mgl32.Vec3{1, 2, 13}, 1e-5), "got %v", p)

	p = OrbitPosition(center, 10, 90, 0)
	assert.True(t, p.ApproxEqualThreshold(mgl32.Vec3{1, 12, 3}, 1e-4), "got %v", p)
}
