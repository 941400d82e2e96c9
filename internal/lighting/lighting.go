// Package lighting gathers the visible lights of a camera into the arrays
// the shading stage reads, reserving shadow atlas space for each light on
// the way.
package lighting

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/logger"
	"github.com/Faultbox/midgard-shadows/internal/shadow"
)

// Maximum lights supported in shaders.
const (
	MaxDirectionalLights = 4
	MaxOtherLights       = 64
)

// VisibleLight is a light that survived camera culling.
type VisibleLight struct {
	Shadow shadow.Light
	// Color is the final linear color, already scaled by intensity.
	Color mgl32.Vec3
	// Direction is the direction the light travels.
	Direction mgl32.Vec3
	Position  mgl32.Vec3
	Range     float32
	// Spot cone angles in degrees (full angles).
	SpotAngle      float32
	InnerSpotAngle float32
}

// Globals holds the per-light arrays for the shading stage.
type Globals struct {
	DirectionalCount      int
	DirectionalColors     [MaxDirectionalLights]mgl32.Vec4
	DirectionalDirections [MaxDirectionalLights]mgl32.Vec4
	DirectionalShadowData [MaxDirectionalLights]mgl32.Vec4

	OtherCount      int
	OtherColors     [MaxOtherLights]mgl32.Vec4
	OtherPositions  [MaxOtherLights]mgl32.Vec4 // w = 1/range²
	OtherDirections [MaxOtherLights]mgl32.Vec4
	OtherSpotAngles [MaxOtherLights]mgl32.Vec4
	OtherShadowData [MaxOtherLights]mgl32.Vec4
}

// Lighting runs the lighting setup of one camera.
type Lighting struct {
	shadows *shadow.Controller
	globals Globals
}

// New returns a lighting stage reserving shadows through shadows.
func New(shadows *shadow.Controller) *Lighting {
	return &Lighting{shadows: shadows}
}

// Shadows returns the shadow controller.
func (l *Lighting) Shadows() *shadow.Controller {
	return l.shadows
}

// Setup fills the light arrays from lights in order, reserving shadows for
// each, then renders the shadow atlases. Lights beyond the per-type
// limits are dropped.
func (l *Lighting) Setup(culler shadow.Culler, lights []VisibleLight) (*Globals, error) {
	if err := l.shadows.Begin(culler); err != nil {
		return nil, err
	}
	l.globals = Globals{}

	for i, vl := range lights {
		var err error
		switch vl.Shadow.Type {
		case shadow.LightDirectional:
			if l.globals.DirectionalCount < MaxDirectionalLights {
				err = l.setupDirectional(i, vl)
			}
		case shadow.LightSpot, shadow.LightPoint:
			if l.globals.OtherCount < MaxOtherLights {
				err = l.setupOther(i, vl)
			}
		default:
			err = fmt.Errorf("light %d: unknown type %d", i, vl.Shadow.Type)
		}
		if err != nil {
			// Leave the controller idle so the next frame can start.
			return nil, errors.Join(err, l.shadows.Cleanup())
		}
	}

	if err := l.shadows.Render(); err != nil {
		return nil, fmt.Errorf("rendering shadows: %w", err)
	}

	logger.Debug("lighting setup",
		zap.Int("directional", l.globals.DirectionalCount),
		zap.Int("other", l.globals.OtherCount),
		zap.Int("directionalShadows", l.shadows.DirectionalCount()),
		zap.Int("otherShadowTiles", l.shadows.OtherTileCount()),
	)
	return &l.globals, nil
}

func (l *Lighting) setupDirectional(visibleIndex int, vl VisibleLight) error {
	r, err := l.shadows.ReserveDirectional(vl.Shadow, visibleIndex)
	if err != nil {
		return err
	}
	i := l.globals.DirectionalCount
	l.globals.DirectionalColors[i] = vl.Color.Vec4(1)
	l.globals.DirectionalDirections[i] = vl.Direction.Normalize().Mul(-1).Vec4(0)
	l.globals.DirectionalShadowData[i] = r.Vector()
	l.globals.DirectionalCount++
	return nil
}

func (l *Lighting) setupOther(visibleIndex int, vl VisibleLight) error {
	r, err := l.shadows.ReserveOther(vl.Shadow, visibleIndex)
	if err != nil {
		return err
	}
	i := l.globals.OtherCount
	l.globals.OtherColors[i] = vl.Color.Vec4(1)
	l.globals.OtherPositions[i] = vl.Position.Vec4(1 / max(vl.Range*vl.Range, 0.00001))
	if vl.Shadow.Type == shadow.LightSpot {
		l.globals.OtherDirections[i] = vl.Direction.Normalize().Mul(-1).Vec4(0)
		l.globals.OtherSpotAngles[i] = SpotAngles(vl.InnerSpotAngle, vl.SpotAngle)
	} else {
		// Makes the spot attenuation evaluate to 1 for point lights.
		l.globals.OtherSpotAngles[i] = mgl32.Vec4{0, 1, 0, 0}
	}
	l.globals.OtherShadowData[i] = r.Vector()
	l.globals.OtherCount++
	return nil
}

// Cleanup releases the frame's shadow atlases.
func (l *Lighting) Cleanup() error {
	return l.shadows.Cleanup()
}

// SpotAngles returns the (scale, offset) pair that maps the cosine of the
// angle to the spot axis onto [0, 1] between the outer and inner cone.
// Angles are full cone angles in degrees.
func SpotAngles(inner, outer float32) mgl32.Vec4 {
	cosOuter := math.Cos(float64(mgl32.DegToRad(outer)) / 2)
	cosInner := math.Cos(float64(mgl32.DegToRad(inner)) / 2)
	scale := 1 / max(cosInner-cosOuter, 0.001)
	return mgl32.Vec4{float32(scale), float32(-cosOuter * scale), 0, 0}
}

// SunDirection converts longitude (rotation around Y) and latitude
// (elevation above the horizon) in degrees into the normalized direction
// pointing towards the sun.
func SunDirection(longitude, latitude float32) mgl32.Vec3 {
	lon := float64(mgl32.DegToRad(longitude))
	lat := float64(mgl32.DegToRad(latitude))
	return mgl32.Vec3{
		float32(math.Cos(lat) * math.Sin(lon)),
		float32(math.Sin(lat)),
		float32(math.Cos(lat) * math.Cos(lon)),
	}
}
