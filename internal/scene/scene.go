// Package scene loads test scenes for the shadow tools: a camera, a set
// of lights and box-shaped shadow casters described in YAML.
package scene

import (
	"errors"
	"fmt"
	gomath "math"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-shadows/internal/culling"
	"github.com/Faultbox/midgard-shadows/internal/lighting"
	"github.com/Faultbox/midgard-shadows/internal/logger"
	"github.com/Faultbox/midgard-shadows/internal/shadow"
)

// File is the on-disk scene format.
type File struct {
	Camera  CameraSpec   `yaml:"camera"`
	Lights  []LightSpec  `yaml:"lights"`
	Casters []CasterSpec `yaml:"casters"`
}

// CameraSpec places the camera either by position/target or by orbit.
type CameraSpec struct {
	Position *[3]float32 `yaml:"position,omitempty"`
	Target   [3]float32  `yaml:"target"`
	Orbit    *OrbitSpec  `yaml:"orbit,omitempty"`
	FOV      float32     `yaml:"fov"` // vertical, degrees
	Aspect   float32     `yaml:"aspect"`
	Near     float32     `yaml:"near"`
	Far      float32     `yaml:"far"`
}

// OrbitSpec orbits the camera around Target.
type OrbitSpec struct {
	Distance float32 `yaml:"distance"`
	Pitch    float32 `yaml:"pitch"` // degrees above the horizon
	Yaw      float32 `yaml:"yaw"`   // degrees around Y
}

// SunSpec gives a directional light's direction as sun angles.
type SunSpec struct {
	Longitude float32 `yaml:"longitude"`
	Latitude  float32 `yaml:"latitude"`
}

// BakingSpec is the lightmapper output of a light.
type BakingSpec struct {
	Type        string `yaml:"type"`  // realtime, baked, mixed
	Mixed       string `yaml:"mixed"` // indirect, subtractive, shadowmask
	MaskChannel int    `yaml:"mask_channel"`
}

// LightSpec describes one light.
type LightSpec struct {
	ID        string      `yaml:"id,omitempty"`
	Name      string      `yaml:"name"`
	Type      string      `yaml:"type"` // directional, spot, point
	Color     [3]float32  `yaml:"color"`
	Intensity float32     `yaml:"intensity"`
	Direction *[3]float32 `yaml:"direction,omitempty"`
	Sun       *SunSpec    `yaml:"sun,omitempty"`
	Position  [3]float32  `yaml:"position"`
	Range     float32     `yaml:"range"`
	SpotAngle float32     `yaml:"spot_angle"`
	InnerSpot float32     `yaml:"inner_spot_angle"`

	Shadows    string   `yaml:"shadows"` // none, hard, soft
	Strength   *float32 `yaml:"strength,omitempty"`
	Bias       float32  `yaml:"bias"`
	NormalBias float32  `yaml:"normal_bias"`
	NearPlane  float32  `yaml:"near_plane"`

	Baking BakingSpec `yaml:"baking"`
}

// CasterSpec is an axis-aligned box that casts shadows.
type CasterSpec struct {
	Name string     `yaml:"name"`
	Min  [3]float32 `yaml:"min"`
	Max  [3]float32 `yaml:"max"`
}

// Light is a resolved scene light.
type Light struct {
	ID       uuid.UUID
	Name     string
	Visible  lighting.VisibleLight
	Geometry culling.Light
}

// Scene is a resolved scene ready for a frame.
type Scene struct {
	Camera  culling.Camera
	Lights  []Light
	Casters []culling.AABB
	// Names of the casters, parallel to Casters.
	CasterNames []string
}

// Load reads and resolves a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	logger.Info("scene loaded",
		zap.String("path", path),
		zap.Int("lights", len(s.Lights)),
		zap.Int("casters", len(s.Casters)),
	)
	return s, nil
}

// Parse decodes and resolves scene YAML.
func Parse(data []byte) (*Scene, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing scene: %w", err)
	}
	return f.Resolve()
}

// Resolve validates f and converts it to a Scene. Lights without an id
// get a random one.
func (f *File) Resolve() (*Scene, error) {
	cam, err := f.Camera.resolve()
	if err != nil {
		return nil, fmt.Errorf("camera: %w", err)
	}
	s := &Scene{Camera: cam}

	seen := make(map[uuid.UUID]bool, len(f.Lights))
	var errs []error
	for i, spec := range f.Lights {
		l, err := spec.resolve()
		if err != nil {
			errs = append(errs, fmt.Errorf("light %d (%s): %w", i, spec.Name, err))
			continue
		}
		if seen[l.ID] {
			errs = append(errs, fmt.Errorf("light %d (%s): duplicate id %s", i, spec.Name, l.ID))
			continue
		}
		seen[l.ID] = true
		s.Lights = append(s.Lights, l)
	}

	for i, c := range f.Casters {
		box := culling.AABB{Min: mgl32.Vec3(c.Min), Max: mgl32.Vec3(c.Max)}
		if box.Min.X() > box.Max.X() || box.Min.Y() > box.Max.Y() || box.Min.Z() > box.Max.Z() {
			errs = append(errs, fmt.Errorf("caster %d (%s): min exceeds max", i, c.Name))
			continue
		}
		s.Casters = append(s.Casters, box)
		s.CasterNames = append(s.CasterNames, c.Name)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return s, nil
}

func (c CameraSpec) resolve() (culling.Camera, error) {
	cam := culling.Camera{
		Up:     mgl32.Vec3{0, 1, 0},
		FOV:    c.FOV,
		Aspect: c.Aspect,
		Near:   c.Near,
		Far:    c.Far,
	}
	if cam.FOV == 0 {
		cam.FOV = 60
	}
	if cam.Aspect == 0 {
		cam.Aspect = 16.0 / 9.0
	}
	if cam.Near == 0 {
		cam.Near = 0.3
	}
	if cam.Far == 0 {
		cam.Far = 1000
	}
	if cam.Near >= cam.Far {
		return cam, fmt.Errorf("near %g must be below far %g", cam.Near, cam.Far)
	}

	target := mgl32.Vec3(c.Target)
	switch {
	case c.Orbit != nil:
		cam.Position = OrbitPosition(target, c.Orbit.Distance, c.Orbit.Pitch, c.Orbit.Yaw)
	case c.Position != nil:
		cam.Position = mgl32.Vec3(*c.Position)
	default:
		return cam, errors.New("needs position or orbit")
	}

	fwd := target.Sub(cam.Position)
	if fwd.Len() < 1e-6 {
		return cam, errors.New("position equals target")
	}
	cam.Forward = fwd.Normalize()
	if abs(cam.Forward.Y()) > 0.99 {
		cam.Up = mgl32.Vec3{0, 0, -1}
	}
	return cam, nil
}

// OrbitPosition returns the position of a camera orbiting center at
// distance, pitched above the horizon and yawed around Y (degrees).
func OrbitPosition(center mgl32.Vec3, distance, pitch, yaw float32) mgl32.Vec3 {
	p := float64(mgl32.DegToRad(pitch))
	y := float64(mgl32.DegToRad(yaw))
	return center.Add(mgl32.Vec3{
		distance * float32(gomath.Cos(p)*gomath.Sin(y)),
		distance * float32(gomath.Sin(p)),
		distance * float32(gomath.Cos(p)*gomath.Cos(y)),
	})
}

func (l LightSpec) resolve() (Light, error) {
	id, err := l.id()
	if err != nil {
		return Light{}, err
	}

	lightType, err := parseLightType(l.Type)
	if err != nil {
		return Light{}, err
	}
	mode, err := parseShadowMode(l.Shadows)
	if err != nil {
		return Light{}, err
	}
	baking, err := l.Baking.resolve()
	if err != nil {
		return Light{}, err
	}

	strength := float32(1)
	if l.Strength != nil {
		strength = *l.Strength
	}
	if strength < 0 || strength > 1 {
		return Light{}, fmt.Errorf("strength %g out of [0, 1]", strength)
	}
	intensity := l.Intensity
	if intensity == 0 {
		intensity = 1
	}

	vl := lighting.VisibleLight{
		Shadow: shadow.Light{
			Type:             lightType,
			Shadows:          mode,
			ShadowStrength:   strength,
			ShadowBias:       l.Bias,
			ShadowNormalBias: l.NormalBias,
			ShadowNearPlane:  l.NearPlane,
			Baking:           baking,
		},
		Color:          mgl32.Vec3(l.Color).Mul(intensity),
		Position:       mgl32.Vec3(l.Position),
		Range:          l.Range,
		SpotAngle:      l.SpotAngle,
		InnerSpotAngle: l.InnerSpot,
	}

	switch lightType {
	case shadow.LightDirectional, shadow.LightSpot:
		dir, err := l.direction()
		if err != nil {
			return Light{}, err
		}
		vl.Direction = dir
	}
	if lightType != shadow.LightDirectional && vl.Range <= 0 {
		return Light{}, fmt.Errorf("range %g must be positive", vl.Range)
	}
	if lightType == shadow.LightSpot {
		if vl.SpotAngle <= 0 || vl.SpotAngle >= 180 {
			return Light{}, fmt.Errorf("spot angle %g out of (0, 180)", vl.SpotAngle)
		}
		if vl.InnerSpotAngle == 0 {
			vl.InnerSpotAngle = vl.SpotAngle * 0.75
		}
		vl.InnerSpotAngle = min(vl.InnerSpotAngle, vl.SpotAngle)
	}

	return Light{
		ID:      id,
		Name:    l.Name,
		Visible: vl,
		Geometry: culling.Light{
			Type:      lightType,
			Direction: vl.Direction,
			Position:  vl.Position,
			Range:     vl.Range,
			SpotAngle: vl.SpotAngle,
			NearPlane: l.NearPlane,
		},
	}, nil
}

func (l LightSpec) id() (uuid.UUID, error) {
	if l.ID == "" {
		return uuid.New(), nil
	}
	id, err := uuid.Parse(l.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("id: %w", err)
	}
	return id, nil
}

// direction returns the direction the light travels.
func (l LightSpec) direction() (mgl32.Vec3, error) {
	var d mgl32.Vec3
	switch {
	case l.Sun != nil:
		// Light travels away from the sun.
		d = lighting.SunDirection(l.Sun.Longitude, l.Sun.Latitude).Mul(-1)
	case l.Direction != nil:
		d = mgl32.Vec3(*l.Direction)
	default:
		return d, errors.New("needs direction or sun")
	}
	if d.Len() < 1e-6 {
		return d, errors.New("zero direction")
	}
	return d.Normalize(), nil
}

func (b BakingSpec) resolve() (shadow.BakingOutput, error) {
	out := shadow.BakingOutput{OcclusionMaskChannel: -1}
	switch strings.ToLower(b.Type) {
	case "", "realtime":
		out.BakeType = shadow.BakeRealtime
		return out, nil
	case "baked":
		out.BakeType = shadow.BakeBaked
		return out, nil
	case "mixed":
		out.BakeType = shadow.BakeMixed
	default:
		return out, fmt.Errorf("unknown bake type %q", b.Type)
	}

	switch strings.ToLower(b.Mixed) {
	case "", "indirect":
		out.MixedMode = shadow.MixedIndirectOnly
	case "subtractive":
		out.MixedMode = shadow.MixedSubtractive
	case "shadowmask":
		out.MixedMode = shadow.MixedShadowmask
		if b.MaskChannel < 0 || b.MaskChannel > 3 {
			return out, fmt.Errorf("mask channel %d out of [0, 3]", b.MaskChannel)
		}
		out.OcclusionMaskChannel = b.MaskChannel
	default:
		return out, fmt.Errorf("unknown mixed mode %q", b.Mixed)
	}
	return out, nil
}

func parseLightType(s string) (shadow.LightType, error) {
	switch strings.ToLower(s) {
	case "directional", "sun":
		return shadow.LightDirectional, nil
	case "spot":
		return shadow.LightSpot, nil
	case "point":
		return shadow.LightPoint, nil
	}
	return 0, fmt.Errorf("unknown light type %q", s)
}

func parseShadowMode(s string) (shadow.ShadowMode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return shadow.ShadowsNone, nil
	case "hard":
		return shadow.ShadowsHard, nil
	case "soft":
		return shadow.ShadowsSoft, nil
	}
	return 0, fmt.Errorf("unknown shadow mode %q", s)
}

// VisibleLights returns the lights in scene order.
func (s *Scene) VisibleLights() []lighting.VisibleLight {
	out := make([]lighting.VisibleLight, len(s.Lights))
	for i, l := range s.Lights {
		out[i] = l.Visible
	}
	return out
}

// Culler returns the culling results of the scene's camera, limited to
// maxDistance.
func (s *Scene) Culler(maxDistance float32) *culling.Provider {
	geometry := make([]culling.Light, len(s.Lights))
	for i, l := range s.Lights {
		geometry[i] = l.Geometry
	}
	return culling.New(s.Camera, geometry, s.Casters, maxDistance)
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
