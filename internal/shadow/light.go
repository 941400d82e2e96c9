package shadow

// LightType identifies how a light's shadow is rendered.
type LightType int

const (
	LightDirectional LightType = iota
	LightSpot
	LightPoint
)

func (t LightType) String() string {
	switch t {
	case LightDirectional:
		return "directional"
	case LightSpot:
		return "spot"
	case LightPoint:
		return "point"
	}
	return "unknown"
}

// ShadowMode is the per-light shadow toggle.
type ShadowMode int

const (
	ShadowsNone ShadowMode = iota
	ShadowsHard
	ShadowsSoft
)

// BakeType describes how a light was treated by the lightmapper.
type BakeType int

const (
	BakeRealtime BakeType = iota
	BakeBaked
	BakeMixed
)

// MixedLightingMode is the mixed lighting mode a light was baked with.
type MixedLightingMode int

const (
	MixedIndirectOnly MixedLightingMode = iota
	MixedSubtractive
	MixedShadowmask
)

// BakingOutput is the lightmapper's record for a light.
type BakingOutput struct {
	BakeType             BakeType
	MixedMode            MixedLightingMode
	OcclusionMaskChannel int
}

// usesShadowmask reports whether the light contributes a baked
// shadow-mask channel.
func (b BakingOutput) usesShadowmask() bool {
	return b.BakeType == BakeMixed && b.MixedMode == MixedShadowmask
}

// Light is the shadow-relevant part of a scene light.
type Light struct {
	Type             LightType
	Shadows          ShadowMode
	ShadowStrength   float32
	ShadowBias       float32 // slope-scale depth bias
	ShadowNormalBias float32
	ShadowNearPlane  float32
	Baking           BakingOutput
}

func (l Light) castsShadows() bool {
	return l.Shadows != ShadowsNone && l.ShadowStrength > 0
}
