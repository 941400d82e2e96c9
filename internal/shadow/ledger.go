package shadow

import (
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/logger"
)

// Per-frame capacities.
const (
	MaxDirectionalLights = 4
	MaxCascades          = 4
	MaxOtherTiles        = 16
)

type directionalEntry struct {
	visibleLight    int
	slopeScaleBias  float32
	nearPlaneOffset float32
}

type otherEntry struct {
	visibleLight   int
	slopeScaleBias float32
	normalBias     float32
	isPoint        bool
}

// ledger records which lights own atlas tiles this frame. The arrays are
// reused every frame; only the counts are authoritative.
type ledger struct {
	directional      [MaxDirectionalLights]directionalEntry
	directionalCount int

	// other is indexed by first tile; a point light's entry is followed by
	// five unused slots.
	other      [MaxOtherTiles]otherEntry
	otherCount int

	useShadowMask bool
}

func (l *ledger) reset() {
	l.directionalCount = 0
	l.otherCount = 0
	l.useShadowMask = false
}

// maskChannel returns the light's shadow-mask channel or -1 and flags the
// frame as needing shadow-mask sampling.
func (l *ledger) maskChannel(light Light) int {
	if !light.Baking.usesShadowmask() {
		return -1
	}
	l.useShadowMask = true
	return light.Baking.OcclusionMaskChannel
}

func (l *ledger) reserveDirectional(light Light, visibleLight, cascadeCount int, culler Culler) Reservation {
	if !light.castsShadows() {
		return disabledReservation()
	}
	if l.directionalCount >= MaxDirectionalLights {
		logger.Debug("directional shadow capacity exhausted", zap.Int("visibleLight", visibleLight))
		return disabledReservation()
	}

	mask := l.maskChannel(light)
	if _, ok := culler.ShadowCasterBounds(visibleLight); !ok {
		logger.Debug("no shadow casters for directional light", zap.Int("visibleLight", visibleLight))
		r := bakedOnlyReservation(light.ShadowStrength, mask)
		r.directional = true
		return r
	}

	l.directional[l.directionalCount] = directionalEntry{
		visibleLight:    visibleLight,
		slopeScaleBias:  light.ShadowBias,
		nearPlaneOffset: light.ShadowNearPlane,
	}
	r := Reservation{
		Kind:        ShadowActive,
		Strength:    light.ShadowStrength,
		Slot:        cascadeCount * l.directionalCount,
		NormalBias:  light.ShadowNormalBias,
		MaskChannel: mask,
		directional: true,
	}
	l.directionalCount++
	return r
}

func (l *ledger) reserveOther(light Light, visibleLight int, culler Culler) Reservation {
	if !light.castsShadows() {
		return disabledReservation()
	}

	mask := l.maskChannel(light)
	isPoint := light.Type == LightPoint
	tiles := 1
	if isPoint {
		tiles = CubeFaceCount
	}

	// All six faces or nothing: the shader addresses faces as slot+face.
	if l.otherCount+tiles > MaxOtherTiles {
		logger.Debug("other shadow capacity exhausted",
			zap.Int("visibleLight", visibleLight),
			zap.Int("used", l.otherCount),
			zap.Int("needed", tiles),
		)
		return bakedOnlyReservation(light.ShadowStrength, mask)
	}
	if _, ok := culler.ShadowCasterBounds(visibleLight); !ok {
		logger.Debug("no shadow casters for light", zap.Int("visibleLight", visibleLight))
		return bakedOnlyReservation(light.ShadowStrength, mask)
	}

	l.other[l.otherCount] = otherEntry{
		visibleLight:   visibleLight,
		slopeScaleBias: light.ShadowBias,
		normalBias:     light.ShadowNormalBias,
		isPoint:        isPoint,
	}
	r := Reservation{
		Kind:        ShadowActive,
		Strength:    light.ShadowStrength,
		Slot:        l.otherCount,
		IsPoint:     isPoint,
		MaskChannel: mask,
	}
	l.otherCount += tiles
	return r
}
