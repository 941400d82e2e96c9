package shadow

import "github.com/go-gl/mathgl/mgl32"

// ReservationKind tells the lighting stage what a reservation produced.
type ReservationKind int

const (
	// ShadowDisabled: the light casts no shadows at all.
	ShadowDisabled ReservationKind = iota
	// ShadowBakedOnly: no real-time shadow this frame (no casters in range
	// or no atlas space left) but the baked shadow-mask term still applies.
	ShadowBakedOnly
	// ShadowActive: the light owns atlas tiles this frame.
	ShadowActive
)

func (k ReservationKind) String() string {
	switch k {
	case ShadowDisabled:
		return "disabled"
	case ShadowBakedOnly:
		return "baked-only"
	case ShadowActive:
		return "active"
	}
	return "unknown"
}

// Reservation is the result of reserving shadows for one visible light.
type Reservation struct {
	Kind     ReservationKind
	Strength float32
	// Slot is the first atlas tile of the light. For directional lights it
	// is the cascade base (cascadeCount * directional index).
	Slot       int
	NormalBias float32
	IsPoint    bool
	// MaskChannel is the shadow-mask channel or -1.
	MaskChannel int

	directional bool
}

func disabledReservation() Reservation {
	return Reservation{Kind: ShadowDisabled, MaskChannel: -1}
}

func bakedOnlyReservation(strength float32, maskChannel int) Reservation {
	return Reservation{Kind: ShadowBakedOnly, Strength: strength, MaskChannel: maskChannel}
}

// Vector packs r the way the shading stage reads it. Baked-only results
// carry a negated strength: the shader skips the real-time lookup for
// strength <= 0 but still uses |strength| for the baked mask.
func (r Reservation) Vector() mgl32.Vec4 {
	switch r.Kind {
	case ShadowBakedOnly:
		return mgl32.Vec4{-r.Strength, 0, 0, float32(r.MaskChannel)}
	case ShadowActive:
		if r.directional {
			return mgl32.Vec4{r.Strength, float32(r.Slot), r.NormalBias, float32(r.MaskChannel)}
		}
		isPoint := float32(0)
		if r.IsPoint {
			isPoint = 1
		}
		return mgl32.Vec4{r.Strength, float32(r.Slot), isPoint, float32(r.MaskChannel)}
	}
	return mgl32.Vec4{0, 0, 0, -1}
}
