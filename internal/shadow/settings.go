package shadow

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// FilterMode selects the PCF kernel used when sampling a shadow atlas.
// PCF2x2 relies on the hardware bilinear comparison only and enables no
// shading variant.
type FilterMode int

const (
	FilterPCF2x2 FilterMode = iota
	FilterPCF3x3
	FilterPCF5x5
	FilterPCF7x7
)

var filterNames = [...]string{"pcf2x2", "pcf3x3", "pcf5x5", "pcf7x7"}

func (f FilterMode) String() string {
	if f < 0 || int(f) >= len(filterNames) {
		return fmt.Sprintf("FilterMode(%d)", int(f))
	}
	return filterNames[f]
}

// TapRadius returns the filter footprint in texels used to size biases
// and cascade margins.
func (f FilterMode) TapRadius() float32 {
	return float32(f) + 1
}

// MarshalText implements encoding.TextMarshaler.
func (f FilterMode) MarshalText() ([]byte, error) {
	if f < 0 || int(f) >= len(filterNames) {
		return nil, fmt.Errorf("invalid filter mode %d", int(f))
	}
	return []byte(filterNames[f]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *FilterMode) UnmarshalText(text []byte) error {
	for i, name := range filterNames {
		if name == string(text) {
			*f = FilterMode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown filter mode %q", text)
}

// CascadeBlendMode controls how neighbouring cascades are blended.
type CascadeBlendMode int

const (
	CascadeBlendHard CascadeBlendMode = iota
	CascadeBlendSoft
	CascadeBlendDither
)

var cascadeBlendNames = [...]string{"hard", "soft", "dither"}

func (b CascadeBlendMode) String() string {
	if b < 0 || int(b) >= len(cascadeBlendNames) {
		return fmt.Sprintf("CascadeBlendMode(%d)", int(b))
	}
	return cascadeBlendNames[b]
}

// MarshalText implements encoding.TextMarshaler.
func (b CascadeBlendMode) MarshalText() ([]byte, error) {
	if b < 0 || int(b) >= len(cascadeBlendNames) {
		return nil, fmt.Errorf("invalid cascade blend mode %d", int(b))
	}
	return []byte(cascadeBlendNames[b]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *CascadeBlendMode) UnmarshalText(text []byte) error {
	for i, name := range cascadeBlendNames {
		if name == string(text) {
			*b = CascadeBlendMode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown cascade blend mode %q", text)
}

// ShadowmaskMode mirrors the quality setting that decides whether baked
// shadow masks replace real-time shadows everywhere or only past the
// shadow distance.
type ShadowmaskMode int

const (
	ShadowmaskAlways ShadowmaskMode = iota
	ShadowmaskDistance
)

var shadowmaskNames = [...]string{"shadowmask", "distance_shadowmask"}

func (m ShadowmaskMode) String() string {
	if m < 0 || int(m) >= len(shadowmaskNames) {
		return fmt.Sprintf("ShadowmaskMode(%d)", int(m))
	}
	return shadowmaskNames[m]
}

// MarshalText implements encoding.TextMarshaler.
func (m ShadowmaskMode) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= len(shadowmaskNames) {
		return nil, fmt.Errorf("invalid shadowmask mode %d", int(m))
	}
	return []byte(shadowmaskNames[m]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ShadowmaskMode) UnmarshalText(text []byte) error {
	for i, name := range shadowmaskNames {
		if name == string(text) {
			*m = ShadowmaskMode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown shadowmask mode %q", text)
}

// Atlas resolutions accepted for both atlases.
const (
	MinAtlasSize = 256
	MaxAtlasSize = 8192
)

// Settings holds the shadow configuration of the render pipeline.
type Settings struct {
	MaxDistance    float32             `yaml:"max_distance"`
	DistanceFade   float32             `yaml:"distance_fade"`
	ShadowmaskMode ShadowmaskMode      `yaml:"shadowmask_mode"`
	Directional    DirectionalSettings `yaml:"directional"`
	Other          OtherSettings       `yaml:"other"`
}

// DirectionalSettings configures the directional (cascaded) atlas.
type DirectionalSettings struct {
	AtlasSize     int              `yaml:"atlas_size"`
	Filter        FilterMode       `yaml:"filter"`
	CascadeCount  int              `yaml:"cascade_count"`
	CascadeRatio1 float32          `yaml:"cascade_ratio1"`
	CascadeRatio2 float32          `yaml:"cascade_ratio2"`
	CascadeRatio3 float32          `yaml:"cascade_ratio3"`
	CascadeFade   float32          `yaml:"cascade_fade"`
	CascadeBlend  CascadeBlendMode `yaml:"cascade_blend"`
}

// CascadeRatios returns the split ratios as passed to the culling provider.
func (d DirectionalSettings) CascadeRatios() mgl32.Vec3 {
	return mgl32.Vec3{d.CascadeRatio1, d.CascadeRatio2, d.CascadeRatio3}
}

// OtherSettings configures the spot/point light atlas.
type OtherSettings struct {
	AtlasSize int        `yaml:"atlas_size"`
	Filter    FilterMode `yaml:"filter"`
}

// DefaultSettings returns the settings a new pipeline starts with.
func DefaultSettings() Settings {
	return Settings{
		MaxDistance:    100,
		DistanceFade:   0.1,
		ShadowmaskMode: ShadowmaskDistance,
		Directional: DirectionalSettings{
			AtlasSize:     1024,
			Filter:        FilterPCF2x2,
			CascadeCount:  4,
			CascadeRatio1: 0.1,
			CascadeRatio2: 0.25,
			CascadeRatio3: 0.5,
			CascadeFade:   0.1,
			CascadeBlend:  CascadeBlendHard,
		},
		Other: OtherSettings{
			AtlasSize: 1024,
			Filter:    FilterPCF2x2,
		},
	}
}

// Validate reports every problem found in s, joined into one error
// wrapping ErrInvalidSettings.
func (s Settings) Validate() error {
	var errs []error
	if s.MaxDistance <= 0 {
		errs = append(errs, fmt.Errorf("max_distance must be positive, got %g", s.MaxDistance))
	}
	if s.DistanceFade <= 0 || s.DistanceFade > 1 {
		errs = append(errs, fmt.Errorf("distance_fade must be in (0, 1], got %g", s.DistanceFade))
	}
	if s.ShadowmaskMode != ShadowmaskAlways && s.ShadowmaskMode != ShadowmaskDistance {
		errs = append(errs, fmt.Errorf("invalid shadowmask mode %d", int(s.ShadowmaskMode)))
	}

	d := s.Directional
	if err := validateAtlasSize("directional", d.AtlasSize); err != nil {
		errs = append(errs, err)
	}
	if err := validateFilter("directional", d.Filter); err != nil {
		errs = append(errs, err)
	}
	if d.CascadeCount < 1 || d.CascadeCount > MaxCascades {
		errs = append(errs, fmt.Errorf("directional.cascade_count must be in 1..%d, got %d", MaxCascades, d.CascadeCount))
	}
	ratios := d.CascadeRatios()
	prev := float32(0)
	for i := 0; i < d.CascadeCount-1 && i < 3; i++ {
		if ratios[i] <= prev || ratios[i] >= 1 {
			errs = append(errs, fmt.Errorf("directional.cascade_ratio%d must be in (%g, 1), got %g", i+1, prev, ratios[i]))
		}
		prev = ratios[i]
	}
	if d.CascadeFade <= 0 || d.CascadeFade > 1 {
		errs = append(errs, fmt.Errorf("directional.cascade_fade must be in (0, 1], got %g", d.CascadeFade))
	}
	if d.CascadeBlend < CascadeBlendHard || d.CascadeBlend > CascadeBlendDither {
		errs = append(errs, fmt.Errorf("invalid directional.cascade_blend %d", int(d.CascadeBlend)))
	}

	if err := validateAtlasSize("other", s.Other.AtlasSize); err != nil {
		errs = append(errs, err)
	}
	if err := validateFilter("other", s.Other.Filter); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
}

func validateAtlasSize(name string, size int) error {
	if size < MinAtlasSize || size > MaxAtlasSize || size&(size-1) != 0 {
		return fmt.Errorf("%s.atlas_size must be a power of two in %d..%d, got %d", name, MinAtlasSize, MaxAtlasSize, size)
	}
	return nil
}

func validateFilter(name string, f FilterMode) error {
	if f < FilterPCF2x2 || f > FilterPCF7x7 {
		return fmt.Errorf("invalid %s.filter %d", name, int(f))
	}
	return nil
}
