package shadow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultSettingsValid(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero distance", func(s *Settings) { s.MaxDistance = 0 }},
		{"fade above one", func(s *Settings) { s.DistanceFade = 1.5 }},
		{"atlas not power of two", func(s *Settings) { s.Directional.AtlasSize = 1000 }},
		{"atlas too small", func(s *Settings) { s.Other.AtlasSize = 128 }},
		{"too many cascades", func(s *Settings) { s.Directional.CascadeCount = 5 }},
		{"no cascades", func(s *Settings) { s.Directional.CascadeCount = 0 }},
		{"ratios not increasing", func(s *Settings) { s.Directional.CascadeRatio2 = 0.05 }},
		{"bad filter", func(s *Settings) { s.Other.Filter = 9 }},
		{"bad blend", func(s *Settings) { s.Directional.CascadeBlend = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)
		})
	}
}

func TestValidateIgnoresUnusedRatios(t *testing.T) {
	s := DefaultSettings()
	s.Directional.CascadeCount = 2
	s.Directional.CascadeRatio2 = 0
	s.Directional.CascadeRatio3 = 0
	assert.NoError(t, s.Validate())
}

func TestSettingsYAML(t *testing.T) {
	src := `
max_distance: 50
distance_fade: 0.2
shadowmask_mode: shadowmask
directional:
  atlas_size: 2048
  filter: pcf5x5
  cascade_count: 2
  cascade_ratio1: 0.3
  cascade_fade: 0.2
  cascade_blend: soft
other:
  atlas_size: 512
  filter: pcf7x7
`
	s := DefaultSettings()
	require.NoError(t, yaml.Unmarshal([]byte(src), &s))
	assert.Equal(t, float32(50), s.MaxDistance)
	assert.Equal(t, ShadowmaskAlways, s.ShadowmaskMode)
	assert.Equal(t, FilterPCF5x5, s.Directional.Filter)
	assert.Equal(t, CascadeBlendSoft, s.Directional.CascadeBlend)
	assert.Equal(t, FilterPCF7x7, s.Other.Filter)
	assert.Equal(t, 512, s.Other.AtlasSize)
	// Untouched fields keep their defaults.
	assert.Equal(t, float32(0.25), s.Directional.CascadeRatio2)
	require.NoError(t, s.Validate())

	out, err := yaml.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(out), "filter: pcf5x5")
	assert.Contains(t, string(out), "cascade_blend: soft")

	bad := DefaultSettings()
	assert.Error(t, yaml.Unmarshal([]byte("directional:\n  filter: pcf9x9\n"), &bad))
}
