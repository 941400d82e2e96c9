package shadow

// Shader keyword sets. Exactly one keyword of a set is enabled, or none
// when the variant index is -1.
var (
	DirectionalFilterKeywords = []string{
		"_DIRECTIONAL_PCF3",
		"_DIRECTIONAL_PCF5",
		"_DIRECTIONAL_PCF7",
	}
	OtherFilterKeywords = []string{
		"_OTHER_PCF3",
		"_OTHER_PCF5",
		"_OTHER_PCF7",
	}
	CascadeBlendKeywords = []string{
		"_CASCADE_BLEND_SOFT",
		"_CASCADE_BLEND_DITHER",
	}
	ShadowMaskKeywords = []string{
		"_SHADOW_MASK_ALWAYS",
		"_SHADOW_MASK_DISTANCE",
	}
)

// Variants holds the selected index into each keyword set; -1 disables
// the whole set.
type Variants struct {
	DirectionalFilter int
	OtherFilter       int
	CascadeBlend      int
	ShadowMask        int
}

// SelectVariants maps settings onto shading variants.
func SelectVariants(s Settings, useShadowMask bool) Variants {
	mask := -1
	if useShadowMask {
		mask = int(s.ShadowmaskMode)
	}
	return Variants{
		DirectionalFilter: int(s.Directional.Filter) - 1,
		OtherFilter:       int(s.Other.Filter) - 1,
		CascadeBlend:      int(s.Directional.CascadeBlend) - 1,
		ShadowMask:        mask,
	}
}

// Keywords returns the enabled keywords across all sets.
func (v Variants) Keywords() []string {
	var enabled []string
	for _, set := range []struct {
		keywords []string
		index    int
	}{
		{DirectionalFilterKeywords, v.DirectionalFilter},
		{OtherFilterKeywords, v.OtherFilter},
		{CascadeBlendKeywords, v.CascadeBlend},
		{ShadowMaskKeywords, v.ShadowMask},
	} {
		if kw, ok := keywordAt(set.keywords, set.index); ok {
			enabled = append(enabled, kw)
		}
	}
	return enabled
}

func keywordAt(keywords []string, index int) (string, bool) {
	if index < 0 || index >= len(keywords) {
		return "", false
	}
	return keywords[index], true
}
