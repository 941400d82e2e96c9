package culling

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-shadows/internal/shadow"
)

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Center returns the center point of the AABB.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Radius returns the distance from center to corner (half-diagonal).
func (b AABB) Radius() float32 {
	return b.Max.Sub(b.Min).Mul(0.5).Len()
}

// Union returns the smallest box holding b and o.
func (b AABB) Union(o AABB) AABB {
	return AABB{
		Min: mgl32.Vec3{min(b.Min[0], o.Min[0]), min(b.Min[1], o.Min[1]), min(b.Min[2], o.Min[2])},
		Max: mgl32.Vec3{max(b.Max[0], o.Max[0]), max(b.Max[1], o.Max[1]), max(b.Max[2], o.Max[2])},
	}
}

// IntersectsSphere reports whether b touches the sphere (xyz centre, w radius).
func (b AABB) IntersectsSphere(s mgl32.Vec4) bool {
	var d2 float32
	for i := 0; i < 3; i++ {
		c := s[i]
		if c < b.Min[i] {
			d2 += (b.Min[i] - c) * (b.Min[i] - c)
		} else if c > b.Max[i] {
			d2 += (c - b.Max[i]) * (c - b.Max[i])
		}
	}
	return d2 <= s[3]*s[3]
}

// InsideSphere reports whether all of b lies within the sphere.
func (b AABB) InsideSphere(s mgl32.Vec4) bool {
	var d2 float32
	for i := 0; i < 3; i++ {
		far := max(abs32(b.Min[i]-s[i]), abs32(b.Max[i]-s[i]))
		d2 += far * far
	}
	return d2 <= s[3]*s[3]
}

// Bounds converts b to the shadow package's bounds type.
func (b AABB) Bounds() shadow.Bounds {
	return shadow.Bounds{Min: b.Min, Max: b.Max}
}

// SelectCasters returns the indices of casters to draw for a shadow view.
// previous is the culling sphere of the preceding cascade of the same
// light, or the zero vector. Casters entirely inside previous scaled by
// the split's blend culling factor are already fully covered there.
func SelectCasters(split shadow.SplitData, previous mgl32.Vec4, casters []AABB) []int {
	skip := previous
	skip[3] *= split.BlendCullingFactor

	var out []int
	for i, c := range casters {
		if !c.IntersectsSphere(split.CullingSphere) {
			continue
		}
		if skip[3] > 0 && c.InsideSphere(skip) {
			continue
		}
		out = append(out, i)
	}
	return out
}

func abs32(x float32) float32 {
	return float32(math.Abs(float64(x)))
}
