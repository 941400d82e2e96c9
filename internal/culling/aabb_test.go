package culling

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/midgard-shadows/internal/shadow"
)

func box(minX, minY, minZ, maxX, maxY, maxZ float32) AABB {
	return AABB{Min: mgl32.Vec3{minX, minY, minZ}, Max: mgl32.Vec3{maxX, maxY, maxZ}}
}

func TestAABBGeometry(t *testing.T) {
	b := box(0, 0, 0, 2, 4, 4)
	assert.Equal(t, mgl32.Vec3{1, 2, 2}, b.Center())
	assert.InDelta(t, 3, b.Radius(), 1e-6)

	u := b.Union(box(-1, 1, 1, 1, 5, 2))
	assert.Equal(t, box(-1, 0, 0, 2, 5, 4), u)
}

func TestAABBSphereTests(t *testing.T) {
	b := box(-1, -1, -1, 1, 1, 1)

	assert.True(t, b.IntersectsSphere(mgl32.Vec4{0, 0, 0, 0.1}))
	assert.True(t, b.IntersectsSphere(mgl32.Vec4{2, 0, 0, 1}))
	assert.False(t, b.IntersectsSphere(mgl32.Vec4{3, 0, 0, 1}))
	assert.False(t, b.IntersectsSphere(mgl32.Vec4{2, 2, 2, 1.5}))

	assert.True(t, b.InsideSphere(mgl32.Vec4{0, 0, 0, 2}))
	assert.False(t, b.InsideSphere(mgl32.Vec4{0, 0, 0, 1.5}))
	assert.False(t, b.InsideSphere(mgl32.Vec4{1, 0, 0, 2}))
}

func TestSelectCasters(t *testing.T) {
	casters := []AABB{
		box(-1, -1, -1, 1, 1, 1),
		// straddles the cascade edge
		box(8, -1, -1, 9, 1, 1),
		box(50, 50, 50, 51, 51, 51),
		box(-0.5, 3, -0.5, 0.5, 4, 0.5),
	}
	split := shadow.SplitData{CullingSphere: mgl32.Vec4{0, 0, 0, 10}}

	assert.Equal(t, []int{0, 1, 3}, SelectCasters(split, mgl32.Vec4{}, casters))

	// Previous cascade of radius 5 scaled by 0.7 fully holds caster 0 only.
	split.BlendCullingFactor = 0.7
	assert.Equal(t, []int{1, 3}, SelectCasters(split, mgl32.Vec4{0, 0, 0, 5}, casters))

	// A zero factor disables blend culling.
	split.BlendCullingFactor = 0
	assert.Equal(t, []int{0, 1, 3}, SelectCasters(split, mgl32.Vec4{0, 0, 0, 5}, casters))
}
