package record

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-shadows/internal/shadow"
)

func TestPoolReusesReleasedTargets(t *testing.T) {
	b := New()

	a, err := b.AllocateDepthTarget(1024, 1024, 32)
	require.NoError(t, err)
	require.NoError(t, b.ReleaseTarget(a))

	again, err := b.AllocateDepthTarget(1024, 1024, 32)
	require.NoError(t, err)
	assert.Equal(t, a, again)

	other, err := b.AllocateDepthTarget(512, 512, 32)
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
	assert.Equal(t, 2, b.Live())
}

func TestReleaseUnknownTarget(t *testing.T) {
	b := New()
	err := b.ReleaseTarget(7)
	assert.ErrorIs(t, err, ErrUnknownTarget)

	id, err := b.AllocateDepthTarget(1, 1, 32)
	require.NoError(t, err)
	require.NoError(t, b.ReleaseTarget(id))
	assert.ErrorIs(t, b.ReleaseTarget(id), ErrUnknownTarget)
}

func TestDrawViewportBounds(t *testing.T) {
	b := New()
	id, err := b.AllocateDepthTarget(256, 256, 32)
	require.NoError(t, err)

	ok := shadow.DrawRequest{Target: id, Viewport: shadow.Rect{X: 128, Y: 128, Width: 128, Height: 128}}
	require.NoError(t, b.SubmitShadowDraws(ok))

	bad := shadow.DrawRequest{Target: id, Viewport: shadow.Rect{X: 200, Y: 0, Width: 128, Height: 128}}
	assert.Error(t, b.SubmitShadowDraws(bad))
	assert.Len(t, b.Draws(), 1)
}

func TestFailAllocation(t *testing.T) {
	b := New()
	b.FailAllocation = errors.New("out of memory")
	b.FailWidth = 2048

	_, err := b.AllocateDepthTarget(1024, 1024, 32)
	require.NoError(t, err)
	_, err = b.AllocateDepthTarget(2048, 2048, 32)
	assert.EqualError(t, err, "out of memory")
}

func TestPublishCopiesGlobals(t *testing.T) {
	b := New()
	g := &shadow.Globals{CascadeCount: 2}
	require.NoError(t, b.Publish(g))
	g.CascadeCount = 4
	assert.Equal(t, 2, b.Globals.CascadeCount)
}
