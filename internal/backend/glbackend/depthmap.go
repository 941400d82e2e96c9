package glbackend

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// depthMap is a depth-only framebuffer whose texture is sampled with
// hardware comparison.
type depthMap struct {
	fbo     uint32
	texture uint32
	width   int32
	height  int32
	inUse   bool
}

func newDepthMap(width, height int32, reversedZ bool) (*depthMap, error) {
	dm := &depthMap{width: width, height: height}

	gl.GenFramebuffers(1, &dm.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, dm.fbo)

	gl.GenTextures(1, &dm.texture)
	gl.BindTexture(gl.TEXTURE_2D, dm.texture)
	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		gl.DEPTH_COMPONENT32F,
		width,
		height,
		0,
		gl.DEPTH_COMPONENT,
		gl.FLOAT,
		nil,
	)

	// Bilinear comparison gives the 2x2 tent for free
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	// Clamp to border at the far value so lookups outside the atlas are lit
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
	far := float32(1)
	compare := int32(gl.LEQUAL)
	if reversedZ {
		far = 0
		compare = gl.GEQUAL
	}
	borderColor := []float32{far, far, far, far}
	gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &borderColor[0])

	// Enable shadow comparison mode for sampler2DShadow
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_COMPARE_MODE, gl.COMPARE_REF_TO_TEXTURE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_COMPARE_FUNC, compare)

	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, dm.texture, 0)

	// No color buffer for shadow pass
	gl.DrawBuffer(gl.NONE)
	gl.ReadBuffer(gl.NONE)

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		dm.destroy()
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return nil, fmt.Errorf("depth framebuffer %dx%d incomplete: 0x%x", width, height, status)
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return dm, nil
}

// clear resets the whole map to the far depth.
func (dm *depthMap) clear(far float32) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, dm.fbo)
	gl.Viewport(0, 0, dm.width, dm.height)
	gl.Disable(gl.SCISSOR_TEST)
	gl.DepthMask(true)
	gl.ClearDepth(float64(far))
	gl.Clear(gl.DEPTH_BUFFER_BIT)
}

// read copies the depth values, bottom row first.
func (dm *depthMap) read() []float32 {
	depth := make([]float32, int(dm.width)*int(dm.height))
	gl.BindFramebuffer(gl.FRAMEBUFFER, dm.fbo)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 4)
	gl.ReadPixels(0, 0, dm.width, dm.height, gl.DEPTH_COMPONENT, gl.FLOAT, gl.Ptr(&depth[0]))
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return depth
}

func (dm *depthMap) destroy() {
	if dm.fbo != 0 {
		gl.DeleteFramebuffers(1, &dm.fbo)
		dm.fbo = 0
	}
	if dm.texture != 0 {
		gl.DeleteTextures(1, &dm.texture)
		dm.texture = 0
	}
}
