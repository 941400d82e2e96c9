package glbackend

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/culling"
	"github.com/Faultbox/midgard-shadows/internal/lighting"
	"github.com/Faultbox/midgard-shadows/internal/logger"
	"github.com/Faultbox/midgard-shadows/internal/shadow"
)

const receiverVertexShader = `#version 410 core
layout(location = 0) in vec3 aPosition;

uniform mat4 uViewProj;
uniform mat4 uModel;

out vec3 vWorldPos;

void main() {
    vec4 world = uModel * vec4(aPosition, 1.0);
    vWorldPos = world.xyz;
    gl_Position = uViewProj * world;
}
`

const receiverFragmentShader = `#version 410 core
in vec3 vWorldPos;
out vec4 FragColor;

#define MAX_DIRECTIONAL_LIGHTS 4
#define MAX_CASCADES 4
#define MAX_OTHER_LIGHTS 64
#define MAX_OTHER_TILES 16

#if defined(_DIRECTIONAL_PCF7)
#define DIRECTIONAL_FILTER_RADIUS 3
#elif defined(_DIRECTIONAL_PCF5)
#define DIRECTIONAL_FILTER_RADIUS 2
#elif defined(_DIRECTIONAL_PCF3)
#define DIRECTIONAL_FILTER_RADIUS 1
#else
#define DIRECTIONAL_FILTER_RADIUS 0
#endif

#if defined(_OTHER_PCF7)
#define OTHER_FILTER_RADIUS 3
#elif defined(_OTHER_PCF5)
#define OTHER_FILTER_RADIUS 2
#elif defined(_OTHER_PCF3)
#define OTHER_FILTER_RADIUS 1
#else
#define OTHER_FILTER_RADIUS 0
#endif

uniform sampler2DShadow _DirectionalShadowAtlas;
uniform sampler2DShadow _OtherShadowAtlas;
uniform mat4 _DirectionalShadowMatrices[MAX_DIRECTIONAL_LIGHTS * MAX_CASCADES];
uniform mat4 _OtherShadowMatrices[MAX_OTHER_TILES];
uniform vec4 _OtherShadowTiles[MAX_OTHER_TILES];
uniform int _CascadeCount;
uniform vec4 _CascadeCullingSpheres[MAX_CASCADES];
uniform vec4 _CascadeData[MAX_CASCADES];
uniform vec4 _ShadowAtlasSize;
uniform vec4 _ShadowDistanceFade;

uniform int _DirectionalLightCount;
uniform vec4 _DirectionalLightColors[MAX_DIRECTIONAL_LIGHTS];
uniform vec4 _DirectionalLightDirections[MAX_DIRECTIONAL_LIGHTS];
uniform vec4 _DirectionalLightShadowData[MAX_DIRECTIONAL_LIGHTS];
uniform int _OtherLightCount;
uniform vec4 _OtherLightColors[MAX_OTHER_LIGHTS];
uniform vec4 _OtherLightPositions[MAX_OTHER_LIGHTS];
uniform vec4 _OtherLightDirections[MAX_OTHER_LIGHTS];
uniform vec4 _OtherLightSpotAngles[MAX_OTHER_LIGHTS];
uniform vec4 _OtherLightShadowData[MAX_OTHER_LIGHTS];

uniform vec3 uCameraPosition;
uniform vec3 uCameraForward;

const vec3 albedo = vec3(0.8);
const vec3 ambient = vec3(0.03);

// Scenes carry no lightmaps, so baked occlusion never darkens.
const float bakedShadow = 1.0;

// Vectors from a point light towards the plane of each cube face.
const vec3 cubeFacePlanes[6] = vec3[](
    vec3(-1.0, 0.0, 0.0), vec3(1.0, 0.0, 0.0),
    vec3(0.0, -1.0, 0.0), vec3(0.0, 1.0, 0.0),
    vec3(0.0, 0.0, -1.0), vec3(0.0, 0.0, 1.0)
);

struct Cascade {
    int index;
    float blend;
    float strength;
};

float square(float x) {
    return x * x;
}

float fadedStrength(float distance, float scale, float fade) {
    return clamp((1.0 - distance * scale) * fade, 0.0, 1.0);
}

// window is (x, y, size) of the atlas region the kernel may read.
float sampleFiltered(sampler2DShadow atlas, vec3 uvz, float texel, int radius, vec3 window) {
    float sum = 0.0;
    for (int x = -radius; x <= radius; x++) {
        for (int y = -radius; y <= radius; y++) {
            vec2 uv = clamp(uvz.xy + vec2(x, y) * texel, window.xy, window.xy + window.zz);
            sum += texture(atlas, vec3(uv, uvz.z));
        }
    }
    return sum / float((2 * radius + 1) * (2 * radius + 1));
}

float mixBaked(float realtime, float strength) {
#if defined(_SHADOW_MASK_ALWAYS)
    return min(bakedShadow, mix(1.0, realtime, strength));
#elif defined(_SHADOW_MASK_DISTANCE)
    return mix(bakedShadow, realtime, strength);
#else
    return mix(1.0, realtime, strength);
#endif
}

Cascade selectCascade(vec3 pos, float depth) {
    Cascade c;
    c.blend = 1.0;
    c.strength = fadedStrength(depth, _ShadowDistanceFade.x, _ShadowDistanceFade.y);

    int i;
    for (i = 0; i < _CascadeCount; i++) {
        vec4 sphere = _CascadeCullingSpheres[i];
        vec3 d = pos - sphere.xyz;
        float distanceSq = dot(d, d);
        if (distanceSq < sphere.w) {
            float fade = fadedStrength(distanceSq, _CascadeData[i].x, _ShadowDistanceFade.z);
            if (i == _CascadeCount - 1) {
                c.strength *= fade;
            } else {
                c.blend = fade;
            }
            break;
        }
    }
    if (i == _CascadeCount && _CascadeCount > 0) {
        c.strength = 0.0;
    }
#if defined(_CASCADE_BLEND_DITHER)
    float dither = fract(52.9829189 * fract(dot(gl_FragCoord.xy, vec2(0.06711056, 0.00583715))));
    if (c.blend < dither) {
        i += 1;
    }
#endif
#if !defined(_CASCADE_BLEND_SOFT)
    c.blend = 1.0;
#endif
    c.index = i;
    return c;
}

float sampleDirectional(int tile, vec3 pos) {
    vec3 uvz = (_DirectionalShadowMatrices[tile] * vec4(pos, 1.0)).xyz;
    return sampleFiltered(_DirectionalShadowAtlas, uvz, _ShadowAtlasSize.y,
        DIRECTIONAL_FILTER_RADIUS, vec3(0.0, 0.0, 1.0));
}

float directionalShadow(int light, vec3 pos, vec3 normal, Cascade cascade) {
    vec4 data = _DirectionalLightShadowData[light];
    if (data.x <= 0.0 || cascade.strength <= 0.0 || cascade.index >= _CascadeCount) {
        return bakedShadow;
    }
    int tile = int(data.y) + cascade.index;
    vec3 bias = normal * (data.z * _CascadeData[cascade.index].y);
    float shadow = sampleDirectional(tile, pos + bias);
    if (cascade.blend < 1.0) {
        bias = normal * (data.z * _CascadeData[cascade.index + 1].y);
        shadow = mix(sampleDirectional(tile + 1, pos + bias), shadow, cascade.blend);
    }
    return mixBaked(shadow, data.x * cascade.strength);
}

int cubeFace(vec3 d) {
    vec3 a = abs(d);
    if (a.x >= a.y && a.x >= a.z) {
        return d.x > 0.0 ? 0 : 1;
    }
    if (a.y >= a.z) {
        return d.y > 0.0 ? 2 : 3;
    }
    return d.z > 0.0 ? 4 : 5;
}

float otherShadow(int light, vec3 pos, vec3 normal, float strength) {
    vec4 data = _OtherLightShadowData[light];
    if (data.x <= 0.0 || strength <= 0.0) {
        return bakedShadow;
    }
    vec3 toLight = _OtherLightPositions[light].xyz - pos;
    int tile = int(data.y);
    vec3 plane = _OtherLightDirections[light].xyz;
    if (data.z == 1.0) {
        int face = cubeFace(-toLight);
        tile += face;
        plane = cubeFacePlanes[face];
    }
    vec4 window = _OtherShadowTiles[tile];
    vec3 bias = normal * (dot(toLight, plane) * window.w);
    vec4 clip = _OtherShadowMatrices[tile] * vec4(pos + bias, 1.0);
    float shadow = sampleFiltered(_OtherShadowAtlas, clip.xyz / clip.w, _ShadowAtlasSize.w,
        OTHER_FILTER_RADIUS, window.xyz);
    return mixBaked(shadow, data.x * strength);
}

void main() {
    vec3 normal = normalize(cross(dFdx(vWorldPos), dFdy(vWorldPos)));
    float depth = dot(vWorldPos - uCameraPosition, uCameraForward);
    Cascade cascade = selectCascade(vWorldPos, depth);
    float strength = fadedStrength(depth, _ShadowDistanceFade.x, _ShadowDistanceFade.y);

    vec3 light = ambient;
    for (int i = 0; i < _DirectionalLightCount; i++) {
        float ndotl = max(dot(normal, _DirectionalLightDirections[i].xyz), 0.0);
        light += _DirectionalLightColors[i].rgb * ndotl * directionalShadow(i, vWorldPos, normal, cascade);
    }
    for (int i = 0; i < _OtherLightCount; i++) {
        vec4 position = _OtherLightPositions[i];
        vec3 toLight = position.xyz - vWorldPos;
        float distanceSq = max(dot(toLight, toLight), 0.00001);
        vec3 l = toLight * inversesqrt(distanceSq);
        float rangeAttenuation = square(clamp(1.0 - square(distanceSq * position.w), 0.0, 1.0));
        vec4 spotAngles = _OtherLightSpotAngles[i];
        float spotAttenuation = square(clamp(dot(_OtherLightDirections[i].xyz, l) * spotAngles.x + spotAngles.y, 0.0, 1.0));
        float ndotl = max(dot(normal, l), 0.0);
        float attenuation = spotAttenuation * rangeAttenuation / distanceSq;
        light += _OtherLightColors[i].rgb * ndotl * attenuation * otherShadow(i, vWorldPos, normal, strength);
    }

    FragColor = vec4(pow(albedo * light, vec3(1.0 / 2.2)), 1.0);
}
`

// atlasUnit is the first texture unit the receiver binds shadow atlases to.
const atlasUnit = 0

// Receiver shades the caster boxes from the scene camera, lit by the
// visible lights and shadowed through the published atlases. It renders
// into its own framebuffer so hidden windows can still be captured.
type Receiver struct {
	backend *Backend
	// Programs by #define block, one per shading variant seen.
	programs map[string]uint32

	fbo    uint32
	color  uint32
	depth  uint32
	width  int32
	height int32
}

// NewReceiver creates a width×height color target for the receiver pass.
func NewReceiver(b *Backend, width, height int) (*Receiver, error) {
	r := &Receiver{
		backend:  b,
		programs: make(map[string]uint32),
		width:    int32(width),
		height:   int32(height),
	}

	gl.GenFramebuffers(1, &r.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, r.fbo)

	gl.GenRenderbuffers(1, &r.color)
	gl.BindRenderbuffer(gl.RENDERBUFFER, r.color)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.RGBA8, r.width, r.height)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.RENDERBUFFER, r.color)

	gl.GenRenderbuffers(1, &r.depth)
	gl.BindRenderbuffer(gl.RENDERBUFFER, r.depth)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, r.width, r.height)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, r.depth)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		r.Destroy()
		return nil, fmt.Errorf("receiver framebuffer %dx%d incomplete: 0x%x", width, height, status)
	}
	return r, nil
}

func (r *Receiver) program(v shadow.Variants) (uint32, error) {
	defines := Defines(v)
	if p, ok := r.programs[defines]; ok {
		return p, nil
	}
	p, err := CompileProgram(receiverVertexShader, withDefines(receiverFragmentShader, defines))
	if err != nil {
		return 0, fmt.Errorf("compiling receiver variant %v: %w", v.Keywords(), err)
	}
	r.programs[defines] = p
	logger.Debug("compiled receiver variant", zap.Strings("keywords", v.Keywords()))
	return p, nil
}

// Draw renders casters as seen from cam. It must run after the shadow
// atlases are published and before the frame is cleaned up.
func (r *Receiver) Draw(cam culling.Camera, casters []culling.AABB, lights *lighting.Globals) error {
	g := r.backend.Globals()
	if g == nil {
		return errors.New("glbackend: no shadow globals published")
	}
	program, err := r.program(g.Variants)
	if err != nil {
		return err
	}
	if err := r.backend.ApplyUniforms(program, atlasUnit); err != nil {
		return err
	}
	applyLights(program, lights)

	viewProj := cam.Projection().Mul4(cam.View())
	forward := cam.Forward.Normalize()
	gl.UniformMatrix4fv(uniform(program, "uViewProj"), 1, false, &viewProj[0])
	gl.Uniform3fv(uniform(program, "uCameraPosition"), 1, &cam.Position[0])
	gl.Uniform3fv(uniform(program, "uCameraForward"), 1, &forward[0])
	locModel := uniform(program, "uModel")

	gl.BindFramebuffer(gl.FRAMEBUFFER, r.fbo)
	gl.Viewport(0, 0, r.width, r.height)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.DepthMask(true)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)
	gl.ClearDepth(1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	gl.BindVertexArray(r.backend.vao)
	for _, box := range casters {
		model := casterModel(box)
		gl.UniformMatrix4fv(locModel, 1, false, &model[0])
		gl.DrawArrays(gl.TRIANGLES, 0, r.backend.vertexCount)
	}
	gl.BindVertexArray(0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	if glErr := gl.GetError(); glErr != gl.NO_ERROR {
		return fmt.Errorf("receiver pass: GL error 0x%x", glErr)
	}
	return nil
}

// Pixels reads back the last Draw as RGBA, bottom row first.
func (r *Receiver) Pixels() (pixels []byte, width, height int) {
	pixels = make([]byte, int(r.width)*int(r.height)*4)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, r.fbo)
	gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, r.width, r.height, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&pixels[0]))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	return pixels, int(r.width), int(r.height)
}

// Present stretches the last Draw over the default framebuffer.
func (r *Receiver) Present(width, height int) {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, r.fbo)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	gl.BlitFramebuffer(0, 0, r.width, r.height, 0, 0, int32(width), int32(height), gl.COLOR_BUFFER_BIT, gl.LINEAR)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// Destroy releases the receiver's programs and framebuffer.
func (r *Receiver) Destroy() {
	for key, p := range r.programs {
		gl.DeleteProgram(p)
		delete(r.programs, key)
	}
	if r.color != 0 {
		gl.DeleteRenderbuffers(1, &r.color)
		r.color = 0
	}
	if r.depth != 0 {
		gl.DeleteRenderbuffers(1, &r.depth)
		r.depth = 0
	}
	if r.fbo != 0 {
		gl.DeleteFramebuffers(1, &r.fbo)
		r.fbo = 0
	}
}
