package metadata

import "github.com/go-gl/mathgl/mgl32"

type BufferUsage uint8

const (
	BufferUsageStatic BufferUsage = iota
	BufferUsageDynamic
	BufferUsageStream
)

type IndexType uint8

const (
	IndexTypeUint16 IndexType = iota
	IndexTypeUint32
)

func (t IndexType) Size() uint32 {
	if t == IndexTypeUint32 {
		return 4
	}
	return 2
}

type Winding uint8

const (
	WindingCCW Winding = iota
	WindingCW
)

type PolygonMode uint8

const (
	PolygonModeFill PolygonMode = iota
	PolygonModeLine
)

type BlendEquation uint8

const (
	BlendEquationAdd BlendEquation = iota
	BlendEquationSubtract
	BlendEquationReverseSubtract
	BlendEquationMin
	BlendEquationMax
)

type BlendFunc uint8

const (
	BlendFuncZero BlendFunc = iota
	BlendFuncOne
	BlendFuncSrcColor
	BlendFuncOneMinusSrcColor
	BlendFuncDstColor
	BlendFuncOneMinusDstColor
	BlendFuncSrcAlpha
	BlendFuncOneMinusSrcAlpha
	BlendFuncDstAlpha
	BlendFuncOneMinusDstAlpha
	BlendFuncConstantColor
	BlendFuncOneMinusConstantColor
	BlendFuncSrcAlphaSaturate
)

/** @brief Back face culling. Winding selects which orientation is the front face. */
type CullState struct {
	Enabled bool
	Winding Winding
}

type DepthState struct {
	Test  bool
	Write bool
}

/** @brief Equation and factors are kept separately for colour and alpha. */
type BlendState struct {
	Enabled       bool
	EquationRGB   BlendEquation
	EquationAlpha BlendEquation
	SrcRGB        BlendFunc
	DstRGB        BlendFunc
	SrcAlpha      BlendFunc
	DstAlpha      BlendFunc
}

// BlendParams is the part of a BlendState compared as one tuple when
// applying state.
type BlendParams struct {
	EquationRGB, EquationAlpha         BlendEquation
	SrcRGB, DstRGB, SrcAlpha, DstAlpha BlendFunc
}

func (b BlendState) Params() BlendParams {
	return BlendParams{
		EquationRGB:   b.EquationRGB,
		EquationAlpha: b.EquationAlpha,
		SrcRGB:        b.SrcRGB,
		DstRGB:        b.DstRGB,
		SrcAlpha:      b.SrcAlpha,
		DstAlpha:      b.DstAlpha,
	}
}

// AdditiveBlend is One/One with the Add equation on both channels.
func AdditiveBlend() BlendState {
	return BlendState{
		Enabled:       true,
		EquationRGB:   BlendEquationAdd,
		EquationAlpha: BlendEquationAdd,
		SrcRGB:        BlendFuncOne,
		DstRGB:        BlendFuncOne,
		SrcAlpha:      BlendFuncOne,
		DstAlpha:      BlendFuncOne,
	}
}

// AlphaBlend is classic non premultiplied alpha blending.
func AlphaBlend() BlendState {
	return BlendState{
		Enabled:       true,
		EquationRGB:   BlendEquationAdd,
		EquationAlpha: BlendEquationAdd,
		SrcRGB:        BlendFuncSrcAlpha,
		DstRGB:        BlendFuncOneMinusSrcAlpha,
		SrcAlpha:      BlendFuncOne,
		DstAlpha:      BlendFuncOneMinusSrcAlpha,
	}
}

type Scissor struct {
	Enabled bool
	X, Y    int32
	Width   uint32
	Height  uint32
}

type RenderState struct {
	Cull        CullState
	PolygonMode PolygonMode
	Depth       DepthState
	ColorWrite  bool
	Blend       BlendState
}

// DefaultRenderState culls back faces with counter clockwise fronts, fills
// polygons, tests and writes depth, writes colour and does not blend.
func DefaultRenderState() RenderState {
	return RenderState{
		Cull:        CullState{Enabled: true, Winding: WindingCCW},
		PolygonMode: PolygonModeFill,
		Depth:       DepthState{Test: true, Write: true},
		ColorWrite:  true,
		Blend: BlendState{
			EquationRGB:   BlendEquationAdd,
			EquationAlpha: BlendEquationAdd,
			SrcRGB:        BlendFuncOne,
			DstRGB:        BlendFuncZero,
			SrcAlpha:      BlendFuncOne,
			DstAlpha:      BlendFuncZero,
		},
	}
}

/** @brief A texture bound to a sampler binding location for one draw. */
type TextureBinding struct {
	Location uint32
	Texture  TextureHandle
	Sampler  SamplerInfo
}

/**
 * @brief RenderItem is one draw with all of its state.
 *
 * VertexDecl is filled in at submit time with the layout of the bound vertex
 * buffer, or with the transient layout when a transient buffer was used.
 */
type RenderItem struct {
	VertexBuffer VertexBufferHandle
	VertexOffset uint32
	VertexDecl   VertexDecl

	IndexBuffer IndexBufferHandle
	IndexOffset uint32
	IndexType   IndexType

	PrimitiveCount uint32
	Program        ProgramHandle

	Uniforms map[string]UniformValue
	Textures []TextureBinding
	Scissor  Scissor
	State    RenderState
}

// NewRenderItem returns an item with default state and nothing bound.
func NewRenderItem() RenderItem {
	return RenderItem{
		Uniforms: make(map[string]UniformValue),
		State:    DefaultRenderState(),
	}
}

// SetTexture replaces the binding at location or appends a new one.
func (r *RenderItem) SetTexture(location uint32, texture TextureHandle, sampler SamplerInfo) {
	for i := range r.Textures {
		if r.Textures[i].Location == location {
			r.Textures[i].Texture = texture
			r.Textures[i].Sampler = sampler
			return
		}
	}
	r.Textures = append(r.Textures, TextureBinding{Location: location, Texture: texture, Sampler: sampler})
}

func (r *RenderItem) IsIndexed() bool {
	return r.IndexBuffer.IsValid()
}

// VertexCount is the number of vertices (or indices) the draw consumes.
func (r *RenderItem) VertexCount() uint32 {
	return r.PrimitiveCount * 3
}

/** @brief Pending clear of a render queue. */
type ClearState struct {
	Color      mgl32.Vec4
	ClearColor bool
	ClearDepth bool
}

/**
 * @brief An ordered group of render items targeting one framebuffer. An
 * invalid Framebuffer targets the swapchain image.
 */
type RenderQueue struct {
	Clear       *ClearState
	Framebuffer FramebufferHandle
	Items       []RenderItem
}
