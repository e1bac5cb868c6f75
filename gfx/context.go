// Package gfx defines the graphics-context abstraction the renderer is
// written against.
//
// The host application (the windowing/surface layer) supplies a Context
// implementation wrapping a live graphics API; backend/opengl provides one
// for OpenGL 3.3 core. All resource handles are opaque uint64 IDs so that
// implementations can map them onto whatever handle type their API uses.
//
// A Context is not safe for concurrent use. The renderer issues every call
// on a single goroutine, and implementations may assume the same.
package gfx

import (
	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
)

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// FramebufferID is an opaque handle to a framebuffer.
// DefaultFramebuffer (zero) is the real, visible surface.
type FramebufferID uint64

// ShaderID is an opaque handle to a compiled shader stage.
type ShaderID uint64

// ProgramID is an opaque handle to a linked program.
type ProgramID uint64

// UniformLocation is a binding handle for a program uniform.
type UniformLocation int32

// AttribLocation is the slot index of a program vertex attribute.
type AttribLocation uint32

// InvalidID is the zero value of every handle type, representing no resource.
const InvalidID = 0

// DefaultFramebuffer addresses the host-provided drawable surface.
const DefaultFramebuffer FramebufferID = 0

// Size is a framebuffer or texture extent in device pixels.
type Size struct {
	Width  int
	Height int
}

// Scale returns the size multiplied componentwise by (sx, sy).
func (s Size) Scale(sx, sy int) Size {
	return Size{Width: s.Width * sx, Height: s.Height * sy}
}

// IsEmpty reports whether either dimension is zero or negative.
func (s Size) IsEmpty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// BufferKind tags a buffer as holding vertex-array or index data.
type BufferKind uint8

const (
	// BufferKindVertex is a vertex attribute buffer.
	BufferKindVertex BufferKind = iota

	// BufferKindIndex is an element index buffer (32-bit indices).
	BufferKindIndex
)

// ShaderStage identifies a shader pipeline stage.
type ShaderStage uint8

const (
	// StageVertex is the vertex stage.
	StageVertex ShaderStage = iota

	// StageFragment is the fragment stage.
	StageFragment
)

// String returns the stage name as it appears in diagnostics.
func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// TextureFilter selects the sampling filter for a texture.
type TextureFilter uint8

const (
	// FilterNearest is nearest-neighbor sampling.
	FilterNearest TextureFilter = iota

	// FilterLinear is bilinear sampling.
	FilterLinear
)

// TextureDescriptor describes a 2D texture. Wrap mode is always
// clamp-to-edge; the renderer has no use for repeating textures.
type TextureDescriptor struct {
	// Label is an optional debug label, carried into error messages.
	Label string

	// Width and Height are the extent in texels.
	Width  int
	Height int

	// Format is the texel format.
	Format gputypes.TextureFormat

	// Filter is the min/mag sampling filter.
	Filter TextureFilter
}

// FramebufferDescriptor describes an offscreen render target.
type FramebufferDescriptor struct {
	// Label is an optional debug label, carried into error messages.
	Label string

	// Color lists the color attachments in slot order. At least one is
	// required; more than one requires the context to report an equal or
	// greater Capabilities.MaxColorAttachments.
	Color []TextureID

	// Depth, when non-empty, attaches a depth buffer of the given size.
	// The depth buffer is owned by the framebuffer and released with it.
	Depth Size
}

// Capabilities reports what the underlying context supports. The renderer
// refuses to start when a required capability is missing.
type Capabilities struct {
	// MaxColorAttachments is the number of simultaneous color attachments
	// a framebuffer may carry.
	MaxColorAttachments int

	// ElementIndexUint reports whether 32-bit index buffers are supported.
	ElementIndexUint bool
}

// DepthFunc is the depth comparison function.
type DepthFunc uint8

const (
	// DepthGreater passes fragments with depth greater than stored.
	// Paired with a zero depth clear this makes larger values win.
	DepthGreater DepthFunc = iota

	// DepthAlways passes every fragment.
	DepthAlways
)

// DepthState configures the depth test for a draw.
type DepthState struct {
	Func  DepthFunc
	Write bool
}

// BlendMode selects a blending equation for a draw.
type BlendMode uint8

const (
	// BlendSourceOver is standard source-over alpha compositing.
	BlendSourceOver BlendMode = iota
)

// BlendState configures blending for a draw.
type BlendState struct {
	Mode BlendMode
}

// RenderState carries the full draw state for one draw call. A nil Depth
// disables the depth test; a nil Blend disables blending. Passing the
// state with every draw keeps transitions explicit and makes the phase
// ordering auditable.
type RenderState struct {
	Depth *DepthState
	Blend *BlendState
}

// ClearParams selects which aspects of the bound target to clear.
// Nil fields are left untouched.
type ClearParams struct {
	Color *f32.Vec4
	Depth *float64
}

// AttribType is the component type of a vertex attribute.
type AttribType uint8

const (
	// AttribFloat is a 32-bit float component.
	AttribFloat AttribType = iota

	// AttribUnsignedShort is a 16-bit unsigned component.
	AttribUnsignedShort

	// AttribUnsignedByte is an 8-bit unsigned component.
	AttribUnsignedByte

	// AttribByte is an 8-bit signed component.
	AttribByte
)

// VertexAttr describes one vertex attribute stream sourced from the most
// recently bound vertex buffer.
type VertexAttr struct {
	Slot       AttribLocation
	Size       int
	Type       AttribType
	Normalized bool
	Stride     int
	Offset     int
}

// Context is the GPU interface the renderer draws through.
//
// Creation calls return an error (ResourceCreationError or
// IncompleteFramebufferError) when the backend rejects the resource; all
// other calls are fire-and-forget, matching the underlying APIs.
type Context interface {
	// Capabilities reports the context's static limits.
	Capabilities() Capabilities

	// CreateBuffer allocates a GPU buffer of the given kind and uploads
	// data with a static usage hint. No further writes follow.
	CreateBuffer(kind BufferKind, data []byte) (BufferID, error)

	// DeleteBuffer releases a buffer. Deleting InvalidID is a no-op.
	DeleteBuffer(BufferID)

	// CreateTexture allocates a texture and uploads pixels, which must be
	// nil (undefined contents) or exactly the texture's byte capacity.
	CreateTexture(desc TextureDescriptor, pixels []byte) (TextureID, error)

	// DeleteTexture releases a texture. Deleting InvalidID is a no-op.
	DeleteTexture(TextureID)

	// CreateFramebuffer builds an offscreen target and verifies its
	// completeness. Attached textures remain owned by the caller; the
	// depth buffer, if any, is owned by the framebuffer.
	CreateFramebuffer(desc FramebufferDescriptor) (FramebufferID, error)

	// DeleteFramebuffer releases a framebuffer and its depth buffer.
	// Deleting DefaultFramebuffer is a no-op.
	DeleteFramebuffer(FramebufferID)

	// BindFramebuffer makes a framebuffer the render target.
	BindFramebuffer(FramebufferID)

	// DrawBuffers enables the first n color attachments of the bound
	// framebuffer for writing.
	DrawBuffers(n int)

	// ClearColorAttachment clears the color attachment mapped to one
	// draw-buffer slot of the bound framebuffer without touching the
	// others. The slot must already be mapped via DrawBuffers; a fresh
	// framebuffer only has slot 0 mapped.
	ClearColorAttachment(attachment int, color f32.Vec4)

	// Viewport sets the render viewport of the bound framebuffer.
	Viewport(x, y, width, height int)

	// Clear clears the bound framebuffer per params.
	Clear(params ClearParams)

	// CompileShader compiles one stage. On failure the returned error
	// carries the backend's diagnostic text.
	CompileShader(stage ShaderStage, source string) (ShaderID, error)

	// DeleteShader releases a compiled stage. Stages may be deleted as
	// soon as the programs using them are linked.
	DeleteShader(ShaderID)

	// LinkProgram links a vertex/fragment pair. On failure the returned
	// error carries the backend's diagnostic text.
	LinkProgram(label string, vertex, fragment ShaderID) (ProgramID, error)

	// DeleteProgram releases a linked program.
	DeleteProgram(ProgramID)

	// ActiveUniforms enumerates every active uniform of a linked program.
	ActiveUniforms(ProgramID) map[string]UniformLocation

	// ActiveAttribs enumerates every active vertex attribute of a linked
	// program.
	ActiveAttribs(ProgramID) map[string]AttribLocation

	// UseProgram makes a program current for subsequent uniform and draw
	// calls.
	UseProgram(ProgramID)

	// UniformMat4 sets a mat4 uniform.
	UniformMat4(UniformLocation, f32.Mat4)

	// Uniform2F sets a vec2 uniform.
	Uniform2F(UniformLocation, float32, float32)

	// Uniform1I sets an int or sampler uniform.
	Uniform1I(UniformLocation, int32)

	// BindTexture binds a texture to a texture unit.
	BindTexture(unit int, tex TextureID)

	// BindVertexBuffer binds the source buffer for following VertexAttrib
	// calls.
	BindVertexBuffer(BufferID)

	// VertexAttrib configures and enables one attribute stream from the
	// bound vertex buffer.
	VertexAttrib(VertexAttr)

	// BindIndexBuffer binds the element index buffer (32-bit indices).
	BindIndexBuffer(BufferID)

	// DrawElements issues one indexed triangle draw of count indices under
	// the given state.
	DrawElements(count int, state RenderState)

	// ReadPixels reads the bound framebuffer's RGBA8 contents, bottom row
	// first, into a tightly packed buffer of width*height*4 bytes.
	ReadPixels(x, y, width, height int) ([]byte, error)
}
