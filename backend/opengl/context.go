// Package opengl implements gfx.Context on desktop OpenGL 3.3 core.
//
// The caller owns window and context creation; a GL context must be
// current on the calling goroutine before New and for every call after
// it. All IDs returned are the raw GL object names widened to the gfx ID
// types, so the default framebuffer maps to gfx.DefaultFramebuffer.
package opengl

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"

	"github.com/vgpu/glyphview/gfx"
)

// Context is an OpenGL-backed gfx.Context.
type Context struct {
	caps gfx.Capabilities

	// vao is the single vertex array the context renders with. Core
	// profile requires one bound; attribute layout is re-specified before
	// every pass, so one is enough.
	vao uint32

	// depthBuffers tracks the depth renderbuffer owned by each
	// framebuffer so DeleteFramebuffer can release it.
	depthBuffers map[gfx.FramebufferID]uint32
}

// New loads the OpenGL function pointers from the current context and
// captures its limits.
func New() (*Context, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("opengl: initialize bindings: %w", err)
	}
	var maxAttachments int32
	gl.GetIntegerv(gl.MAX_COLOR_ATTACHMENTS, &maxAttachments)
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	return &Context{
		vao: vao,
		caps: gfx.Capabilities{
			MaxColorAttachments: int(maxAttachments),
			// Core profile 3.3 mandates 32-bit element indices.
			ElementIndexUint: true,
		},
		depthBuffers: make(map[gfx.FramebufferID]uint32),
	}, nil
}

// Capabilities implements gfx.Context.
func (c *Context) Capabilities() gfx.Capabilities { return c.caps }

// Close releases the context's own GL objects. Resources created through
// the context remain owned by their creators.
func (c *Context) Close() {
	gl.DeleteVertexArrays(1, &c.vao)
	c.vao = 0
}

func bufferTarget(kind gfx.BufferKind) uint32 {
	if kind == gfx.BufferKindIndex {
		return gl.ELEMENT_ARRAY_BUFFER
	}
	return gl.ARRAY_BUFFER
}

// CreateBuffer implements gfx.Context.
func (c *Context) CreateBuffer(kind gfx.BufferKind, data []byte) (gfx.BufferID, error) {
	var name uint32
	gl.GenBuffers(1, &name)
	if name == 0 {
		return gfx.InvalidID, &gfx.ResourceCreationError{Kind: "buffer", Err: glError()}
	}
	target := bufferTarget(kind)
	gl.BindBuffer(target, name)
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	gl.BufferData(target, len(data), ptr, gl.STATIC_DRAW)
	if err := glError(); err != nil {
		gl.DeleteBuffers(1, &name)
		return gfx.InvalidID, &gfx.ResourceCreationError{Kind: "buffer", Err: err}
	}
	return gfx.BufferID(name), nil
}

// DeleteBuffer implements gfx.Context.
func (c *Context) DeleteBuffer(id gfx.BufferID) {
	if id == gfx.InvalidID {
		return
	}
	name := uint32(id)
	gl.DeleteBuffers(1, &name)
}

func textureFormats(format gputypes.TextureFormat) (internal int32, layout, kind uint32, err error) {
	switch format {
	case gputypes.TextureFormatRGBA8Unorm:
		return gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE, nil
	default:
		return 0, 0, 0, fmt.Errorf("opengl: unsupported texture format %d", format)
	}
}

func textureFilter(filter gfx.TextureFilter) int32 {
	if filter == gfx.FilterLinear {
		return gl.LINEAR
	}
	return gl.NEAREST
}

// CreateTexture implements gfx.Context.
func (c *Context) CreateTexture(desc gfx.TextureDescriptor, pixels []byte) (gfx.TextureID, error) {
	internal, layout, kind, err := textureFormats(desc.Format)
	if err != nil {
		return gfx.InvalidID, &gfx.ResourceCreationError{Kind: "texture", Label: desc.Label, Err: err}
	}
	if pixels != nil && len(pixels) != desc.Width*desc.Height*4 {
		return gfx.InvalidID, &gfx.ResourceCreationError{
			Kind:  "texture",
			Label: desc.Label,
			Err:   fmt.Errorf("pixel data is %d bytes, texture holds %d", len(pixels), desc.Width*desc.Height*4),
		}
	}

	var name uint32
	gl.GenTextures(1, &name)
	if name == 0 {
		return gfx.InvalidID, &gfx.ResourceCreationError{Kind: "texture", Label: desc.Label, Err: glError()}
	}
	gl.BindTexture(gl.TEXTURE_2D, name)
	var ptr unsafe.Pointer
	if pixels != nil {
		ptr = gl.Ptr(pixels)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(desc.Width), int32(desc.Height), 0, layout, kind, ptr)
	filter := textureFilter(desc.Filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	if err := glError(); err != nil {
		gl.DeleteTextures(1, &name)
		return gfx.InvalidID, &gfx.ResourceCreationError{Kind: "texture", Label: desc.Label, Err: err}
	}
	return gfx.TextureID(name), nil
}

// DeleteTexture implements gfx.Context.
func (c *Context) DeleteTexture(id gfx.TextureID) {
	if id == gfx.InvalidID {
		return
	}
	name := uint32(id)
	gl.DeleteTextures(1, &name)
}

// CreateFramebuffer implements gfx.Context.
func (c *Context) CreateFramebuffer(desc gfx.FramebufferDescriptor) (gfx.FramebufferID, error) {
	var name uint32
	gl.GenFramebuffers(1, &name)
	if name == 0 {
		return gfx.InvalidID, &gfx.ResourceCreationError{Kind: "framebuffer", Label: desc.Label, Err: glError()}
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, name)
	for i, tex := range desc.Color {
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0+uint32(i), gl.TEXTURE_2D, uint32(tex), 0)
	}

	var depth uint32
	if !desc.Depth.IsEmpty() {
		gl.GenRenderbuffers(1, &depth)
		gl.BindRenderbuffer(gl.RENDERBUFFER, depth)
		gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, int32(desc.Depth.Width), int32(desc.Depth.Height))
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, depth)
	}

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &name)
		if depth != 0 {
			gl.DeleteRenderbuffers(1, &depth)
		}
		return gfx.InvalidID, &gfx.IncompleteFramebufferError{Label: desc.Label, Status: fmt.Sprintf("0x%04x", status)}
	}

	id := gfx.FramebufferID(name)
	if depth != 0 {
		c.depthBuffers[id] = depth
	}
	return id, nil
}

// DeleteFramebuffer implements gfx.Context.
func (c *Context) DeleteFramebuffer(id gfx.FramebufferID) {
	if id == gfx.DefaultFramebuffer {
		return
	}
	name := uint32(id)
	gl.DeleteFramebuffers(1, &name)
	if depth, ok := c.depthBuffers[id]; ok {
		gl.DeleteRenderbuffers(1, &depth)
		delete(c.depthBuffers, id)
	}
}

// BindFramebuffer implements gfx.Context.
func (c *Context) BindFramebuffer(id gfx.FramebufferID) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(id))
}

// DrawBuffers implements gfx.Context.
func (c *Context) DrawBuffers(n int) {
	if n <= 0 {
		return
	}
	bufs := make([]uint32, n)
	for i := range bufs {
		bufs[i] = gl.COLOR_ATTACHMENT0 + uint32(i)
	}
	gl.DrawBuffers(int32(n), &bufs[0])
}

// ClearColorAttachment implements gfx.Context.
func (c *Context) ClearColorAttachment(attachment int, color f32.Vec4) {
	gl.ClearBufferfv(gl.COLOR, int32(attachment), &color[0])
}

// Viewport implements gfx.Context.
func (c *Context) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

// Clear implements gfx.Context.
func (c *Context) Clear(params gfx.ClearParams) {
	var mask uint32
	if params.Color != nil {
		col := *params.Color
		gl.ClearColor(col[0], col[1], col[2], col[3])
		mask |= gl.COLOR_BUFFER_BIT
	}
	if params.Depth != nil {
		gl.ClearDepth(*params.Depth)
		// Depth clears obey the depth write mask.
		gl.DepthMask(true)
		mask |= gl.DEPTH_BUFFER_BIT
	}
	if mask != 0 {
		gl.Clear(mask)
	}
}

func shaderType(stage gfx.ShaderStage) uint32 {
	if stage == gfx.StageFragment {
		return gl.FRAGMENT_SHADER
	}
	return gl.VERTEX_SHADER
}

// CompileShader implements gfx.Context.
func (c *Context) CompileShader(stage gfx.ShaderStage, source string) (gfx.ShaderID, error) {
	name := gl.CreateShader(shaderType(stage))
	if name == 0 {
		return gfx.InvalidID, fmt.Errorf("opengl: create %s shader: %w", stage, glError())
	}
	sources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(name, 1, sources, nil)
	free()
	gl.CompileShader(name)

	var status int32
	gl.GetShaderiv(name, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		log := shaderInfoLog(name)
		gl.DeleteShader(name)
		return gfx.InvalidID, fmt.Errorf("%s", log)
	}
	return gfx.ShaderID(name), nil
}

func shaderInfoLog(name uint32) string {
	var length int32
	gl.GetShaderiv(name, gl.INFO_LOG_LENGTH, &length)
	if length == 0 {
		return "no diagnostic from driver"
	}
	log := strings.Repeat("\x00", int(length+1))
	gl.GetShaderInfoLog(name, length, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00")
}

func programInfoLog(name uint32) string {
	var length int32
	gl.GetProgramiv(name, gl.INFO_LOG_LENGTH, &length)
	if length == 0 {
		return "no diagnostic from driver"
	}
	log := strings.Repeat("\x00", int(length+1))
	gl.GetProgramInfoLog(name, length, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00")
}

// DeleteShader implements gfx.Context.
func (c *Context) DeleteShader(id gfx.ShaderID) {
	if id == gfx.InvalidID {
		return
	}
	gl.DeleteShader(uint32(id))
}

// LinkProgram implements gfx.Context.
func (c *Context) LinkProgram(label string, vertex, fragment gfx.ShaderID) (gfx.ProgramID, error) {
	name := gl.CreateProgram()
	if name == 0 {
		return gfx.InvalidID, fmt.Errorf("opengl: create program %q: %w", label, glError())
	}
	gl.AttachShader(name, uint32(vertex))
	gl.AttachShader(name, uint32(fragment))
	gl.LinkProgram(name)

	var status int32
	gl.GetProgramiv(name, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		log := programInfoLog(name)
		gl.DeleteProgram(name)
		return gfx.InvalidID, fmt.Errorf("%s", log)
	}
	return gfx.ProgramID(name), nil
}

// DeleteProgram implements gfx.Context.
func (c *Context) DeleteProgram(id gfx.ProgramID) {
	if id == gfx.InvalidID {
		return
	}
	gl.DeleteProgram(uint32(id))
}

// ActiveUniforms implements gfx.Context. Array uniforms report under
// their base name, without the "[0]" suffix.
func (c *Context) ActiveUniforms(id gfx.ProgramID) map[string]gfx.UniformLocation {
	name := uint32(id)
	var count int32
	gl.GetProgramiv(name, gl.ACTIVE_UNIFORMS, &count)
	uniforms := make(map[string]gfx.UniformLocation, count)
	buf := make([]byte, 256)
	for i := int32(0); i < count; i++ {
		var length, size int32
		var kind uint32
		gl.GetActiveUniform(name, uint32(i), int32(len(buf)), &length, &size, &kind, &buf[0])
		uname := strings.TrimSuffix(string(buf[:length]), "[0]")
		loc := gl.GetUniformLocation(name, gl.Str(uname+"\x00"))
		if loc < 0 {
			continue
		}
		uniforms[uname] = gfx.UniformLocation(loc)
	}
	return uniforms
}

// ActiveAttribs implements gfx.Context.
func (c *Context) ActiveAttribs(id gfx.ProgramID) map[string]gfx.AttribLocation {
	name := uint32(id)
	var count int32
	gl.GetProgramiv(name, gl.ACTIVE_ATTRIBUTES, &count)
	attribs := make(map[string]gfx.AttribLocation, count)
	buf := make([]byte, 256)
	for i := int32(0); i < count; i++ {
		var length, size int32
		var kind uint32
		gl.GetActiveAttrib(name, uint32(i), int32(len(buf)), &length, &size, &kind, &buf[0])
		aname := string(buf[:length])
		loc := gl.GetAttribLocation(name, gl.Str(aname+"\x00"))
		if loc < 0 {
			continue
		}
		attribs[aname] = gfx.AttribLocation(loc)
	}
	return attribs
}

// UseProgram implements gfx.Context.
func (c *Context) UseProgram(id gfx.ProgramID) {
	gl.UseProgram(uint32(id))
}

// UniformMat4 implements gfx.Context.
func (c *Context) UniformMat4(loc gfx.UniformLocation, m f32.Mat4) {
	gl.UniformMatrix4fv(int32(loc), 1, false, &m[0])
}

// Uniform2F implements gfx.Context.
func (c *Context) Uniform2F(loc gfx.UniformLocation, x, y float32) {
	gl.Uniform2f(int32(loc), x, y)
}

// Uniform1I implements gfx.Context.
func (c *Context) Uniform1I(loc gfx.UniformLocation, v int32) {
	gl.Uniform1i(int32(loc), v)
}

// BindTexture implements gfx.Context.
func (c *Context) BindTexture(unit int, tex gfx.TextureID) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
}

// BindVertexBuffer implements gfx.Context.
func (c *Context) BindVertexBuffer(id gfx.BufferID) {
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(id))
}

func attribType(t gfx.AttribType) uint32 {
	switch t {
	case gfx.AttribUnsignedShort:
		return gl.UNSIGNED_SHORT
	case gfx.AttribUnsignedByte:
		return gl.UNSIGNED_BYTE
	case gfx.AttribByte:
		return gl.BYTE
	default:
		return gl.FLOAT
	}
}

// VertexAttrib implements gfx.Context.
func (c *Context) VertexAttrib(attr gfx.VertexAttr) {
	slot := uint32(attr.Slot)
	gl.EnableVertexAttribArray(slot)
	gl.VertexAttribPointer(slot, int32(attr.Size), attribType(attr.Type), attr.Normalized,
		int32(attr.Stride), gl.PtrOffset(attr.Offset))
}

// BindIndexBuffer implements gfx.Context.
func (c *Context) BindIndexBuffer(id gfx.BufferID) {
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, uint32(id))
}

func applyRenderState(state gfx.RenderState) {
	if state.Depth != nil {
		gl.Enable(gl.DEPTH_TEST)
		if state.Depth.Func == gfx.DepthAlways {
			gl.DepthFunc(gl.ALWAYS)
		} else {
			gl.DepthFunc(gl.GREATER)
		}
		gl.DepthMask(state.Depth.Write)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	if state.Blend != nil {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	} else {
		gl.Disable(gl.BLEND)
	}
}

// DrawElements implements gfx.Context.
func (c *Context) DrawElements(count int, state gfx.RenderState) {
	applyRenderState(state)
	gl.DrawElements(gl.TRIANGLES, int32(count), gl.UNSIGNED_INT, gl.PtrOffset(0))
}

// ReadPixels implements gfx.Context.
func (c *Context) ReadPixels(x, y, width, height int) ([]byte, error) {
	pixels := make([]byte, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(int32(x), int32(y), int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	if err := glError(); err != nil {
		return nil, fmt.Errorf("opengl: read pixels: %w", err)
	}
	return pixels, nil
}

func glError() error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gl error 0x%04x", code)
	}
	return nil
}

var _ gfx.Context = (*Context)(nil)
