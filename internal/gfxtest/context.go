// Package gfxtest provides a recording, in-memory gfx.Context for tests.
//
// The fake tracks live resources so tests can assert leak-freedom, keeps
// an ordered operation log so tests can assert phase ordering, and derives
// active uniform/attribute sets from a naive scan of the shader source, so
// program introspection behaves like a real compiler's for straightforward
// declarations.
package gfxtest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vgpu/glyphview/gfx"
	"golang.org/x/image/math/f32"
)

// DrawCall records one DrawElements invocation.
type DrawCall struct {
	Framebuffer gfx.FramebufferID
	Program     gfx.ProgramID
	Count       int
	State       gfx.RenderState
}

type shader struct {
	stage    gfx.ShaderStage
	uniforms []string
	attribs  []string
}

type program struct {
	label    string
	uniforms map[string]gfx.UniformLocation
	attribs  map[string]gfx.AttribLocation
}

type texture struct {
	desc   gfx.TextureDescriptor
	pixels []byte
}

// Context is a fake gfx.Context. The zero value is not usable; call New.
type Context struct {
	caps gfx.Capabilities

	// Failure injection. When set, the matching call fails with the given
	// diagnostic text.
	FailCompile map[gfx.ShaderStage]string
	FailLink    string

	nextID uint64

	buffers      map[gfx.BufferID][]byte
	bufferKinds  map[gfx.BufferID]gfx.BufferKind
	textures     map[gfx.TextureID]texture
	framebuffers map[gfx.FramebufferID]gfx.FramebufferDescriptor
	shaders      map[gfx.ShaderID]shader
	programs     map[gfx.ProgramID]program

	bound      gfx.FramebufferID
	curProgram gfx.ProgramID
	clearColor f32.Vec4

	// Ops is the ordered log of state-changing calls, one terse entry per
	// call.
	Ops []string

	// Draws is the ordered log of draw calls.
	Draws []DrawCall
}

// New returns a fake context with sensible capabilities (8 color
// attachments, 32-bit indices).
func New() *Context {
	return &Context{
		caps:         gfx.Capabilities{MaxColorAttachments: 8, ElementIndexUint: true},
		buffers:      make(map[gfx.BufferID][]byte),
		bufferKinds:  make(map[gfx.BufferID]gfx.BufferKind),
		textures:     make(map[gfx.TextureID]texture),
		framebuffers: make(map[gfx.FramebufferID]gfx.FramebufferDescriptor),
		shaders:      make(map[gfx.ShaderID]shader),
		programs:     make(map[gfx.ProgramID]program),
	}
}

// SetCapabilities overrides the reported capabilities.
func (c *Context) SetCapabilities(caps gfx.Capabilities) { c.caps = caps }

// Capabilities implements gfx.Context.
func (c *Context) Capabilities() gfx.Capabilities { return c.caps }

func (c *Context) id() uint64 {
	c.nextID++
	return c.nextID
}

func (c *Context) log(format string, args ...any) {
	c.Ops = append(c.Ops, fmt.Sprintf(format, args...))
}

// LiveBuffers returns the number of undeleted buffers.
func (c *Context) LiveBuffers() int { return len(c.buffers) }

// LiveTextures returns the number of undeleted textures.
func (c *Context) LiveTextures() int { return len(c.textures) }

// LiveFramebuffers returns the number of undeleted framebuffers.
func (c *Context) LiveFramebuffers() int { return len(c.framebuffers) }

// LivePrograms returns the number of undeleted programs.
func (c *Context) LivePrograms() int { return len(c.programs) }

// LiveObjects returns the total number of undeleted GPU objects.
func (c *Context) LiveObjects() int {
	return len(c.buffers) + len(c.textures) + len(c.framebuffers) + len(c.programs)
}

// BufferKind reports the kind a buffer was created with.
func (c *Context) BufferKind(id gfx.BufferID) (gfx.BufferKind, bool) {
	k, ok := c.bufferKinds[id]
	return k, ok
}

// TextureSize reports the extent of a live texture.
func (c *Context) TextureSize(id gfx.TextureID) (gfx.Size, bool) {
	t, ok := c.textures[id]
	if !ok {
		return gfx.Size{}, false
	}
	return gfx.Size{Width: t.desc.Width, Height: t.desc.Height}, true
}

// TexturePixels returns the pixel data a live texture was created with.
func (c *Context) TexturePixels(id gfx.TextureID) ([]byte, bool) {
	t, ok := c.textures[id]
	return t.pixels, ok
}

// CreateBuffer implements gfx.Context.
func (c *Context) CreateBuffer(kind gfx.BufferKind, data []byte) (gfx.BufferID, error) {
	id := gfx.BufferID(c.id())
	c.buffers[id] = append([]byte(nil), data...)
	c.bufferKinds[id] = kind
	c.log("createBuffer %d kind=%d len=%d", id, kind, len(data))
	return id, nil
}

// DeleteBuffer implements gfx.Context.
func (c *Context) DeleteBuffer(id gfx.BufferID) {
	if id == gfx.InvalidID {
		return
	}
	delete(c.buffers, id)
	delete(c.bufferKinds, id)
	c.log("deleteBuffer %d", id)
}

// CreateTexture implements gfx.Context.
func (c *Context) CreateTexture(desc gfx.TextureDescriptor, pixels []byte) (gfx.TextureID, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return gfx.InvalidID, &gfx.ResourceCreationError{
			Kind:  "texture",
			Label: desc.Label,
			Err:   fmt.Errorf("invalid size %dx%d", desc.Width, desc.Height),
		}
	}
	id := gfx.TextureID(c.id())
	c.textures[id] = texture{desc: desc, pixels: append([]byte(nil), pixels...)}
	c.log("createTexture %d %q %dx%d", id, desc.Label, desc.Width, desc.Height)
	return id, nil
}

// DeleteTexture implements gfx.Context.
func (c *Context) DeleteTexture(id gfx.TextureID) {
	if id == gfx.InvalidID {
		return
	}
	delete(c.textures, id)
	c.log("deleteTexture %d", id)
}

// CreateFramebuffer implements gfx.Context.
func (c *Context) CreateFramebuffer(desc gfx.FramebufferDescriptor) (gfx.FramebufferID, error) {
	if len(desc.Color) == 0 {
		return gfx.DefaultFramebuffer, &gfx.IncompleteFramebufferError{Label: desc.Label, Status: "no color attachment"}
	}
	if len(desc.Color) > c.caps.MaxColorAttachments {
		return gfx.DefaultFramebuffer, &gfx.IncompleteFramebufferError{Label: desc.Label, Status: "too many color attachments"}
	}
	for _, tex := range desc.Color {
		if _, ok := c.textures[tex]; !ok {
			return gfx.DefaultFramebuffer, &gfx.IncompleteFramebufferError{Label: desc.Label, Status: "missing attachment texture"}
		}
	}
	id := gfx.FramebufferID(c.id())
	c.framebuffers[id] = desc
	c.log("createFramebuffer %d %q colors=%d", id, desc.Label, len(desc.Color))
	return id, nil
}

// DeleteFramebuffer implements gfx.Context.
func (c *Context) DeleteFramebuffer(id gfx.FramebufferID) {
	if id == gfx.DefaultFramebuffer {
		return
	}
	delete(c.framebuffers, id)
	c.log("deleteFramebuffer %d", id)
}

// BindFramebuffer implements gfx.Context.
func (c *Context) BindFramebuffer(id gfx.FramebufferID) {
	c.bound = id
	c.log("bindFramebuffer %d", id)
}

// Bound returns the currently bound framebuffer.
func (c *Context) Bound() gfx.FramebufferID { return c.bound }

// DrawBuffers implements gfx.Context.
func (c *Context) DrawBuffers(n int) {
	c.log("drawBuffers %d", n)
}

// ClearColorAttachment implements gfx.Context.
func (c *Context) ClearColorAttachment(attachment int, color f32.Vec4) {
	c.log("clearAttachment %d %v", attachment, color)
}

// Viewport implements gfx.Context.
func (c *Context) Viewport(x, y, width, height int) {
	c.log("viewport %d %d %d %d", x, y, width, height)
}

// Clear implements gfx.Context.
func (c *Context) Clear(params gfx.ClearParams) {
	if params.Color != nil {
		c.clearColor = *params.Color
		c.log("clearColor %v", *params.Color)
	}
	if params.Depth != nil {
		c.log("clearDepth %v", *params.Depth)
	}
}

// LastClearColor returns the most recent color clear value.
func (c *Context) LastClearColor() f32.Vec4 { return c.clearColor }

// CompileShader implements gfx.Context. Uniform and attribute names are
// scraped from lines of the form "uniform <type> <name>;" and
// "in <type> <name>;" (or "attribute ..."), which is enough for the
// program catalog's sources and for test fixtures.
func (c *Context) CompileShader(stage gfx.ShaderStage, source string) (gfx.ShaderID, error) {
	if msg, ok := c.FailCompile[stage]; ok {
		return gfx.InvalidID, errors.New(msg)
	}
	sh := shader{stage: stage}
	for _, line := range strings.Split(source, "\n") {
		fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(line), ";"))
		if len(fields) != 3 {
			continue
		}
		switch fields[0] {
		case "uniform":
			sh.uniforms = append(sh.uniforms, trimArray(fields[2]))
		case "attribute":
			sh.attribs = append(sh.attribs, fields[2])
		case "in":
			if stage == gfx.StageVertex {
				sh.attribs = append(sh.attribs, fields[2])
			}
		}
	}
	id := gfx.ShaderID(c.id())
	c.shaders[id] = sh
	c.log("compileShader %d stage=%s", id, stage)
	return id, nil
}

func trimArray(name string) string {
	if i := strings.IndexByte(name, '['); i >= 0 {
		return name[:i]
	}
	return name
}

// DeleteShader implements gfx.Context.
func (c *Context) DeleteShader(id gfx.ShaderID) {
	delete(c.shaders, id)
	c.log("deleteShader %d", id)
}

// LinkProgram implements gfx.Context.
func (c *Context) LinkProgram(label string, vertex, fragment gfx.ShaderID) (gfx.ProgramID, error) {
	if c.FailLink != "" {
		return gfx.InvalidID, errors.New(c.FailLink)
	}
	vs, okV := c.shaders[vertex]
	fs, okF := c.shaders[fragment]
	if !okV || !okF {
		return gfx.InvalidID, errors.New("unknown shader handle")
	}
	p := program{
		label:    label,
		uniforms: make(map[string]gfx.UniformLocation),
		attribs:  make(map[string]gfx.AttribLocation),
	}
	var loc gfx.UniformLocation
	for _, name := range append(append([]string(nil), vs.uniforms...), fs.uniforms...) {
		if _, ok := p.uniforms[name]; ok {
			continue
		}
		p.uniforms[name] = loc
		loc++
	}
	var slot gfx.AttribLocation
	for _, name := range vs.attribs {
		if _, ok := p.attribs[name]; ok {
			continue
		}
		p.attribs[name] = slot
		slot++
	}
	id := gfx.ProgramID(c.id())
	c.programs[id] = p
	c.log("linkProgram %d %q", id, label)
	return id, nil
}

// DeleteProgram implements gfx.Context.
func (c *Context) DeleteProgram(id gfx.ProgramID) {
	delete(c.programs, id)
	c.log("deleteProgram %d", id)
}

// ActiveUniforms implements gfx.Context.
func (c *Context) ActiveUniforms(id gfx.ProgramID) map[string]gfx.UniformLocation {
	out := make(map[string]gfx.UniformLocation)
	for name, loc := range c.programs[id].uniforms {
		out[name] = loc
	}
	return out
}

// ActiveAttribs implements gfx.Context.
func (c *Context) ActiveAttribs(id gfx.ProgramID) map[string]gfx.AttribLocation {
	out := make(map[string]gfx.AttribLocation)
	for name, slot := range c.programs[id].attribs {
		out[name] = slot
	}
	return out
}

// UseProgram implements gfx.Context.
func (c *Context) UseProgram(id gfx.ProgramID) {
	c.curProgram = id
	c.log("useProgram %d", id)
}

// UniformMat4 implements gfx.Context.
func (c *Context) UniformMat4(loc gfx.UniformLocation, m f32.Mat4) {
	c.log("uniformMat4 %d", loc)
}

// Uniform2F implements gfx.Context.
func (c *Context) Uniform2F(loc gfx.UniformLocation, x, y float32) {
	c.log("uniform2f %d %v %v", loc, x, y)
}

// Uniform1I implements gfx.Context.
func (c *Context) Uniform1I(loc gfx.UniformLocation, v int32) {
	c.log("uniform1i %d %d", loc, v)
}

// BindTexture implements gfx.Context.
func (c *Context) BindTexture(unit int, tex gfx.TextureID) {
	c.log("bindTexture %d %d", unit, tex)
}

// BindVertexBuffer implements gfx.Context.
func (c *Context) BindVertexBuffer(id gfx.BufferID) {
	c.log("bindVertexBuffer %d", id)
}

// VertexAttrib implements gfx.Context.
func (c *Context) VertexAttrib(attr gfx.VertexAttr) {
	c.log("vertexAttrib slot=%d size=%d", attr.Slot, attr.Size)
}

// BindIndexBuffer implements gfx.Context.
func (c *Context) BindIndexBuffer(id gfx.BufferID) {
	c.log("bindIndexBuffer %d", id)
}

// DrawElements implements gfx.Context.
func (c *Context) DrawElements(count int, state gfx.RenderState) {
	c.Draws = append(c.Draws, DrawCall{
		Framebuffer: c.bound,
		Program:     c.curProgram,
		Count:       count,
		State:       state,
	})
	c.log("drawElements %d", count)
}

// ReadPixels implements gfx.Context. The returned pixels are the last
// clear color, which is enough for screenshot plumbing tests.
func (c *Context) ReadPixels(x, y, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("gfxtest: invalid read %dx%d", width, height)
	}
	px := make([]byte, width*height*4)
	for i := 0; i < len(px); i += 4 {
		for ch := 0; ch < 4; ch++ {
			v := c.clearColor[ch]
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			px[i+ch] = byte(v*255 + 0.5)
		}
	}
	return px, nil
}

var _ gfx.Context = (*Context)(nil)
