package glyphview

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/vgpu/glyphview/gfx"
	"github.com/vgpu/glyphview/mesh"
	"github.com/vgpu/glyphview/shader"
	"golang.org/x/image/math/f32"
)

// ErrUnsupportedContext reports a graphics context missing a required
// capability. The renderer needs two simultaneous color attachments (for
// the edge-coverage strategy's direct target) and 32-bit index buffers
// (mesh index buffers are always 32-bit).
var ErrUnsupportedContext = errors.New("glyphview: context lacks required capabilities")

// RedrawScheduler requests a callback on the host's next display-refresh
// opportunity. The view schedules at most one callback at a time;
// implementations need not coalesce.
type RedrawScheduler interface {
	Schedule(func())
}

// SchedulerFunc adapts a function to the RedrawScheduler interface.
type SchedulerFunc func(func())

// Schedule implements RedrawScheduler.
func (f SchedulerFunc) Schedule(cb func()) { f(cb) }

// MeshToken identifies one mesh-load request. Tokens order stale
// completions out: only the most recently issued token attaches.
type MeshToken uint64

const quadIndexCount = 6

var (
	colorWhite = f32.Vec4{1, 1, 1, 1}
	colorZero  = f32.Vec4{0, 0, 0, 0}

	identityTransform = f32.Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
)

// depthFar is the depth clear value. The depth test is GREATER, so the
// cleared value loses to everything drawn.
const depthFar = 0.0

// Option configures a View at construction.
type Option func(*View)

// WithErrorHandler routes redraw-time errors to the host instead of the
// package logger. Errors raised during a redraw are unrecoverable for
// that frame and are never retried automatically.
func WithErrorHandler(h func(error)) Option {
	return func(v *View) { v.onError = h }
}

// View owns the graphics context's use: the loaded programs, the current
// mesh buffers and path-color texture, and the active antialiasing
// strategy. It drives the frame lifecycle and coalesces redundant redraw
// requests.
//
// All GPU objects reachable from a View are exclusively owned by it and
// must only be touched from the goroutine running the scheduler's
// callbacks.
type View struct {
	ctx       gfx.Context
	scheduler RedrawScheduler
	programs  *shader.Set
	onError   func(error)

	mu      sync.Mutex
	dirty   bool
	pending bool

	size       gfx.Size
	meshes     *mesh.Buffers
	pathColors *BufferTexture
	strategy   AntialiasingStrategy
	aaKind     AAKind
	aaLevel    int
	transform  f32.Mat4

	meshGeneration uint64

	quadVertices gfx.BufferID
	quadIndices  gfx.BufferID
}

// New builds a View over a ready context and a linked program set. It
// fails with ErrUnsupportedContext when the context cannot run every
// strategy. The initial strategy is none; the view stays blank until the
// first Resize establishes a drawable size.
func New(ctx gfx.Context, scheduler RedrawScheduler, programs *shader.Set, opts ...Option) (*View, error) {
	caps := ctx.Capabilities()
	if caps.MaxColorAttachments < 2 {
		return nil, fmt.Errorf("%w: need 2 simultaneous color attachments, have %d",
			ErrUnsupportedContext, caps.MaxColorAttachments)
	}
	if !caps.ElementIndexUint {
		return nil, fmt.Errorf("%w: need 32-bit index buffers", ErrUnsupportedContext)
	}

	v := &View{
		ctx:       ctx,
		scheduler: scheduler,
		programs:  programs,
		strategy:  noAAStrategy{},
		aaKind:    AANone,
		aaLevel:   1,
		transform: identityTransform,
	}
	for _, opt := range opts {
		opt(v)
	}
	if err := v.createQuad(); err != nil {
		return nil, err
	}
	return v, nil
}

// createQuad uploads the shared full-screen quad used by every resolve
// pass.
func (v *View) createQuad() error {
	positions := []float32{-1, -1, 1, -1, 1, 1, -1, 1}
	vtx := make([]byte, len(positions)*4)
	for i, p := range positions {
		binary.LittleEndian.PutUint32(vtx[i*4:], math.Float32bits(p))
	}
	indices := []uint32{0, 1, 2, 0, 2, 3}
	idx := make([]byte, len(indices)*4)
	for i, n := range indices {
		binary.LittleEndian.PutUint32(idx[i*4:], n)
	}

	vb, err := v.ctx.CreateBuffer(gfx.BufferKindVertex, vtx)
	if err != nil {
		return err
	}
	ib, err := v.ctx.CreateBuffer(gfx.BufferKindIndex, idx)
	if err != nil {
		v.ctx.DeleteBuffer(vb)
		return err
	}
	v.quadVertices, v.quadIndices = vb, ib
	return nil
}

// bindQuad binds the full-screen quad's streams to a program's aPosition
// attribute.
func (v *View) bindQuad(p *shader.Program) error {
	slot, err := p.Attrib("aPosition")
	if err != nil {
		return err
	}
	v.ctx.BindVertexBuffer(v.quadVertices)
	v.ctx.VertexAttrib(gfx.VertexAttr{Slot: slot, Size: 2, Type: gfx.AttribFloat, Stride: 8})
	v.ctx.BindIndexBuffer(v.quadIndices)
	return nil
}

// Resize recomputes the drawable size from the host viewport and device
// pixel ratio, re-initializes the active strategy for the new size, and
// marks the view dirty.
func (v *View) Resize(cssWidth, cssHeight int, pixelRatio float64) error {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	v.size = gfx.Size{
		Width:  int(math.Round(float64(cssWidth) * pixelRatio)),
		Height: int(math.Round(float64(cssHeight) * pixelRatio)),
	}
	if err := v.strategy.Init(v, v.size); err != nil {
		v.fallbackStrategy()
		return err
	}
	Logger().Debug("resized", "width", v.size.Width, "height", v.size.Height, "ratio", pixelRatio)
	v.markDirty()
	return nil
}

// SetAntialiasing replaces the active strategy. The previous strategy's
// GPU resources are released before the new one allocates, so at most one
// strategy's resources are ever alive. If the new strategy fails to
// initialize, the view falls back to no antialiasing rather than keeping
// a half-built strategy installed.
func (v *View) SetAntialiasing(kind AAKind, level int) error {
	v.strategy.Destroy(v)
	v.strategy = newStrategy(kind, level)
	v.aaKind, v.aaLevel = kind, level
	if err := v.strategy.Init(v, v.size); err != nil {
		v.fallbackStrategy()
		return err
	}
	Logger().Info("antialiasing changed", "kind", kind.String(), "level", level)
	v.markDirty()
	return nil
}

// fallbackStrategy tears down a strategy whose Init failed and installs
// the no-op baseline, so later redraws target the real surface instead of
// a half-built strategy's missing framebuffers.
func (v *View) fallbackStrategy() {
	v.strategy.Destroy(v)
	v.strategy = noAAStrategy{}
	v.aaKind, v.aaLevel = AANone, 1
	v.markDirty()
}

// Antialiasing returns the active strategy selection.
func (v *View) Antialiasing() (AAKind, int) { return v.aaKind, v.aaLevel }

// SetTransform replaces the direct pass's transform. The default is
// identity.
func (v *View) SetTransform(m f32.Mat4) {
	v.transform = m
	v.markDirty()
}

// BeginMeshLoad starts a mesh-load request and returns its token. Issuing
// a new token invalidates all earlier ones, so a stale fetch completing
// after a newer request is discarded at AttachMeshes.
func (v *View) BeginMeshLoad() MeshToken {
	v.meshGeneration++
	return MeshToken(v.meshGeneration)
}

// AttachMeshes uploads a decoded payload and makes it the current mesh
// set, destroying the previous one. A token older than the latest
// BeginMeshLoad is ignored. Path colors are rebuilt alongside (currently
// black, opaque, one RGBA texel per path).
func (v *View) AttachMeshes(token MeshToken, data *mesh.Data) error {
	if uint64(token) != v.meshGeneration {
		Logger().Debug("stale mesh load discarded", "token", uint64(token), "current", v.meshGeneration)
		return nil
	}

	buffers, err := mesh.Upload(v.ctx, data)
	if err != nil {
		return err
	}
	pathColors := make([]byte, buffers.PathCount*4)
	for i := 0; i < len(pathColors); i += 4 {
		pathColors[i+3] = 0xff
	}
	colorTex, err := NewBufferTexture(v.ctx, "path colors", pathColors)
	if err != nil {
		buffers.Destroy()
		return err
	}

	if v.meshes != nil {
		v.meshes.Destroy()
	}
	if v.pathColors != nil {
		v.pathColors.Destroy(v.ctx)
	}
	v.meshes = buffers
	v.pathColors = colorTex
	Logger().Info("mesh attached", "paths", buffers.PathCount,
		"interiorIndices", buffers.InteriorIndexCount, "curveIndices", buffers.CurveIndexCount)
	v.markDirty()
	return nil
}

// markDirty notes a pending change and schedules at most one redraw on
// the next display-refresh opportunity. Bursts of mutation before the
// refresh fires coalesce into a single frame.
func (v *View) markDirty() {
	v.mu.Lock()
	v.dirty = true
	if v.pending {
		v.mu.Unlock()
		return
	}
	v.pending = true
	v.mu.Unlock()
	v.scheduler.Schedule(v.redraw)
}

// redraw runs one frame. The dirty flag is cleared unconditionally, even
// when there is nothing to render yet.
func (v *View) redraw() {
	v.mu.Lock()
	v.pending = false
	v.dirty = false
	v.mu.Unlock()

	if v.size.IsEmpty() {
		return
	}
	if err := v.renderFrame(); err != nil {
		v.fail(err)
	}
}

// renderFrame runs the three phases in order: the strategy's prepare, the
// direct Loop-Blinn passes, the strategy's resolve. Each phase depends on
// the GPU state the previous one left behind.
func (v *View) renderFrame() error {
	if err := v.strategy.Prepare(v); err != nil {
		return err
	}
	if v.meshes != nil {
		target := v.strategy.DirectTargetSize(v.size)
		if err := v.interiorPass(target); err != nil {
			return err
		}
		if err := v.curvePass(target); err != nil {
			return err
		}
	}
	return v.strategy.Resolve(v)
}

// setDirectUniforms sets the uniforms shared by both direct programs.
func (v *View) setDirectUniforms(p *shader.Program, target gfx.Size) error {
	uTransform, err := p.Uniform("uTransform")
	if err != nil {
		return err
	}
	uFramebufferSize, err := p.Uniform("uFramebufferSize")
	if err != nil {
		return err
	}
	uPathColors, err := p.Uniform("uPathColors")
	if err != nil {
		return err
	}
	uPathColorsDimensions, err := p.Uniform("uPathColorsDimensions")
	if err != nil {
		return err
	}
	v.ctx.UniformMat4(uTransform, v.transform)
	v.ctx.Uniform2F(uFramebufferSize, float32(target.Width), float32(target.Height))
	v.ctx.Uniform1I(uPathColors, 0)
	v.ctx.Uniform2F(uPathColorsDimensions, float32(v.pathColors.Width), float32(v.pathColors.Height))
	v.ctx.BindTexture(0, v.pathColors.Texture)
	return nil
}

// bindDirectStreams binds the position and path-ID vertex streams.
func (v *View) bindDirectStreams(p *shader.Program) error {
	aPosition, err := p.Attrib("aPosition")
	if err != nil {
		return err
	}
	aPathID, err := p.Attrib("aPathID")
	if err != nil {
		return err
	}
	v.ctx.BindVertexBuffer(v.meshes.BVertexPositions)
	v.ctx.VertexAttrib(gfx.VertexAttr{Slot: aPosition, Size: 2, Type: gfx.AttribFloat, Stride: 8})
	v.ctx.BindVertexBuffer(v.meshes.BVertexPathIDs)
	v.ctx.VertexAttrib(gfx.VertexAttr{Slot: aPathID, Size: 1, Type: gfx.AttribUnsignedShort, Stride: 2})
	return nil
}

// interiorPass rasterizes path interiors: depth GREATER with writes, no
// blending, far-to-near accumulation.
func (v *View) interiorPass(target gfx.Size) error {
	p, err := v.programs.Get("directInterior")
	if err != nil {
		return err
	}
	v.ctx.UseProgram(p.ID)
	if err := v.setDirectUniforms(p, target); err != nil {
		return err
	}
	if err := v.bindDirectStreams(p); err != nil {
		return err
	}
	v.ctx.BindIndexBuffer(v.meshes.CoverInteriorIndices)
	v.ctx.DrawElements(v.meshes.InteriorIndexCount, gfx.RenderState{
		Depth: &gfx.DepthState{Func: gfx.DepthGreater, Write: true},
	})
	return nil
}

// curvePass rasterizes Loop-Blinn curve triangles on top of the
// interiors: depth still GREATER but read-only, source-over blending. The
// curve data stream interleaves 4 bytes per vertex: two unsigned
// texture-coordinate bytes, one signed curve-sign byte, one pad byte.
func (v *View) curvePass(target gfx.Size) error {
	p, err := v.programs.Get("directCurve")
	if err != nil {
		return err
	}
	v.ctx.UseProgram(p.ID)
	if err := v.setDirectUniforms(p, target); err != nil {
		return err
	}
	if err := v.bindDirectStreams(p); err != nil {
		return err
	}
	aTexCoord, err := p.Attrib("aTexCoord")
	if err != nil {
		return err
	}
	aSign, err := p.Attrib("aSign")
	if err != nil {
		return err
	}
	v.ctx.BindVertexBuffer(v.meshes.BVertexLoopBlinnData)
	v.ctx.VertexAttrib(gfx.VertexAttr{Slot: aTexCoord, Size: 2, Type: gfx.AttribUnsignedByte, Stride: 4})
	v.ctx.VertexAttrib(gfx.VertexAttr{Slot: aSign, Size: 1, Type: gfx.AttribByte, Stride: 4, Offset: 2})
	v.ctx.BindIndexBuffer(v.meshes.CoverCurveIndices)
	v.ctx.DrawElements(v.meshes.CurveIndexCount, gfx.RenderState{
		Depth: &gfx.DepthState{Func: gfx.DepthGreater, Write: false},
		Blend: &gfx.BlendState{Mode: gfx.BlendSourceOver},
	})
	return nil
}

// fail surfaces a redraw error to the host, or logs it when no handler is
// installed. Redraw errors are not retried.
func (v *View) fail(err error) {
	if v.onError != nil {
		v.onError(err)
		return
	}
	Logger().Error("redraw failed", "error", err)
}

// Screenshot reads back the visible surface as an image. Rows arrive
// bottom-first from the context and are flipped here.
func (v *View) Screenshot() (*image.RGBA, error) {
	if v.size.IsEmpty() {
		return nil, errors.New("glyphview: no drawable size")
	}
	v.ctx.BindFramebuffer(gfx.DefaultFramebuffer)
	px, err := v.ctx.ReadPixels(0, 0, v.size.Width, v.size.Height)
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, v.size.Width, v.size.Height))
	stride := v.size.Width * 4
	for row := 0; row < v.size.Height; row++ {
		src := px[(v.size.Height-1-row)*stride : (v.size.Height-row)*stride]
		copy(img.Pix[row*img.Stride:], src)
	}
	return img, nil
}

// Destroy releases everything the view owns: mesh buffers, path colors,
// the active strategy's targets, and the shared quad.
func (v *View) Destroy() {
	v.strategy.Destroy(v)
	v.strategy = noAAStrategy{}
	if v.meshes != nil {
		v.meshes.Destroy()
		v.meshes = nil
	}
	if v.pathColors != nil {
		v.pathColors.Destroy(v.ctx)
		v.pathColors = nil
	}
	v.ctx.DeleteBuffer(v.quadVertices)
	v.ctx.DeleteBuffer(v.quadIndices)
	v.quadVertices, v.quadIndices = gfx.InvalidID, gfx.InvalidID
}
