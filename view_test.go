package glyphview

import (
	"encoding/binary"
	"errors"
	"image/color"
	"testing"

	"github.com/vgpu/glyphview/gfx"
	"github.com/vgpu/glyphview/internal/gfxtest"
	"github.com/vgpu/glyphview/mesh"
	"github.com/vgpu/glyphview/shader"
)

// manualScheduler queues callbacks so tests control when frames run.
type manualScheduler struct {
	queue []func()
}

func (s *manualScheduler) Schedule(cb func()) { s.queue = append(s.queue, cb) }

func (s *manualScheduler) run(t *testing.T) {
	t.Helper()
	for len(s.queue) > 0 {
		cb := s.queue[0]
		s.queue = s.queue[1:]
		cb()
	}
}

// testSources declares exactly the bindings the render passes resolve, in
// the form the fake context's introspection understands.
func testSources() *shader.SourceSet {
	direct := `
uniform mat4 uTransform;
uniform vec2 uFramebufferSize;
uniform vec2 uPathColorsDimensions;
attribute vec2 aPosition;
attribute float aPathID;
`
	return &shader.SourceSet{
		Common: "precision highp float;",
		Programs: map[string]shader.Source{
			"blit": {
				Vertex:   "attribute vec2 aPosition;",
				Fragment: "uniform sampler2D uSource;",
			},
			"directInterior": {
				Vertex:   direct,
				Fragment: "uniform sampler2D uPathColors;",
			},
			"directCurve": {
				Vertex:   direct + "attribute vec2 aTexCoord;\nattribute float aSign;",
				Fragment: "uniform sampler2D uPathColors;",
			},
			"ecaaEdgeDetect": {
				Vertex:   "attribute vec2 aPosition;",
				Fragment: "uniform sampler2D uColor;\nuniform sampler2D uPathID;\nuniform vec2 uFramebufferSize;",
			},
			"ecaaResolve": {
				Vertex:   "attribute vec2 aPosition;",
				Fragment: "uniform sampler2D uBGColor;\nuniform sampler2D uFGColor;\nuniform vec2 uFramebufferSize;",
			},
		},
	}
}

func newTestView(t *testing.T) (*View, *gfxtest.Context, *manualScheduler) {
	t.Helper()
	ctx := gfxtest.New()
	programs, err := shader.CompileSet(ctx, testSources())
	if err != nil {
		t.Fatalf("CompileSet: %v", err)
	}
	sched := &manualScheduler{}
	v, err := New(ctx, sched, programs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v, ctx, sched
}

func testMesh(t *testing.T) *mesh.Data {
	t.Helper()
	pathIDs := make([]byte, 8)
	binary.LittleEndian.PutUint16(pathIDs[0:], 1)
	binary.LittleEndian.PutUint16(pathIDs[2:], 1)
	binary.LittleEndian.PutUint16(pathIDs[4:], 2)
	binary.LittleEndian.PutUint16(pathIDs[6:], 2)
	return &mesh.Data{
		BQuads:                make([]byte, 40),
		BVertexPositions:      make([]byte, 32),
		BVertexPathIDs:        pathIDs,
		BVertexLoopBlinnData:  make([]byte, 16),
		CoverInteriorIndices:  make([]byte, 24),
		CoverCurveIndices:     make([]byte, 12),
		EdgeUpperLineIndices:  make([]byte, 4),
		EdgeUpperCurveIndices: make([]byte, 4),
		EdgeLowerLineIndices:  make([]byte, 4),
		EdgeLowerCurveIndices: make([]byte, 4),
	}
}

func TestNewRejectsWeakContext(t *testing.T) {
	tests := []struct {
		name string
		caps gfx.Capabilities
	}{
		{"single attachment", gfx.Capabilities{MaxColorAttachments: 1, ElementIndexUint: true}},
		{"no uint indices", gfx.Capabilities{MaxColorAttachments: 8, ElementIndexUint: false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := gfxtest.New()
			ctx.SetCapabilities(tt.caps)
			programs, err := shader.CompileSet(ctx, testSources())
			if err != nil {
				t.Fatalf("CompileSet: %v", err)
			}
			if _, err := New(ctx, &manualScheduler{}, programs); !errors.Is(err, ErrUnsupportedContext) {
				t.Fatalf("New error = %v, want ErrUnsupportedContext", err)
			}
		})
	}
}

func TestRedrawCoalescing(t *testing.T) {
	v, _, sched := newTestView(t)
	if err := v.Resize(100, 50, 1); err != nil {
		t.Fatalf("Resize: %v", err)
	}

	// Burst of mutations before the refresh fires: one callback.
	v.SetTransform(identityTransform)
	v.SetTransform(identityTransform)
	v.SetTransform(identityTransform)
	if len(sched.queue) != 1 {
		t.Fatalf("scheduled callbacks = %d, want 1", len(sched.queue))
	}
	sched.run(t)

	// The next mutation schedules afresh.
	v.SetTransform(identityTransform)
	if len(sched.queue) != 1 {
		t.Fatalf("scheduled callbacks after frame = %d, want 1", len(sched.queue))
	}
}

func TestEmptyMeshRendersWhiteFrame(t *testing.T) {
	v, ctx, sched := newTestView(t)
	if err := v.Resize(8, 8, 1); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	sched.run(t)

	if len(ctx.Draws) != 0 {
		t.Fatalf("draw calls = %d, want 0 with no mesh", len(ctx.Draws))
	}
	if got := ctx.LastClearColor(); got != colorWhite {
		t.Fatalf("clear color = %v, want white", got)
	}

	img, err := v.Screenshot()
	if err != nil {
		t.Fatalf("Screenshot: %v", err)
	}
	if got := img.RGBAAt(3, 3); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("pixel = %v, want opaque white", got)
	}
}

func TestDirectPassOrdering(t *testing.T) {
	v, ctx, sched := newTestView(t)
	if err := v.Resize(64, 64, 1); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if err := v.AttachMeshes(v.BeginMeshLoad(), testMesh(t)); err != nil {
		t.Fatalf("AttachMeshes: %v", err)
	}
	ctx.Draws = nil
	sched.run(t)

	if len(ctx.Draws) != 2 {
		t.Fatalf("draw calls = %d, want interior then curve", len(ctx.Draws))
	}

	interior := ctx.Draws[0]
	if interior.Count != 6 {
		t.Errorf("interior count = %d, want 6", interior.Count)
	}
	if d := interior.State.Depth; d == nil || d.Func != gfx.DepthGreater || !d.Write {
		t.Errorf("interior depth state = %+v, want greater with writes", d)
	}
	if interior.State.Blend != nil {
		t.Error("interior pass must not blend")
	}

	curve := ctx.Draws[1]
	if curve.Count != 3 {
		t.Errorf("curve count = %d, want 3", curve.Count)
	}
	if d := curve.State.Depth; d == nil || d.Func != gfx.DepthGreater || d.Write {
		t.Errorf("curve depth state = %+v, want greater without writes", d)
	}
	if b := curve.State.Blend; b == nil || b.Mode != gfx.BlendSourceOver {
		t.Errorf("curve blend state = %+v, want source-over", b)
	}
}

func TestMeshReplacementReleasesPrevious(t *testing.T) {
	v, ctx, _ := newTestView(t)
	if err := v.AttachMeshes(v.BeginMeshLoad(), testMesh(t)); err != nil {
		t.Fatalf("AttachMeshes: %v", err)
	}
	if err := v.AttachMeshes(v.BeginMeshLoad(), testMesh(t)); err != nil {
		t.Fatalf("AttachMeshes (replacement): %v", err)
	}

	// Quad pair plus one live mesh set.
	if got := ctx.LiveBuffers(); got != 2+10 {
		t.Fatalf("live buffers = %d, want 12", got)
	}
	if got := ctx.LiveTextures(); got != 1 {
		t.Fatalf("live textures = %d, want 1 path-color texture", got)
	}
}

func TestStaleMeshLoadDiscarded(t *testing.T) {
	v, ctx, _ := newTestView(t)
	stale := v.BeginMeshLoad()
	fresh := v.BeginMeshLoad()

	if err := v.AttachMeshes(stale, testMesh(t)); err != nil {
		t.Fatalf("AttachMeshes(stale): %v", err)
	}
	if v.meshes != nil {
		t.Fatal("stale load attached")
	}
	if got := ctx.LiveBuffers(); got != 2 {
		t.Fatalf("live buffers after stale load = %d, want 2 (quad only)", got)
	}

	if err := v.AttachMeshes(fresh, testMesh(t)); err != nil {
		t.Fatalf("AttachMeshes(fresh): %v", err)
	}
	if v.meshes == nil {
		t.Fatal("fresh load not attached")
	}
}

func TestAttachMeshesBuildsPathColors(t *testing.T) {
	v, ctx, _ := newTestView(t)
	if err := v.AttachMeshes(v.BeginMeshLoad(), testMesh(t)); err != nil {
		t.Fatalf("AttachMeshes: %v", err)
	}

	pixels, ok := ctx.TexturePixels(v.pathColors.Texture)
	if !ok {
		t.Fatal("path-color texture not live")
	}
	// Two paths, one opaque black texel each; the fixture's extent is
	// 2x1 so there is no padding.
	for i := 0; i < 8; i += 4 {
		r, g, b, a := pixels[i], pixels[i+1], pixels[i+2], pixels[i+3]
		if r != 0 || g != 0 || b != 0 || a != 0xff {
			t.Fatalf("path color texel %d = %v, want opaque black", i/4, pixels[i:i+4])
		}
	}
}

func TestRedrawErrorHandler(t *testing.T) {
	ctx := gfxtest.New()
	sources := testSources()
	// Drop a uniform the curve pass resolves so the frame fails.
	src := sources.Programs["directCurve"]
	src.Vertex = "attribute vec2 aPosition;\nattribute float aPathID;\nattribute vec2 aTexCoord;\nattribute float aSign;"
	sources.Programs["directCurve"] = src

	programs, err := shader.CompileSet(ctx, sources)
	if err != nil {
		t.Fatalf("CompileSet: %v", err)
	}
	sched := &manualScheduler{}
	var got error
	v, err := New(ctx, sched, programs, WithErrorHandler(func(err error) { got = err }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := v.Resize(16, 16, 1); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if err := v.AttachMeshes(v.BeginMeshLoad(), testMesh(t)); err != nil {
		t.Fatalf("AttachMeshes: %v", err)
	}
	sched.run(t)

	var notFound *shader.BindingNotFoundError
	if !errors.As(got, &notFound) {
		t.Fatalf("handler got %v, want BindingNotFoundError", got)
	}
}

func TestResizeAppliesPixelRatio(t *testing.T) {
	v, _, _ := newTestView(t)
	if err := v.Resize(100, 50, 2); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if v.size != (gfx.Size{Width: 200, Height: 100}) {
		t.Fatalf("size = %+v, want 200x100", v.size)
	}
}

func TestDestroyReleasesEverything(t *testing.T) {
	v, ctx, _ := newTestView(t)
	if err := v.Resize(32, 32, 1); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if err := v.AttachMeshes(v.BeginMeshLoad(), testMesh(t)); err != nil {
		t.Fatalf("AttachMeshes: %v", err)
	}
	if err := v.SetAntialiasing(AAEdgeCoverage, 1); err != nil {
		t.Fatalf("SetAntialiasing: %v", err)
	}

	v.Destroy()
	if got := ctx.LiveBuffers(); got != 0 {
		t.Errorf("live buffers after Destroy = %d", got)
	}
	if got := ctx.LiveTextures(); got != 0 {
		t.Errorf("live textures after Destroy = %d", got)
	}
	if got := ctx.LiveFramebuffers(); got != 0 {
		t.Errorf("live framebuffers after Destroy = %d", got)
	}
}
