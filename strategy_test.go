package glyphview

import (
	"errors"
	"strings"
	"testing"

	"github.com/vgpu/glyphview/gfx"
	"github.com/vgpu/glyphview/internal/gfxtest"
	"github.com/vgpu/glyphview/shader"
)

func TestParseAAKind(t *testing.T) {
	tests := []struct {
		in      string
		want    AAKind
		wantErr bool
	}{
		{"none", AANone, false},
		{"supersample", AASupersample, false},
		{"ssaa", AASupersample, false},
		{"edge-coverage", AAEdgeCoverage, false},
		{"ecaa", AAEdgeCoverage, false},
		{"fxaa", AANone, true},
		{"", AANone, true},
	}
	for _, tt := range tests {
		got, err := ParseAAKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAAKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseAAKind(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAAKindStringRoundTrip(t *testing.T) {
	for _, kind := range []AAKind{AANone, AASupersample, AAEdgeCoverage} {
		parsed, err := ParseAAKind(kind.String())
		if err != nil {
			t.Fatalf("ParseAAKind(%q): %v", kind.String(), err)
		}
		if parsed != kind {
			t.Fatalf("round trip of %v gave %v", kind, parsed)
		}
	}
}

func TestSupersampleTargetSize(t *testing.T) {
	canvas := gfx.Size{Width: 100, Height: 80}
	tests := []struct {
		level int
		want  gfx.Size
	}{
		// Level 2 supersamples horizontally only.
		{2, gfx.Size{Width: 200, Height: 80}},
		{4, gfx.Size{Width: 200, Height: 160}},
		{16, gfx.Size{Width: 200, Height: 160}},
	}
	for _, tt := range tests {
		s := newStrategy(AASupersample, tt.level)
		if got := s.DirectTargetSize(canvas); got != tt.want {
			t.Errorf("level %d target = %+v, want %+v", tt.level, got, tt.want)
		}
	}
}

func TestDirectTargetSizePassThrough(t *testing.T) {
	canvas := gfx.Size{Width: 37, Height: 41}
	for _, kind := range []AAKind{AANone, AAEdgeCoverage} {
		s := newStrategy(kind, 1)
		if got := s.DirectTargetSize(canvas); got != canvas {
			t.Errorf("%v target = %+v, want canvas size", kind, got)
		}
	}
}

// Switching strategies repeatedly must leave only the newest strategy's
// offscreen resources alive.
func TestStrategySwitchReleasesResources(t *testing.T) {
	v, ctx, _ := newTestView(t)
	if err := v.Resize(64, 64, 1); err != nil {
		t.Fatalf("Resize: %v", err)
	}

	// Quad buffers are the only non-strategy objects in play.
	base := ctx.LiveObjects()

	steps := []struct {
		kind     AAKind
		level    int
		textures int
		fbs      int
	}{
		{AASupersample, 4, 1, 1},
		{AAEdgeCoverage, 1, 4, 2},
		{AASupersample, 2, 1, 1},
		{AANone, 1, 0, 0},
		{AAEdgeCoverage, 1, 4, 2},
	}
	for _, step := range steps {
		if err := v.SetAntialiasing(step.kind, step.level); err != nil {
			t.Fatalf("SetAntialiasing(%v, %d): %v", step.kind, step.level, err)
		}
		if got := ctx.LiveObjects() - base; got != step.textures+step.fbs {
			t.Fatalf("after switch to %v: %d strategy objects live, want %d",
				step.kind, got, step.textures+step.fbs)
		}
	}

	v.Destroy()
	if got := ctx.LiveObjects(); got != 0 {
		t.Fatalf("objects live after Destroy: %d", got)
	}
}

// A resize reinitializes the active strategy without leaking the targets
// sized for the old extent.
func TestStrategyResizeReallocates(t *testing.T) {
	v, ctx, _ := newTestView(t)
	if err := v.Resize(32, 32, 1); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if err := v.SetAntialiasing(AASupersample, 4); err != nil {
		t.Fatalf("SetAntialiasing: %v", err)
	}
	after := ctx.LiveObjects()

	if err := v.Resize(64, 64, 1); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if got := ctx.LiveObjects(); got != after {
		t.Fatalf("live objects after resize = %d, want %d", got, after)
	}

	s := v.strategy.(*ssaaStrategy)
	size, ok := ctx.TextureSize(s.color)
	if !ok {
		t.Fatal("supersample target not live")
	}
	if size != (gfx.Size{Width: 128, Height: 128}) {
		t.Fatalf("supersample target = %+v, want 128x128", size)
	}
}

// The supersample resolve blits onto the visible surface.
func TestSupersampleResolveBlits(t *testing.T) {
	v, ctx, sched := newTestView(t)
	if err := v.Resize(16, 16, 1); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if err := v.SetAntialiasing(AASupersample, 4); err != nil {
		t.Fatalf("SetAntialiasing: %v", err)
	}
	ctx.Draws = nil
	sched.run(t)

	if len(ctx.Draws) != 1 {
		t.Fatalf("draw calls = %d, want 1 resolve blit", len(ctx.Draws))
	}
	blit := ctx.Draws[0]
	if blit.Framebuffer != gfx.DefaultFramebuffer {
		t.Errorf("blit target = %d, want default framebuffer", blit.Framebuffer)
	}
	if blit.Count != quadIndexCount {
		t.Errorf("blit count = %d, want %d", blit.Count, quadIndexCount)
	}
}

// Per-slot clears address draw-buffer slots and a fresh framebuffer only
// has slot 0 mapped, so the direct target's attachment clears must come
// after both slots are mapped or the path-ID clear is dropped.
func TestEdgeCoveragePrepareMapsSlotsBeforeClearing(t *testing.T) {
	v, ctx, sched := newTestView(t)
	if err := v.Resize(16, 16, 1); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if err := v.SetAntialiasing(AAEdgeCoverage, 1); err != nil {
		t.Fatalf("SetAntialiasing: %v", err)
	}
	ctx.Ops = nil
	sched.run(t)

	mapped := -1
	for i, op := range ctx.Ops {
		if op == "drawBuffers 2" {
			mapped = i
			break
		}
	}
	if mapped == -1 {
		t.Fatal("frame never mapped both draw-buffer slots")
	}
	for i, op := range ctx.Ops[:mapped] {
		if strings.HasPrefix(op, "clearAttachment") {
			t.Fatalf("op %d %q precedes the draw-buffer mapping", i, op)
		}
	}
	var clears int
	for _, op := range ctx.Ops {
		if strings.HasPrefix(op, "clearAttachment") {
			clears++
		}
	}
	if clears != 2 {
		t.Fatalf("attachment clears = %d, want 2", clears)
	}
}

// failingTextureContext rejects texture creation on demand so strategy
// initialization failures can be forced.
type failingTextureContext struct {
	*gfxtest.Context
	fail bool
}

func (c *failingTextureContext) CreateTexture(desc gfx.TextureDescriptor, pixels []byte) (gfx.TextureID, error) {
	if c.fail {
		return gfx.InvalidID, errors.New("device lost")
	}
	return c.Context.CreateTexture(desc, pixels)
}

// A strategy whose Init fails must not stay installed: the view falls
// back to the no-op baseline and later frames render onto the surface.
func TestStrategyInitFailureFallsBack(t *testing.T) {
	inner := gfxtest.New()
	ctx := &failingTextureContext{Context: inner}
	programs, err := shader.CompileSet(ctx, testSources())
	if err != nil {
		t.Fatalf("CompileSet: %v", err)
	}
	sched := &manualScheduler{}
	v, err := New(ctx, sched, programs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := v.Resize(16, 16, 1); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	sched.run(t)

	ctx.fail = true
	if err := v.SetAntialiasing(AAEdgeCoverage, 1); err == nil {
		t.Fatal("SetAntialiasing succeeded with texture creation failing")
	}
	if kind, _ := v.Antialiasing(); kind != AANone {
		t.Fatalf("active strategy = %v, want fallback to AANone", kind)
	}
	if got := inner.LiveTextures() + inner.LiveFramebuffers(); got != 0 {
		t.Fatalf("half-built strategy left %d objects alive", got)
	}

	// The fallback frame still renders.
	sched.run(t)
	if got := inner.LastClearColor(); got != colorWhite {
		t.Fatalf("fallback frame clear color = %v, want white", got)
	}
	if inner.Bound() != gfx.DefaultFramebuffer {
		t.Fatalf("fallback frame bound framebuffer %d, want surface", inner.Bound())
	}
}

// A resize that fails to rebuild the active strategy's targets also falls
// back instead of keeping stale framebuffer handles installed.
func TestResizeInitFailureFallsBack(t *testing.T) {
	inner := gfxtest.New()
	ctx := &failingTextureContext{Context: inner}
	programs, err := shader.CompileSet(ctx, testSources())
	if err != nil {
		t.Fatalf("CompileSet: %v", err)
	}
	sched := &manualScheduler{}
	v, err := New(ctx, sched, programs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := v.Resize(16, 16, 1); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if err := v.SetAntialiasing(AASupersample, 4); err != nil {
		t.Fatalf("SetAntialiasing: %v", err)
	}

	ctx.fail = true
	if err := v.Resize(32, 32, 1); err == nil {
		t.Fatal("Resize succeeded with texture creation failing")
	}
	if kind, _ := v.Antialiasing(); kind != AANone {
		t.Fatalf("active strategy = %v, want fallback to AANone", kind)
	}
	if got := inner.LiveTextures() + inner.LiveFramebuffers(); got != 0 {
		t.Fatalf("failed resize left %d strategy objects alive", got)
	}
}

// The edge-coverage resolve runs two full-screen passes: edge detection
// into the estimate targets, then compositing onto the surface.
func TestEdgeCoverageResolvePasses(t *testing.T) {
	v, ctx, sched := newTestView(t)
	if err := v.Resize(16, 16, 1); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if err := v.SetAntialiasing(AAEdgeCoverage, 1); err != nil {
		t.Fatalf("SetAntialiasing: %v", err)
	}
	ctx.Draws = nil
	sched.run(t)

	if len(ctx.Draws) != 2 {
		t.Fatalf("draw calls = %d, want edge detect then resolve", len(ctx.Draws))
	}

	detect := ctx.Draws[0]
	if d := detect.State.Depth; d == nil || d.Func != gfx.DepthAlways || !d.Write {
		t.Errorf("edge detect depth state = %+v, want always with writes", d)
	}
	if detect.Framebuffer == gfx.DefaultFramebuffer {
		t.Error("edge detect must render offscreen")
	}

	resolve := ctx.Draws[1]
	if resolve.Framebuffer != gfx.DefaultFramebuffer {
		t.Errorf("resolve target = %d, want default framebuffer", resolve.Framebuffer)
	}
	if b := resolve.State.Blend; b == nil || b.Mode != gfx.BlendSourceOver {
		t.Errorf("resolve blend state = %+v, want source-over", b)
	}
}
