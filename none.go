package glyphview

import "github.com/vgpu/glyphview/gfx"

// noAAStrategy draws straight onto the real surface. It owns no GPU
// resources and its resolve is a no-op; it is the baseline the other
// strategies are checked against for coverage consistency.
type noAAStrategy struct{}

func (noAAStrategy) Init(*View, gfx.Size) error { return nil }

func (noAAStrategy) DirectTargetSize(canvas gfx.Size) gfx.Size { return canvas }

func (noAAStrategy) Prepare(v *View) error {
	v.ctx.BindFramebuffer(gfx.DefaultFramebuffer)
	v.ctx.Viewport(0, 0, v.size.Width, v.size.Height)
	white := colorWhite
	depth := depthFar
	v.ctx.Clear(gfx.ClearParams{Color: &white, Depth: &depth})
	return nil
}

func (noAAStrategy) Resolve(*View) error { return nil }

func (noAAStrategy) Destroy(*View) {}
