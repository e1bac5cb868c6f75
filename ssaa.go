package glyphview

import (
	"github.com/gogpu/gputypes"
	"github.com/vgpu/glyphview/gfx"
)

// ssaaStrategy renders the direct pass into an oversized offscreen target
// and blits it down to the surface. Level 2 supersamples horizontally
// only, matching subpixel-AA conventions; any other level supersamples
// both axes.
type ssaaStrategy struct {
	level int

	color gfx.TextureID
	fb    gfx.FramebufferID
	size  gfx.Size
}

func (s *ssaaStrategy) scale() (sx, sy int) {
	if s.level == 2 {
		return 2, 1
	}
	return 2, 2
}

func (s *ssaaStrategy) DirectTargetSize(canvas gfx.Size) gfx.Size {
	sx, sy := s.scale()
	return canvas.Scale(sx, sy)
}

func (s *ssaaStrategy) Init(v *View, size gfx.Size) error {
	s.Destroy(v)
	if size.IsEmpty() {
		return nil
	}
	s.size = s.DirectTargetSize(size)

	// Linear filtering so the downsample blit averages the extra samples.
	color, err := v.ctx.CreateTexture(gfx.TextureDescriptor{
		Label:  "ssaa color",
		Width:  s.size.Width,
		Height: s.size.Height,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Filter: gfx.FilterLinear,
	}, nil)
	if err != nil {
		return err
	}
	fb, err := v.ctx.CreateFramebuffer(gfx.FramebufferDescriptor{
		Label: "ssaa",
		Color: []gfx.TextureID{color},
		Depth: s.size,
	})
	if err != nil {
		v.ctx.DeleteTexture(color)
		return err
	}
	s.color, s.fb = color, fb
	return nil
}

func (s *ssaaStrategy) Prepare(v *View) error {
	v.ctx.BindFramebuffer(s.fb)
	v.ctx.Viewport(0, 0, s.size.Width, s.size.Height)
	white := colorWhite
	depth := depthFar
	v.ctx.Clear(gfx.ClearParams{Color: &white, Depth: &depth})
	return nil
}

func (s *ssaaStrategy) Resolve(v *View) error {
	blit, err := v.programs.Get("blit")
	if err != nil {
		return err
	}
	uSource, err := blit.Uniform("uSource")
	if err != nil {
		return err
	}

	v.ctx.BindFramebuffer(gfx.DefaultFramebuffer)
	v.ctx.Viewport(0, 0, v.size.Width, v.size.Height)
	v.ctx.UseProgram(blit.ID)
	v.ctx.Uniform1I(uSource, 0)
	v.ctx.BindTexture(0, s.color)
	if err := v.bindQuad(blit); err != nil {
		return err
	}
	v.ctx.DrawElements(quadIndexCount, gfx.RenderState{})
	return nil
}

func (s *ssaaStrategy) Destroy(v *View) {
	v.ctx.DeleteFramebuffer(s.fb)
	v.ctx.DeleteTexture(s.color)
	s.fb = gfx.DefaultFramebuffer
	s.color = gfx.InvalidID
	s.size = gfx.Size{}
}
