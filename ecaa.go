package glyphview

import (
	"github.com/gogpu/gputypes"
	"github.com/vgpu/glyphview/gfx"
)

// ecaaStrategy estimates per-pixel coverage near path edges instead of
// supersampling. The direct pass writes shaded color and an encoded path
// ID into a two-attachment target; an edge-detect pass turns those into
// background/foreground color estimates; the resolve pass blends the two
// onto the surface.
type ecaaStrategy struct {
	directColor  gfx.TextureID
	directPathID gfx.TextureID
	bgColor      gfx.TextureID
	fgColor      gfx.TextureID

	directFB gfx.FramebufferID
	edgeFB   gfx.FramebufferID

	size gfx.Size
}

func (s *ecaaStrategy) DirectTargetSize(canvas gfx.Size) gfx.Size { return canvas }

func (s *ecaaStrategy) Init(v *View, size gfx.Size) error {
	s.Destroy(v)
	if size.IsEmpty() {
		return nil
	}
	s.size = size

	textures := []struct {
		label string
		dst   *gfx.TextureID
	}{
		{"ecaa direct color", &s.directColor},
		{"ecaa direct path id", &s.directPathID},
		{"ecaa bg estimate", &s.bgColor},
		{"ecaa fg estimate", &s.fgColor},
	}
	for _, t := range textures {
		tex, err := v.ctx.CreateTexture(gfx.TextureDescriptor{
			Label:  t.label,
			Width:  size.Width,
			Height: size.Height,
			Format: gputypes.TextureFormatRGBA8Unorm,
			Filter: gfx.FilterNearest,
		}, nil)
		if err != nil {
			s.Destroy(v)
			return err
		}
		*t.dst = tex
	}

	directFB, err := v.ctx.CreateFramebuffer(gfx.FramebufferDescriptor{
		Label: "ecaa direct",
		Color: []gfx.TextureID{s.directColor, s.directPathID},
		Depth: size,
	})
	if err != nil {
		s.Destroy(v)
		return err
	}
	s.directFB = directFB

	edgeFB, err := v.ctx.CreateFramebuffer(gfx.FramebufferDescriptor{
		Label: "ecaa edge detect",
		Color: []gfx.TextureID{s.bgColor, s.fgColor},
		Depth: size,
	})
	if err != nil {
		s.Destroy(v)
		return err
	}
	s.edgeFB = edgeFB
	return nil
}

func (s *ecaaStrategy) Prepare(v *View) error {
	v.ctx.BindFramebuffer(s.directFB)
	v.ctx.Viewport(0, 0, s.size.Width, s.size.Height)

	// Per-slot clears address draw-buffer slots, and a fresh framebuffer
	// has slot 1 unmapped, so both attachments must be mapped first.
	// Shaded color starts white, encoded path IDs start at zero ("no
	// path"); both attachments then accept writes during the direct pass.
	v.ctx.DrawBuffers(2)
	v.ctx.ClearColorAttachment(0, colorWhite)
	v.ctx.ClearColorAttachment(1, colorZero)
	depth := depthFar
	v.ctx.Clear(gfx.ClearParams{Depth: &depth})
	return nil
}

func (s *ecaaStrategy) Resolve(v *View) error {
	if err := s.edgeDetectPass(v); err != nil {
		return err
	}
	return s.resolvePass(v)
}

// edgeDetectPass reads the direct target's two attachments and writes
// background/foreground color estimates. Depth always passes so every
// pixel is processed; blending stays off.
func (s *ecaaStrategy) edgeDetectPass(v *View) error {
	p, err := v.programs.Get("ecaaEdgeDetect")
	if err != nil {
		return err
	}
	uColor, err := p.Uniform("uColor")
	if err != nil {
		return err
	}
	uPathID, err := p.Uniform("uPathID")
	if err != nil {
		return err
	}
	uFramebufferSize, err := p.Uniform("uFramebufferSize")
	if err != nil {
		return err
	}

	v.ctx.BindFramebuffer(s.edgeFB)
	v.ctx.Viewport(0, 0, s.size.Width, s.size.Height)
	v.ctx.DrawBuffers(2)
	v.ctx.UseProgram(p.ID)
	v.ctx.Uniform1I(uColor, 0)
	v.ctx.Uniform1I(uPathID, 1)
	v.ctx.Uniform2F(uFramebufferSize, float32(s.size.Width), float32(s.size.Height))
	v.ctx.BindTexture(0, s.directColor)
	v.ctx.BindTexture(1, s.directPathID)
	if err := v.bindQuad(p); err != nil {
		return err
	}
	v.ctx.DrawElements(quadIndexCount, gfx.RenderState{
		Depth: &gfx.DepthState{Func: gfx.DepthAlways, Write: true},
	})
	return nil
}

// resolvePass blends the two estimates onto the real surface.
func (s *ecaaStrategy) resolvePass(v *View) error {
	p, err := v.programs.Get("ecaaResolve")
	if err != nil {
		return err
	}
	uBGColor, err := p.Uniform("uBGColor")
	if err != nil {
		return err
	}
	uFGColor, err := p.Uniform("uFGColor")
	if err != nil {
		return err
	}
	uFramebufferSize, err := p.Uniform("uFramebufferSize")
	if err != nil {
		return err
	}

	v.ctx.BindFramebuffer(gfx.DefaultFramebuffer)
	v.ctx.Viewport(0, 0, v.size.Width, v.size.Height)
	v.ctx.UseProgram(p.ID)
	v.ctx.Uniform1I(uBGColor, 0)
	v.ctx.Uniform1I(uFGColor, 1)
	v.ctx.Uniform2F(uFramebufferSize, float32(v.size.Width), float32(v.size.Height))
	v.ctx.BindTexture(0, s.bgColor)
	v.ctx.BindTexture(1, s.fgColor)
	if err := v.bindQuad(p); err != nil {
		return err
	}
	v.ctx.DrawElements(quadIndexCount, gfx.RenderState{
		Blend: &gfx.BlendState{Mode: gfx.BlendSourceOver},
	})
	return nil
}

func (s *ecaaStrategy) Destroy(v *View) {
	v.ctx.DeleteFramebuffer(s.directFB)
	v.ctx.DeleteFramebuffer(s.edgeFB)
	for _, tex := range []*gfx.TextureID{&s.directColor, &s.directPathID, &s.bgColor, &s.fgColor} {
		v.ctx.DeleteTexture(*tex)
		*tex = gfx.InvalidID
	}
	s.directFB = gfx.DefaultFramebuffer
	s.edgeFB = gfx.DefaultFramebuffer
	s.size = gfx.Size{}
}
