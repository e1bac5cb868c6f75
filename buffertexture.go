package glyphview

import (
	"math"

	"github.com/gogpu/gputypes"
	"github.com/vgpu/glyphview/gfx"
)

// BufferTexture packs an arbitrary byte array into a roughly square RGBA8
// texture so a shader can index per-path attributes by integer ID:
// texel (id % width, id / width) holds bytes [id*4, id*4+4).
//
// A BufferTexture is immutable; a new byte array needs a new instance.
type BufferTexture struct {
	// Texture is the GPU texture handle.
	Texture gfx.TextureID

	// Width and Height are the texture extent in texels. The invariant
	// Width*Height*4 >= len(data) holds, with both dimensions minimal.
	Width  int
	Height int
}

// bufferTextureSize computes the smallest near-square extent holding
// ceil(n/4) RGBA texels.
func bufferTextureSize(n int) (width, height int) {
	texels := (n + 3) / 4
	if texels < 1 {
		texels = 1
	}
	width = int(math.Ceil(math.Sqrt(float64(texels))))
	height = (texels + width - 1) / width
	return width, height
}

// NewBufferTexture uploads data as a nearest-filtered, clamp-to-edge RGBA8
// texture, zero-padding to the texture's byte capacity.
func NewBufferTexture(ctx gfx.Context, label string, data []byte) (*BufferTexture, error) {
	width, height := bufferTextureSize(len(data))
	pixels := make([]byte, width*height*4)
	copy(pixels, data)

	tex, err := ctx.CreateTexture(gfx.TextureDescriptor{
		Label:  label,
		Width:  width,
		Height: height,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Filter: gfx.FilterNearest,
	}, pixels)
	if err != nil {
		return nil, err
	}

	return &BufferTexture{Texture: tex, Width: width, Height: height}, nil
}

// Destroy releases the texture.
func (t *BufferTexture) Destroy(ctx gfx.Context) {
	ctx.DeleteTexture(t.Texture)
	t.Texture = gfx.InvalidID
}
