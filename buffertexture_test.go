package glyphview

import (
	"bytes"
	"testing"

	"github.com/vgpu/glyphview/internal/gfxtest"
)

func TestBufferTextureSize(t *testing.T) {
	tests := []struct {
		bytes  int
		width  int
		height int
	}{
		{0, 1, 1},
		{1, 1, 1},
		{4, 1, 1},
		{5, 2, 1},
		{16, 2, 2},
		{17, 3, 2},
		{36, 3, 3},
		{64, 4, 4},
	}
	for _, tt := range tests {
		w, h := bufferTextureSize(tt.bytes)
		if w != tt.width || h != tt.height {
			t.Errorf("bufferTextureSize(%d) = %dx%d, want %dx%d", tt.bytes, w, h, tt.width, tt.height)
		}
	}
}

func TestBufferTextureSizeLaws(t *testing.T) {
	for n := 0; n <= 1024; n++ {
		w, h := bufferTextureSize(n)
		texels := (n + 3) / 4
		if texels < 1 {
			texels = 1
		}
		if w*h < texels {
			t.Fatalf("bufferTextureSize(%d) = %dx%d holds %d texels, need %d", n, w, h, w*h, texels)
		}
		if h > 1 && w*(h-1) >= texels {
			t.Fatalf("bufferTextureSize(%d) = %dx%d has a spare row", n, w, h)
		}
	}
}

func TestNewBufferTexture(t *testing.T) {
	ctx := gfxtest.New()
	data := []byte{1, 2, 3, 4, 5}

	bt, err := NewBufferTexture(ctx, "test", data)
	if err != nil {
		t.Fatalf("NewBufferTexture: %v", err)
	}
	if bt.Width != 2 || bt.Height != 1 {
		t.Fatalf("extent = %dx%d, want 2x1", bt.Width, bt.Height)
	}

	pixels, ok := ctx.TexturePixels(bt.Texture)
	if !ok {
		t.Fatal("texture not live")
	}
	want := []byte{1, 2, 3, 4, 5, 0, 0, 0}
	if !bytes.Equal(pixels, want) {
		t.Fatalf("pixels = %v, want %v (zero-padded)", pixels, want)
	}

	bt.Destroy(ctx)
	if ctx.LiveTextures() != 0 {
		t.Fatalf("texture leaked after Destroy: %d live", ctx.LiveTextures())
	}
}
