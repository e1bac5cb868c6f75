package glyphview

import (
	"fmt"

	"github.com/vgpu/glyphview/gfx"
)

// AAKind identifies an antialiasing strategy.
type AAKind uint8

const (
	// AANone renders directly to the surface with no antialiasing.
	AANone AAKind = iota

	// AASupersample renders into an oversized target and downsamples.
	AASupersample

	// AAEdgeCoverage runs edge-detect coverage accumulation (ECAA-style).
	AAEdgeCoverage
)

// String returns the config-surface name of the kind.
func (k AAKind) String() string {
	switch k {
	case AANone:
		return "none"
	case AASupersample:
		return "supersample"
	case AAEdgeCoverage:
		return "edge-coverage"
	default:
		return fmt.Sprintf("AAKind(%d)", uint8(k))
	}
}

// ParseAAKind parses a strategy name as it appears on the configuration
// surface.
func ParseAAKind(s string) (AAKind, error) {
	switch s {
	case "none":
		return AANone, nil
	case "supersample", "ssaa":
		return AASupersample, nil
	case "edge-coverage", "ecaa":
		return AAEdgeCoverage, nil
	default:
		return AANone, fmt.Errorf("glyphview: unknown antialiasing kind %q", s)
	}
}

// AntialiasingStrategy is the resolve-pass contract. Each variant owns its
// offscreen GPU resources privately; they never escape Resolve.
//
// Lifecycle: Init is called with the current framebuffer size when the
// strategy is selected and again on every resize; it must be idempotent
// and must not leak previously allocated resources. Prepare runs
// immediately before the direct pass and binds + clears the pass's render
// target. Resolve runs immediately after and produces the final visible
// image. Destroy releases everything the strategy owns; the view calls it
// before replacing the strategy.
type AntialiasingStrategy interface {
	Init(v *View, size gfx.Size) error
	Prepare(v *View) error
	Resolve(v *View) error
	Destroy(v *View)

	// DirectTargetSize maps the canvas size to the direct pass's render
	// target size, so viewport and size uniforms track the strategy's
	// target.
	DirectTargetSize(canvas gfx.Size) gfx.Size
}

// newStrategy builds a strategy instance for a kind/level pair. The level
// is ignored by kinds that have no use for it.
func newStrategy(kind AAKind, level int) AntialiasingStrategy {
	switch kind {
	case AASupersample:
		return &ssaaStrategy{level: level}
	case AAEdgeCoverage:
		return &ecaaStrategy{}
	default:
		return noAAStrategy{}
	}
}
