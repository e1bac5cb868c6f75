// Package glyphview renders partitioned vector paths (glyph outlines) on
// a GPU surface.
//
// The pipeline is a Loop-Blinn direct pass (interior triangles, then
// curve triangles) followed by a pluggable antialiasing resolve pass.
// Three strategies are provided: none (the baseline correctness
// reference), supersampling, and edge-detect coverage accumulation.
//
// The package owns no window or GPU device. The host hands a View a ready
// gfx.Context (backend/opengl wraps OpenGL 3.3 core) together with a
// RedrawScheduler tied to its display refresh; mesh payloads and shader
// sources arrive from external collaborators through the mesh and shader
// packages. Font parsing, shaping and path partitioning all happen
// upstream of this package.
package glyphview
