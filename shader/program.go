// Package shader compiles and links the renderer's GPU programs and loads
// their sources.
//
// Every program in the catalog is built from a vertex/fragment source pair
// prefixed with a shared common fragment, then introspected: the active
// uniforms and attributes are captured into lookup maps at link time so the
// render passes can resolve bindings by name without further driver round
// trips.
package shader

import (
	"fmt"
	"strings"

	"github.com/vgpu/glyphview/gfx"
)

// Names lists every logical program the renderer uses, in build order.
var Names = []string{
	"blit",
	"directCurve",
	"directInterior",
	"ecaaEdgeDetect",
	"ecaaResolve",
}

// Source is the vertex/fragment source pair of one program.
type Source struct {
	Vertex   string
	Fragment string
}

// SourceSet is the full shader source bundle: the shared common fragment
// plus one Source per catalog name.
type SourceSet struct {
	Common   string
	Programs map[string]Source
}

// Program is a linked GPU program with its binding lookup maps.
// Immutable after Compile.
type Program struct {
	// Name is the logical program name.
	Name string

	// ID is the linked program handle.
	ID gfx.ProgramID

	uniforms map[string]gfx.UniformLocation
	attribs  map[string]gfx.AttribLocation
}

// Uniform resolves a uniform binding by name. A missing name is a
// contract violation between render code and shader source, reported as
// BindingNotFoundError at first reference.
func (p *Program) Uniform(name string) (gfx.UniformLocation, error) {
	loc, ok := p.uniforms[name]
	if !ok {
		return 0, &BindingNotFoundError{Program: p.Name, Kind: "uniform", Name: name}
	}
	return loc, nil
}

// Attrib resolves a vertex attribute slot by name.
func (p *Program) Attrib(name string) (gfx.AttribLocation, error) {
	slot, ok := p.attribs[name]
	if !ok {
		return 0, &BindingNotFoundError{Program: p.Name, Kind: "attribute", Name: name}
	}
	return slot, nil
}

// preprocess prepends the shared common fragment and a source-position
// reset marker so compiler diagnostics keep pointing at the program's own
// source lines.
func preprocess(common, body string) string {
	var sb strings.Builder
	sb.WriteString(common)
	if !strings.HasSuffix(common, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("#line 0\n")
	sb.WriteString(body)
	return sb.String()
}

// Compile builds one program: both stages are compiled with the common
// prefix, linked, and introspected. Stage handles are released once the
// program is linked, whatever the outcome.
func Compile(ctx gfx.Context, name, common string, src Source) (*Program, error) {
	vs, err := ctx.CompileShader(gfx.StageVertex, preprocess(common, src.Vertex))
	if err != nil {
		return nil, &CompileError{Program: name, Stage: gfx.StageVertex.String(), Log: err.Error()}
	}
	defer ctx.DeleteShader(vs)

	fs, err := ctx.CompileShader(gfx.StageFragment, preprocess(common, src.Fragment))
	if err != nil {
		return nil, &CompileError{Program: name, Stage: gfx.StageFragment.String(), Log: err.Error()}
	}
	defer ctx.DeleteShader(fs)

	id, err := ctx.LinkProgram(name, vs, fs)
	if err != nil {
		return nil, &LinkError{Program: name, Log: err.Error()}
	}

	return &Program{
		Name:     name,
		ID:       id,
		uniforms: ctx.ActiveUniforms(id),
		attribs:  ctx.ActiveAttribs(id),
	}, nil
}

// Set holds every linked program of the catalog, keyed by name.
type Set struct {
	programs map[string]*Program
}

// CompileSet builds the whole catalog from a source bundle, aborting on
// the first failure. Programs linked before the failure are released.
func CompileSet(ctx gfx.Context, sources *SourceSet) (*Set, error) {
	set := &Set{programs: make(map[string]*Program, len(Names))}
	for _, name := range Names {
		src, ok := sources.Programs[name]
		if !ok {
			set.Destroy(ctx)
			return nil, &LinkError{Program: name, Log: "no source in bundle"}
		}
		p, err := Compile(ctx, name, sources.Common, src)
		if err != nil {
			set.Destroy(ctx)
			return nil, err
		}
		set.programs[name] = p
	}
	return set, nil
}

// Get returns a linked program by catalog name.
func (s *Set) Get(name string) (*Program, error) {
	p, ok := s.programs[name]
	if !ok {
		return nil, fmt.Errorf("shader: no program %q in set", name)
	}
	return p, nil
}

// Destroy releases every program in the set.
func (s *Set) Destroy(ctx gfx.Context) {
	for name, p := range s.programs {
		ctx.DeleteProgram(p.ID)
		delete(s.programs, name)
	}
}
