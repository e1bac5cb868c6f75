package shader

import "fmt"

// CompileError reports a shader stage that failed to compile.
type CompileError struct {
	// Program is the logical program name the stage belongs to.
	Program string

	// Stage names the failing stage ("vertex" or "fragment").
	Stage string

	// Log is the compiler's diagnostic text.
	Log string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("shader: compiling %s stage of %q: %s", e.Stage, e.Program, e.Log)
}

// LinkError reports a program that failed to link.
type LinkError struct {
	// Program is the logical program name.
	Program string

	// Log is the linker's diagnostic text.
	Log string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("shader: linking %q: %s", e.Program, e.Log)
}

// BindingNotFoundError reports a uniform or attribute the render code
// expects but the linked program does not declare (or the compiler
// optimized away). This is a programming-contract violation between the
// Go code and the shader sources.
type BindingNotFoundError struct {
	// Program is the logical program name.
	Program string

	// Kind is "uniform" or "attribute".
	Kind string

	// Name is the missing binding.
	Name string
}

func (e *BindingNotFoundError) Error() string {
	return fmt.Sprintf("shader: program %q has no active %s %q", e.Program, e.Kind, e.Name)
}
