package gfx

import "fmt"

// ResourceCreationError reports that the backend failed to allocate a GPU
// object.
type ResourceCreationError struct {
	// Kind names the resource class ("buffer", "texture", "framebuffer").
	Kind string

	// Label is the debug label of the failed resource, if any.
	Label string

	// Err is the backend's underlying error, if it produced one.
	Err error
}

func (e *ResourceCreationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gfx: creating %s %q: %v", e.Kind, e.Label, e.Err)
	}
	return fmt.Sprintf("gfx: creating %s %q failed", e.Kind, e.Label)
}

func (e *ResourceCreationError) Unwrap() error { return e.Err }

// IncompleteFramebufferError reports that an offscreen target failed its
// completeness check after all attachments were in place.
type IncompleteFramebufferError struct {
	// Label is the framebuffer's debug label.
	Label string

	// Status is the backend's completeness status text.
	Status string
}

func (e *IncompleteFramebufferError) Error() string {
	return fmt.Sprintf("gfx: framebuffer %q incomplete: %s", e.Label, e.Status)
}
