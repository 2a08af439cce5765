package widget

import (
	"errors"
	"fmt"
)

// ErrDuplicateName is returned by Register when the name is already taken.
// Registration is process-lifetime, so the conflict is permanent; the
// original registration stays active.
var ErrDuplicateName = errors.New("widget name already registered")

// ErrRenderRequired is returned by Register when the Render slot is nil.
var ErrRenderRequired = errors.New("render callback is required")

// ErrUnknownWidget is returned by Bind when no definition exists for the
// requested name.
var ErrUnknownWidget = errors.New("no widget registered under that name")

// ErrNotBound is returned by operations on an element with no live
// instance. It indicates a caller ordering bug, not a runtime fault.
var ErrNotBound = errors.New("element has no bound widget instance")

// ErrAlreadyBound is returned by Bind when the element already holds an
// instance of a different widget. Re-binding to the same name is a no-op.
var ErrAlreadyBound = errors.New("element already bound to another widget")

// ErrSizeRequired is returned by Bind for fixed-size definitions when no
// explicit dimensions were supplied.
var ErrSizeRequired = errors.New("fixed-size widget requires explicit dimensions")

// Phase identifies the lifecycle callback a failure occurred in.
type Phase string

const (
	PhaseInitialize Phase = "initialize"
	PhaseRender     Phase = "render"
	PhaseResize     Phase = "resize"
	PhaseDestroy    Phase = "destroy"
)

// CallbackError wraps an error raised inside a user-supplied callback.
// The runtime never swallows or retries these; they propagate to whichever
// operation triggered the callback, with bookkeeping left intact so a
// later Unbind still cleans the instance up.
type CallbackError struct {
	Widget  string
	Element string
	Phase   Phase
	Err     error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("widget %q: %s failed on element %q: %v", e.Widget, e.Phase, e.Element, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }
