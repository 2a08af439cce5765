package widget

import (
	"fmt"

	"github.com/hafen/htmlwidgets/payload"
)

// Instance is one live binding between a definition and an element. It
// holds the opaque state produced by initialize, the current geometry, and
// the last payload; all of it is released on Unbind.
type Instance struct {
	def           *Definition
	el            Element
	state         any
	width, height int
	last          payload.Payload
}

// Widget returns the name of the instance's definition.
func (in *Instance) Widget() string { return in.def.name }

// State returns the opaque state produced by the initialize callback. The
// runtime never inspects it; it is exposed for hosts and tests.
func (in *Instance) State() any { return in.state }

// Size returns the instance's current tracked geometry.
func (in *Instance) Size() (width, height int) { return in.width, in.height }

// Payload returns the most recently rendered payload, or nil before the
// first SetPayload.
func (in *Instance) Payload() payload.Payload { return in.last }

// Runtime drives widget instances through their lifecycle. Instances are
// keyed by Element.ID; distinct elements are fully independent. The
// runtime performs no internal locking: calls for the same element must be
// serialized by the caller (single writer per instance), which every
// in-process host does naturally by applying events on one goroutine.
type Runtime struct {
	reg       *Registry
	instances map[string]*Instance
}

// NewRuntime returns a runtime resolving names against reg.
func NewRuntime(reg *Registry) *Runtime {
	return &Runtime{
		reg:       reg,
		instances: map[string]*Instance{},
	}
}

// BindOption configures a single bind.
type BindOption func(*bindConfig)

type bindConfig struct {
	width, height int
	sized         bool
}

// WithSize supplies the element's dimensions at bind time. Mandatory for
// fixed-size definitions.
func WithSize(width, height int) BindOption {
	return func(c *bindConfig) {
		c.width, c.height = width, height
		c.sized = true
	}
}

// Bind creates the instance for el under the named definition. The
// initialize callback runs exactly once per element, synchronously, before
// Bind returns; its result becomes the instance's opaque state (an absent
// callback yields empty state). Binding an element that already holds an
// instance of the same widget is a no-op; of a different widget,
// ErrAlreadyBound. An initialize failure leaves no instance behind.
func (rt *Runtime) Bind(el Element, name string, opts ...BindOption) error {
	def, ok := rt.reg.Lookup(name)
	if !ok {
		return fmt.Errorf("bind %q: %w", name, ErrUnknownWidget)
	}

	if existing, bound := rt.instances[el.ID()]; bound {
		if existing.def.name != name {
			return fmt.Errorf("bind %q: element %q holds %q: %w",
				name, el.ID(), existing.def.name, ErrAlreadyBound)
		}
		return nil
	}

	var cfg bindConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if def.sizing == FixedSize && !cfg.sized {
		return fmt.Errorf("bind %q: %w", name, ErrSizeRequired)
	}

	in := &Instance{
		def:    def,
		el:     el,
		width:  cfg.width,
		height: cfg.height,
	}
	if def.callbacks.Initialize != nil {
		state, err := def.callbacks.Initialize(el, cfg.width, cfg.height)
		if err != nil {
			return &CallbackError{Widget: name, Element: el.ID(), Phase: PhaseInitialize, Err: err}
		}
		in.state = state
	}

	rt.instances[el.ID()] = in
	return nil
}

// SetPayload renders p on el's instance: exactly one render invocation per
// call, synchronous on the calling turn, each call fully replacing prior
// data state. A render failure propagates as a CallbackError but leaves
// the instance bound, so corrected payloads can be retried by the caller
// and Unbind still cleans up.
func (rt *Runtime) SetPayload(el Element, p payload.Payload) error {
	in, bound := rt.instances[el.ID()]
	if !bound {
		return fmt.Errorf("set payload on %q: %w", el.ID(), ErrNotBound)
	}

	in.last = p
	if err := in.def.callbacks.Render(el, p, in.state); err != nil {
		return &CallbackError{Widget: in.def.name, Element: el.ID(), Phase: PhaseRender, Err: err}
	}
	return nil
}

// NotifyResize records el's new geometry and invokes the resize callback
// if the definition declares one. It is safe to call before any payload
// has been set; widgets may be resized while empty.
func (rt *Runtime) NotifyResize(el Element, width, height int) error {
	in, bound := rt.instances[el.ID()]
	if !bound {
		return fmt.Errorf("resize %q: %w", el.ID(), ErrNotBound)
	}

	in.width, in.height = width, height
	if in.def.callbacks.Resize == nil {
		return nil
	}
	if err := in.def.callbacks.Resize(el, width, height, in.state); err != nil {
		return &CallbackError{Widget: in.def.name, Element: el.ID(), Phase: PhaseResize, Err: err}
	}
	return nil
}

// Unbind releases el's instance, invoking the destroy callback if one is
// declared. It is idempotent: unbinding an element with no instance is a
// no-op, not an error. The instance is removed even when destroy fails, so
// state is released promptly either way.
func (rt *Runtime) Unbind(el Element) error {
	in, bound := rt.instances[el.ID()]
	if !bound {
		return nil
	}

	delete(rt.instances, el.ID())
	if in.def.callbacks.Destroy != nil {
		if err := in.def.callbacks.Destroy(el, in.state); err != nil {
			return &CallbackError{Widget: in.def.name, Element: el.ID(), Phase: PhaseDestroy, Err: err}
		}
	}
	return nil
}

// Instance returns el's live instance, if any.
func (rt *Runtime) Instance(el Element) (*Instance, bool) {
	in, bound := rt.instances[el.ID()]
	return in, bound
}

// Bound reports whether el currently holds an instance.
func (rt *Runtime) Bound(el Element) bool {
	_, bound := rt.instances[el.ID()]
	return bound
}
