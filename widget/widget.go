// widget implements the host side of the html-widget embedding contract:
// a registry of named widget definitions and a runtime that drives each
// bound page element through a fixed lifecycle (initialize once, then any
// interleaving of renders and resizes, then destroy). The runtime knows
// nothing about transports or documents; hosts supply an Element and the
// payloads, and definitions supply the callbacks.
package widget

import (
	"github.com/hafen/htmlwidgets/payload"
)

// Kind discriminates what a definition produces. Only rendered output
// widgets exist today; the field is kept so manifests and registries can
// carry future kinds without a contract change.
type Kind string

// KindOutput is a rendered visualization bound to a page element.
const KindOutput Kind = "output"

// Sizing is a definition's size policy. It affects only what Bind requires;
// lifecycle ordering is identical for both policies.
type Sizing int

const (
	// AutoSize widgets fill their container; Bind needs no dimensions.
	AutoSize Sizing = iota
	// FixedSize widgets require explicit dimensions at bind time.
	FixedSize
)

// Element is the rendering target handle. The runtime never owns the
// element's lifetime; it only keys instances by ID and hands the element
// to callbacks. Concrete hosts provide richer elements (attribute staging,
// DOM proxies) behind this interface.
type Element interface {
	ID() string
}

// InitializeFunc produces the instance's opaque state. The returned state
// is owned by the instance and passed back to every later callback.
type InitializeFunc func(el Element, width, height int) (state any, err error)

// RenderFunc applies a payload to the element. Each call fully replaces
// prior visual state; there is no implicit merge.
type RenderFunc func(el Element, p payload.Payload, state any) error

// ResizeFunc reacts to a geometry change. It may run before any payload
// has been rendered.
type ResizeFunc func(el Element, width, height int, state any) error

// DestroyFunc releases anything the instance state holds.
type DestroyFunc func(el Element, state any) error

// Callbacks are a definition's lifecycle slots. Render is mandatory; the
// rest may be nil, in which case the runtime skips that phase. Dispatch is
// a plain nil check on the field.
type Callbacks struct {
	Initialize InitializeFunc
	Render     RenderFunc
	Resize     ResizeFunc
	Destroy    DestroyFunc
}

// Definition is a named, immutable widget binding. Definitions are created
// only through Registry.Register.
type Definition struct {
	name      string
	kind      Kind
	sizing    Sizing
	callbacks Callbacks
}

// Name returns the unique name the definition was registered under.
func (d *Definition) Name() string { return d.name }

// Kind returns the definition's kind.
func (d *Definition) Kind() Kind { return d.kind }

// Sizing returns the definition's size policy.
func (d *Definition) Sizing() Sizing { return d.sizing }
