package widget

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps widget names to definitions. One registry is created at
// process start, populated via Register during startup, and read-only
// thereafter; it is passed explicitly to runtimes rather than living as
// ambient global state. Register is guarded by a mutex since definitions
// arrive from multiple packages' startup paths.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: map[string]*Definition{}}
}

// RegisterOption configures a definition at registration.
type RegisterOption func(*Definition)

// WithSizing sets the definition's size policy. The default is AutoSize.
func WithSizing(s Sizing) RegisterOption {
	return func(d *Definition) { d.sizing = s }
}

// Register stores a definition under a unique name for the life of the
// process. It fails with ErrDuplicateName if the name is taken (the first
// registration remains active) and ErrRenderRequired if cb.Render is nil.
func (r *Registry) Register(name string, kind Kind, cb Callbacks, opts ...RegisterOption) error {
	if cb.Render == nil {
		return fmt.Errorf("register %q: %w", name, ErrRenderRequired)
	}

	def := &Definition{
		name:      name,
		kind:      kind,
		callbacks: cb,
	}
	for _, opt := range opts {
		opt(def)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.defs[name]; taken {
		return fmt.Errorf("register %q: %w", name, ErrDuplicateName)
	}
	r.defs[name] = def
	return nil
}

// Lookup returns the definition registered under name, if any.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
