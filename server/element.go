package server

// Op is one mutation of a browser element: an attribute key and its new
// value. "textContent" and "innerHTML" are reserved keys handled specially
// by the client bootstrap.
type Op struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// EleUpdate is an element id and the ops to apply to it. Updates are
// idempotent descriptions of current state, so intervening batches can be
// dropped under pressure and only the latest matters.
type EleUpdate struct {
	EleID string `json:"eleId"`
	Ops   []Op   `json:"ops"`
}

// RemoteElement is the widget.Element for browser targets: a proxy for a
// container div in connected pages. Widget callbacks stage ops on it; the
// host drains staged ops into update batches after each lifecycle call.
// RemoteElement is not safe for concurrent use; the host's apply loop is
// the single writer, matching the runtime's per-instance contract.
type RemoteElement struct {
	id  string
	ops []Op
}

// NewRemoteElement returns a proxy for the container with the given id.
func NewRemoteElement(id string) *RemoteElement {
	return &RemoteElement{id: id}
}

// ID returns the container element id.
func (e *RemoteElement) ID() string { return e.id }

// SetAttr stages an attribute assignment on the container. Suffixed ids
// (e.g. "<id>-poly") may be targeted via SetChildAttr.
func (e *RemoteElement) SetAttr(key, value string) {
	e.ops = append(e.ops, Op{Key: key, Value: value})
}

// SetText stages a textContent replacement.
func (e *RemoteElement) SetText(value string) {
	e.ops = append(e.ops, Op{Key: "textContent", Value: value})
}

// SetHTML stages an innerHTML replacement, typically a widget's skeleton
// markup on first render.
func (e *RemoteElement) SetHTML(markup string) {
	e.ops = append(e.ops, Op{Key: "innerHTML", Value: markup})
}

// SetChildAttr stages an attribute assignment against a child element
// whose id is "<container id>-<suffix>". Child ops travel in their own
// EleUpdate entries when flushed.
func (e *RemoteElement) SetChildAttr(suffix, key, value string) {
	e.ops = append(e.ops, Op{Key: "#" + suffix + ":" + key, Value: value})
}

// Flush drains the staged ops into per-element updates: container ops
// under the element's own id and child ops under their suffixed ids.
func (e *RemoteElement) Flush() []EleUpdate {
	if len(e.ops) == 0 {
		return nil
	}

	var own []Op
	children := map[string][]Op{}
	order := []string{}
	for _, op := range e.ops {
		suffix, key, isChild := splitChildKey(op.Key)
		if !isChild {
			own = append(own, op)
			continue
		}
		if _, seen := children[suffix]; !seen {
			order = append(order, suffix)
		}
		children[suffix] = append(children[suffix], Op{Key: key, Value: op.Value})
	}
	e.ops = nil

	var updates []EleUpdate
	if len(own) > 0 {
		updates = append(updates, EleUpdate{EleID: e.id, Ops: own})
	}
	for _, suffix := range order {
		updates = append(updates, EleUpdate{EleID: e.id + "-" + suffix, Ops: children[suffix]})
	}
	return updates
}

// splitChildKey decodes the "#suffix:key" form staged by SetChildAttr.
func splitChildKey(k string) (suffix, key string, ok bool) {
	if len(k) < 2 || k[0] != '#' {
		return "", "", false
	}
	for i := 1; i < len(k); i++ {
		if k[i] == ':' {
			return k[1:i], k[i+1:], true
		}
	}
	return "", "", false
}
