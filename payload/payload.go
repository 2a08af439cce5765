// payload models the data+options bundle a host binding delivers to a
// widget on each render. Payloads cross the host/browser boundary, so they
// must stay representable in plain structured form: string-keyed mappings,
// sequences, scalars, and one escape hatch (JS) for passing literal code
// the client evaluates in its own environment.
package payload

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Payload is the bundle passed from a host wrapper to a widget binding.
// Values may be scalars, nested map[string]any, []any, or JS leaves.
type Payload map[string]any

// JS marks a string as literal JavaScript source. The host treats it as an
// opaque leaf and never executes it; serialization records its path in the
// message's evals list so the client can evaluate it in place.
type JS string

// ErrUnserializable is returned when a payload holds a host-language-only
// reference (a func, channel, or similar) that cannot cross the boundary.
var ErrUnserializable = errors.New("payload value cannot be serialized")

// Message is the wire form of a payload: the data tree with JS leaves
// lowered to plain strings, plus the dot-joined paths at which the client
// must evaluate those strings.
type Message struct {
	X     any      `json:"x"`
	Evals []string `json:"evals,omitempty"`
}

// Message lowers the payload to its wire form, walking the tree to collect
// eval paths and to reject unserializable leaves. The payload itself is
// not mutated.
func (p Payload) Message() (Message, error) {
	walked, evals, err := walk(map[string]any(p), "")
	if err != nil {
		return Message{}, err
	}
	return Message{X: walked, Evals: evals}, nil
}

// Encode marshals the payload's wire form to JSON.
func (p Payload) Encode() ([]byte, error) {
	msg, err := p.Message()
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

// walk copies the value tree, replacing JS leaves with their raw strings
// and accumulating their paths. Paths join keys and indices with dots,
// e.g. "series.0.formatter".
func walk(v any, path string) (any, []string, error) {
	switch val := v.(type) {
	case JS:
		return string(val), []string{path}, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		var evals []string
		for k, child := range val {
			walked, childEvals, err := walk(child, joinPath(path, k))
			if err != nil {
				return nil, nil, err
			}
			out[k] = walked
			evals = append(evals, childEvals...)
		}
		return out, evals, nil
	case Payload:
		return walk(map[string]any(val), path)
	case []any:
		out := make([]any, len(val))
		var evals []string
		for i, child := range val {
			walked, childEvals, err := walk(child, joinPath(path, strconv.Itoa(i)))
			if err != nil {
				return nil, nil, err
			}
			out[i] = walked
			evals = append(evals, childEvals...)
		}
		return out, evals, nil
	case nil:
		return nil, nil, nil
	default:
		if err := checkLeaf(val, path); err != nil {
			return nil, nil, err
		}
		return val, nil, nil
	}
}

// checkLeaf rejects leaves that only mean something inside this process.
// Concretely typed composites (e.g. []func(), map[string]chan int) bypass
// the map[string]any and []any walk cases, so the check recurses into
// them reflectively to report the offending path.
func checkLeaf(v any, path string) error {
	return checkValue(reflect.ValueOf(v), path)
}

func checkValue(rv reflect.Value, path string) error {
	switch rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Errorf("at %q (%s): %w", pathOrRoot(path), rv.Type(), ErrUnserializable)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return checkValue(rv.Elem(), path)
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := checkValue(rv.Index(i), joinPath(path, strconv.Itoa(i))); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprintf("%v", iter.Key().Interface())
			if err := checkValue(iter.Value(), joinPath(path, key)); err != nil {
				return err
			}
		}
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			field := rv.Type().Field(i)
			if !field.IsExported() {
				continue
			}
			if err := checkValue(rv.Field(i), joinPath(path, field.Name)); err != nil {
				return err
			}
		}
	}
	return nil
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func pathOrRoot(path string) string {
	if strings.TrimSpace(path) == "" {
		return "."
	}
	return path
}
