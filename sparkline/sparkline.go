// sparkline is a complete widget definition exercising every lifecycle
// slot: an auto-sizing SVG line chart. The first render injects the SVG
// skeleton into the container; subsequent renders and resizes only touch
// polyline geometry and the value label, keeping updates cheap and
// idempotent.
package sparkline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hafen/htmlwidgets/payload"
	"github.com/hafen/htmlwidgets/widget"
)

// Name is the registry name for this widget.
const Name = "sparkline"

const (
	defaultWidth  = 300
	defaultHeight = 80
	defaultStroke = "steelblue"
)

// Surface is what this widget needs from its element: skeleton injection
// plus attribute ops on suffixed children. The server's RemoteElement
// satisfies it.
type Surface interface {
	widget.Element
	SetHTML(markup string)
	SetChildAttr(suffix, key, value string)
}

// ErrBadSurface is returned when the bound element cannot stage ops.
var ErrBadSurface = errors.New("element does not support sparkline rendering")

// ErrBadSeries is returned for payloads whose series is not numeric.
var ErrBadSeries = errors.New("payload series must be a sequence of numbers")

type state struct {
	width, height int
	series        []float64
	stroke        string
	label         string
	skeleton      bool
}

// Register adds the sparkline definition to reg.
func Register(reg *widget.Registry) error {
	return reg.Register(Name, widget.KindOutput, widget.Callbacks{
		Initialize: initialize,
		Render:     render,
		Resize:     resize,
		Destroy:    destroy,
	})
}

// NewPayload builds the payload shape the widget renders: a numeric
// series with an optional label.
func NewPayload(series []float64, label string) payload.Payload {
	vals := make([]any, len(series))
	for i, v := range series {
		vals[i] = v
	}
	return payload.Payload{
		"series": vals,
		"label":  label,
	}
}

func initialize(_ widget.Element, width, height int) (any, error) {
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	return &state{width: width, height: height, stroke: defaultStroke}, nil
}

// render replaces the chart's data state from the payload. Each call
// stages the complete visual state, so batching layers may keep only the
// latest ops per element.
func render(el widget.Element, p payload.Payload, st any) error {
	s := st.(*state)
	surface, ok := el.(Surface)
	if !ok {
		return fmt.Errorf("%T: %w", el, ErrBadSurface)
	}

	series, err := numericSeries(p["series"])
	if err != nil {
		return err
	}
	s.series = series
	if stroke, ok := p["stroke"].(string); ok && stroke != "" {
		s.stroke = stroke
	}
	if label, ok := p["label"].(string); ok {
		s.label = label
	}

	draw(surface, s)
	return nil
}

// resize rescales the existing series to the new geometry; it may run
// before any payload has arrived, in which case only the viewBox changes.
func resize(el widget.Element, width, height int, st any) error {
	s := st.(*state)
	surface, ok := el.(Surface)
	if !ok {
		return fmt.Errorf("%T: %w", el, ErrBadSurface)
	}

	if width > 0 {
		s.width = width
	}
	if height > 0 {
		s.height = height
	}
	draw(surface, s)
	return nil
}

func destroy(el widget.Element, st any) error {
	s := st.(*state)
	s.series = nil
	if surface, ok := el.(Surface); ok && s.skeleton {
		surface.SetHTML("")
		s.skeleton = false
	}
	return nil
}

// draw stages the full current state: skeleton on first use, then
// geometry, stroke, and label.
func draw(surface Surface, s *state) {
	if !s.skeleton {
		surface.SetHTML(skeleton(surface.ID(), s))
		s.skeleton = true
	}

	surface.SetChildAttr("svg", "viewBox", fmt.Sprintf("0 0 %d %d", s.width, s.height))
	surface.SetChildAttr("poly", "points", points(s.series, s.width, s.height))
	surface.SetChildAttr("poly", "stroke", s.stroke)
	surface.SetChildAttr("label", "textContent", s.label)
}

func skeleton(id string, s *state) string {
	return fmt.Sprintf(
		`<svg id="%s-svg" xmlns="http://www.w3.org/2000/svg" width="100%%" height="100%%" `+
			`viewBox="0 0 %d %d" preserveAspectRatio="none">`+
			`<polyline id="%s-poly" fill="none" stroke="%s" stroke-width="2" points="" />`+
			`</svg><span id="%s-label"></span>`,
		id, s.width, s.height, id, s.stroke, id)
}

// points maps the series onto the svg coordinate system, y-flipped since
// svg's origin is top-left. A flat series draws a centered line.
func points(series []float64, width, height int) string {
	if len(series) == 0 {
		return ""
	}

	lo, hi := series[0], series[0]
	for _, v := range series {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	step := float64(width)
	if len(series) > 1 {
		step = float64(width) / float64(len(series)-1)
	}

	var b strings.Builder
	for i, v := range series {
		y := float64(height) / 2
		if span > 0 {
			y = float64(height) * (1 - (v-lo)/span)
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.2f,%.2f", float64(i)*step, y)
	}
	return b.String()
}

// numericSeries accepts the decoded-JSON shapes a payload series shows up
// in: []float64 from Go producers or []any of numbers off the wire.
func numericSeries(v any) ([]float64, error) {
	switch vals := v.(type) {
	case nil:
		return nil, nil
	case []float64:
		return vals, nil
	case []any:
		series := make([]float64, len(vals))
		for i, raw := range vals {
			switch n := raw.(type) {
			case float64:
				series[i] = n
			case int:
				series[i] = float64(n)
			default:
				return nil, fmt.Errorf("series[%d] is %T: %w", i, raw, ErrBadSeries)
			}
		}
		return series, nil
	default:
		return nil, fmt.Errorf("series is %T: %w", v, ErrBadSeries)
	}
}
