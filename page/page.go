// page renders standalone HTML documents that embed widgets: dependency
// tags in the head, one container per embed with its serialized payload
// alongside, and the client bootstrap wiring. The same page model serves
// both the static context (payloads rendered by client-side bindings) and
// the live context (ops pushed over a websocket by the server host).
package page

import (
	"fmt"
	"html/template"
	"io"

	"github.com/google/uuid"

	"github.com/hafen/htmlwidgets/manifest"
	"github.com/hafen/htmlwidgets/payload"
	"github.com/hafen/htmlwidgets/widget"
)

// Embed places one widget on a page.
type Embed struct {
	// Widget is the registered definition name.
	Widget string
	// ElementID identifies the container element; generated when empty.
	ElementID string
	// Payload is the initial data+options bundle, serialized into the page.
	Payload payload.Payload
	// Width and Height are required for fixed-size widgets and ignored
	// for auto-sizing ones, which fill their container.
	Width, Height int
}

// Page is a renderable document of widget embeds.
type Page struct {
	Title  string
	Assets *manifest.Manifest
	// LiveURL is the websocket address live pages connect back to. Empty
	// means a static page rendered entirely by client-side bindings.
	LiveURL string
	Embeds  []Embed
}

type embedData struct {
	ID     string
	Widget string
	Style  template.CSS
	// Payload is typed as JS because html/template treats script
	// element contents as a script context even for application/json.
	Payload template.JS
}

type pageData struct {
	Title   string
	Head    template.HTML
	LiveURL string
	Script  template.JS
	Embeds  []embedData
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{ .Title }}</title>
<link rel="icon" href="data:,">
{{ .Head }}</head>
<body{{ if .LiveURL }} data-live="{{ .LiveURL }}"{{ end }}>
{{ range .Embeds }}<div id="{{ .ID }}" class="htmlwidget" data-widget="{{ .Widget }}" style="{{ .Style }}"></div>
<script type="application/json" data-for="{{ .ID }}">{{ .Payload }}</script>
{{ end }}<script>{{ .Script }}</script>
</body>
</html>
`))

// Render writes the page as HTML, validating every embed against the
// registry first so nothing is emitted for a bad page: unknown widget
// names fail with widget.ErrUnknownWidget, and fixed-size embeds without
// dimensions fail with widget.ErrSizeRequired.
func (p *Page) Render(w io.Writer, reg *widget.Registry) error {
	data := pageData{
		Title:   p.Title,
		LiveURL: p.LiveURL,
		Script:  template.JS(staticBootstrapJS),
	}
	if p.LiveURL != "" {
		data.Script = template.JS(liveBootstrapJS)
	}
	if p.Assets != nil {
		data.Head = p.Assets.Tags("")
	}

	// Embeds are visited by index so generated container ids persist on
	// the page; live hosts key runtime instances by these same ids.
	for i := range p.Embeds {
		embed := &p.Embeds[i]
		def, ok := reg.Lookup(embed.Widget)
		if !ok {
			return fmt.Errorf("embed %q: %w", embed.Widget, widget.ErrUnknownWidget)
		}
		if def.Sizing() == widget.FixedSize && (embed.Width == 0 || embed.Height == 0) {
			return fmt.Errorf("embed %q: %w", embed.Widget, widget.ErrSizeRequired)
		}

		encoded, err := embed.Payload.Encode()
		if err != nil {
			return fmt.Errorf("embed %q: %w", embed.Widget, err)
		}

		data.Embeds = append(data.Embeds, embedData{
			ID:     embed.ContainerID(),
			Widget: embed.Widget,
			Style:  containerStyle(def, embed),
			// The standard-compatible encoder escapes angle brackets
			// inside strings, so raw JSON is safe in a script block.
			Payload: template.JS(encoded),
		})
	}

	return pageTemplate.Execute(w, data)
}

// ContainerID returns the embed's element id, generating a stable-for-the-
// call random id when none was assigned. Hyphens are fine here; ids never
// become template names.
func (e *Embed) ContainerID() string {
	if e.ElementID == "" {
		e.ElementID = "widget-" + uuid.NewString()[:8]
	}
	return e.ElementID
}

func containerStyle(def *widget.Definition, embed *Embed) template.CSS {
	if def.Sizing() == widget.FixedSize {
		return template.CSS(fmt.Sprintf("width:%dpx;height:%dpx;", embed.Width, embed.Height))
	}
	return template.CSS("width:100%;height:100%;")
}
