package server

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hafen/htmlwidgets/page"
	"github.com/hafen/htmlwidgets/payload"
	"github.com/hafen/htmlwidgets/widget"
)

// labelWidget writes the payload's text onto the element, a minimal
// definition for exercising the host's bind/apply path.
func labelRegistry() *widget.Registry {
	reg := widget.NewRegistry()
	err := reg.Register("label", widget.KindOutput, widget.Callbacks{
		Render: func(el widget.Element, p payload.Payload, _ any) error {
			text, _ := p["text"].(string)
			el.(*RemoteElement).SetText(text)
			return nil
		},
	})
	if err != nil {
		panic(err)
	}
	return reg
}

func TestNewHost(t *testing.T) {
	Convey("Given embeds referencing registered widgets", t, func() {
		reg := labelRegistry()
		embeds := []page.Embed{{Widget: "label", ElementID: "lbl-1"}}

		Convey("the host validates and proxies each embed", func() {
			h, err := NewHost(Config{Addr: "localhost:0"}, reg, embeds, nil, nil)
			So(err, ShouldBeNil)
			So(h.elements["lbl-1"], ShouldNotBeNil)
		})

		Convey("an embed without an id gets one generated", func() {
			h, err := NewHost(Config{}, reg, []page.Embed{{Widget: "label"}}, nil, nil)
			So(err, ShouldBeNil)
			So(len(h.elements), ShouldEqual, 1)
			So(h.pg.Embeds[0].ElementID, ShouldNotBeEmpty)
		})

		Convey("an unknown widget is rejected up front", func() {
			_, err := NewHost(Config{}, reg, []page.Embed{{Widget: "nope"}}, nil, nil)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestHostBindAll(t *testing.T) {
	Convey("Given a host with an initial payload", t, func() {
		reg := labelRegistry()
		embeds := []page.Embed{{
			Widget:    "label",
			ElementID: "lbl-1",
			Payload:   payload.Payload{"text": "hello"},
		}}
		h, err := NewHost(Config{}, reg, embeds, nil, nil)
		So(err, ShouldBeNil)

		Convey("bindAll binds, renders, and seeds the snapshot", func() {
			So(h.bindAll(), ShouldBeNil)
			So(h.rt.Bound(h.elements["lbl-1"]), ShouldBeTrue)

			sub := h.hub.subscribe()
			snapshot := <-sub
			So(len(snapshot), ShouldEqual, 1)
			So(snapshot[0].EleID, ShouldEqual, "lbl-1")
			So(snapshot[0].Ops, ShouldResemble, []Op{{Key: "textContent", Value: "hello"}})
		})

		Convey("unbindAll releases every instance and the snapshot", func() {
			So(h.bindAll(), ShouldBeNil)
			h.unbindAll()
			So(h.rt.Bound(h.elements["lbl-1"]), ShouldBeFalse)

			sub := h.hub.subscribe()
			select {
			case batch := <-sub:
				So(batch, ShouldBeNil)
			default:
			}
		})
	})
}

func TestStage(t *testing.T) {
	Convey("Given pending updates within one flush window", t, func() {
		pending := map[string]EleUpdate{}

		Convey("later updates for an element replace earlier ones", func() {
			stage(pending, []EleUpdate{{EleID: "a", Ops: []Op{{Key: "x", Value: "1"}}}})
			stage(pending, []EleUpdate{
				{EleID: "a", Ops: []Op{{Key: "x", Value: "2"}}},
				{EleID: "b", Ops: []Op{{Key: "y", Value: "1"}}},
			})

			So(len(pending), ShouldEqual, 2)
			So(pending["a"].Ops[0].Value, ShouldEqual, "2")
		})
	})
}
