package widget

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hafen/htmlwidgets/payload"
)

type fakeElement struct {
	id string
}

func (e fakeElement) ID() string { return e.id }

// counters tallies lifecycle invocations for assertions.
type counters struct {
	initialized int
	rendered    int
	resized     int
	destroyed   int
}

func countingCallbacks(c *counters) Callbacks {
	return Callbacks{
		Initialize: func(_ Element, _, _ int) (any, error) {
			c.initialized++
			return map[string]any{}, nil
		},
		Render: func(_ Element, _ payload.Payload, _ any) error {
			c.rendered++
			return nil
		},
		Resize: func(_ Element, _, _ int, _ any) error {
			c.resized++
			return nil
		},
		Destroy: func(_ Element, _ any) error {
			c.destroyed++
			return nil
		},
	}
}

func TestLifecycleOrdering(t *testing.T) {
	Convey("Given a bound instance", t, func() {
		reg := NewRegistry()
		c := &counters{}
		So(reg.Register("counter", KindOutput, countingCallbacks(c)), ShouldBeNil)

		rt := NewRuntime(reg)
		el := fakeElement{id: "ele-1"}

		Convey("bind, two payloads, then unbind runs initialize once and render twice", func() {
			So(rt.Bind(el, "counter"), ShouldBeNil)
			So(rt.SetPayload(el, payload.Payload{"n": 1}), ShouldBeNil)
			So(rt.SetPayload(el, payload.Payload{"n": 2}), ShouldBeNil)
			So(rt.Unbind(el), ShouldBeNil)

			So(c.initialized, ShouldEqual, 1)
			So(c.rendered, ShouldEqual, 2)
			So(c.destroyed, ShouldEqual, 1)
		})

		Convey("a resize before any payload succeeds once bind has completed", func() {
			So(rt.Bind(el, "counter"), ShouldBeNil)
			So(rt.NotifyResize(el, 640, 480), ShouldBeNil)
			So(c.resized, ShouldEqual, 1)
			So(c.rendered, ShouldEqual, 0)

			in, bound := rt.Instance(el)
			So(bound, ShouldBeTrue)
			w, h := in.Size()
			So(w, ShouldEqual, 640)
			So(h, ShouldEqual, 480)
		})

		Convey("renders and resizes interleave freely after initialize", func() {
			So(rt.Bind(el, "counter"), ShouldBeNil)
			So(rt.NotifyResize(el, 10, 10), ShouldBeNil)
			So(rt.SetPayload(el, payload.Payload{"n": 1}), ShouldBeNil)
			So(rt.NotifyResize(el, 20, 20), ShouldBeNil)
			So(rt.SetPayload(el, payload.Payload{"n": 2}), ShouldBeNil)

			So(c.initialized, ShouldEqual, 1)
			So(c.rendered, ShouldEqual, 2)
			So(c.resized, ShouldEqual, 2)
		})

		Convey("re-binding the same widget is a no-op", func() {
			So(rt.Bind(el, "counter"), ShouldBeNil)
			So(rt.Bind(el, "counter"), ShouldBeNil)
			So(c.initialized, ShouldEqual, 1)
		})
	})
}

func TestUnbindIdempotence(t *testing.T) {
	Convey("Given a bound instance", t, func() {
		reg := NewRegistry()
		c := &counters{}
		So(reg.Register("counter", KindOutput, countingCallbacks(c)), ShouldBeNil)

		rt := NewRuntime(reg)
		el := fakeElement{id: "ele-1"}
		So(rt.Bind(el, "counter"), ShouldBeNil)

		Convey("unbinding twice destroys once and errors never", func() {
			So(rt.Unbind(el), ShouldBeNil)
			So(rt.Unbind(el), ShouldBeNil)
			So(c.destroyed, ShouldEqual, 1)
			So(rt.Bound(el), ShouldBeFalse)
		})
	})
}

func TestBindFailures(t *testing.T) {
	Convey("Given a registry with one definition", t, func() {
		reg := NewRegistry()
		c := &counters{}
		So(reg.Register("counter", KindOutput, countingCallbacks(c)), ShouldBeNil)
		rt := NewRuntime(reg)
		el := fakeElement{id: "ele-1"}

		Convey("binding an unregistered name fails and produces no instance", func() {
			err := rt.Bind(el, "nope")
			So(errors.Is(err, ErrUnknownWidget), ShouldBeTrue)
			So(rt.Bound(el), ShouldBeFalse)

			Convey("and a subsequent unbind is a no-op", func() {
				So(rt.Unbind(el), ShouldBeNil)
			})
		})

		Convey("operations on an unbound element fail with ErrNotBound", func() {
			So(errors.Is(rt.SetPayload(el, payload.Payload{}), ErrNotBound), ShouldBeTrue)
			So(errors.Is(rt.NotifyResize(el, 1, 1), ErrNotBound), ShouldBeTrue)
		})

		Convey("binding a second widget to a bound element fails", func() {
			So(reg.Register("other", KindOutput, countingCallbacks(&counters{})), ShouldBeNil)
			So(rt.Bind(el, "counter"), ShouldBeNil)
			So(errors.Is(rt.Bind(el, "other"), ErrAlreadyBound), ShouldBeTrue)
		})

		Convey("a fixed-size definition requires dimensions at bind", func() {
			So(reg.Register("fixed", KindOutput, countingCallbacks(&counters{}),
				WithSizing(FixedSize)), ShouldBeNil)

			So(errors.Is(rt.Bind(el, "fixed"), ErrSizeRequired), ShouldBeTrue)
			So(rt.Bound(el), ShouldBeFalse)
			So(rt.Bind(el, "fixed", WithSize(800, 600)), ShouldBeNil)

			in, _ := rt.Instance(el)
			w, h := in.Size()
			So(w, ShouldEqual, 800)
			So(h, ShouldEqual, 600)
		})
	})
}

func TestStateOwnership(t *testing.T) {
	Convey("Given an echo widget whose render stores the payload in state", t, func() {
		type echoState struct {
			lastPayload payload.Payload
		}

		reg := NewRegistry()
		So(reg.Register("echo", KindOutput, Callbacks{
			Initialize: func(_ Element, _, _ int) (any, error) {
				return &echoState{}, nil
			},
			Render: func(_ Element, p payload.Payload, state any) error {
				state.(*echoState).lastPayload = p
				return nil
			},
		}), ShouldBeNil)

		rt := NewRuntime(reg)
		el := fakeElement{id: "echo-1"}
		So(rt.Bind(el, "echo"), ShouldBeNil)

		Convey("each payload fully replaces the previous one", func() {
			So(rt.SetPayload(el, payload.Payload{"text": "hi"}), ShouldBeNil)
			in, _ := rt.Instance(el)
			So(in.State().(*echoState).lastPayload["text"], ShouldEqual, "hi")

			So(rt.SetPayload(el, payload.Payload{"text": "bye"}), ShouldBeNil)
			So(in.State().(*echoState).lastPayload["text"], ShouldEqual, "bye")
			So(in.Payload()["text"], ShouldEqual, "bye")
		})
	})
}

func TestCallbackFailures(t *testing.T) {
	Convey("Given a widget whose render fails", t, func() {
		boom := errors.New("boom")
		reg := NewRegistry()
		So(reg.Register("flaky", KindOutput, Callbacks{
			Render: func(_ Element, p payload.Payload, _ any) error {
				if _, bad := p["bad"]; bad {
					return boom
				}
				return nil
			},
		}), ShouldBeNil)

		rt := NewRuntime(reg)
		el := fakeElement{id: "flaky-1"}
		So(rt.Bind(el, "flaky"), ShouldBeNil)

		Convey("the failure wraps phase and identity and keeps the instance bound", func() {
			err := rt.SetPayload(el, payload.Payload{"bad": true})
			So(err, ShouldNotBeNil)

			var cbErr *CallbackError
			So(errors.As(err, &cbErr), ShouldBeTrue)
			So(cbErr.Phase, ShouldEqual, PhaseRender)
			So(cbErr.Widget, ShouldEqual, "flaky")
			So(cbErr.Element, ShouldEqual, "flaky-1")
			So(errors.Is(err, boom), ShouldBeTrue)

			So(rt.Bound(el), ShouldBeTrue)

			Convey("a corrected payload is the caller's retry", func() {
				So(rt.SetPayload(el, payload.Payload{"ok": true}), ShouldBeNil)
			})

			Convey("and unbind still completes without error", func() {
				So(rt.Unbind(el), ShouldBeNil)
				So(rt.Bound(el), ShouldBeFalse)
			})
		})
	})

	Convey("Given a widget whose initialize fails", t, func() {
		reg := NewRegistry()
		So(reg.Register("dud", KindOutput, Callbacks{
			Initialize: func(_ Element, _, _ int) (any, error) {
				return nil, errors.New("no surface")
			},
			Render: func(_ Element, _ payload.Payload, _ any) error { return nil },
		}), ShouldBeNil)

		rt := NewRuntime(reg)
		el := fakeElement{id: "dud-1"}

		Convey("bind propagates the failure and leaves no instance", func() {
			err := rt.Bind(el, "dud")
			var cbErr *CallbackError
			So(errors.As(err, &cbErr), ShouldBeTrue)
			So(cbErr.Phase, ShouldEqual, PhaseInitialize)
			So(rt.Bound(el), ShouldBeFalse)
		})
	})
}

func TestElementIndependence(t *testing.T) {
	Convey("Given two elements bound to the same definition", t, func() {
		reg := NewRegistry()
		c := &counters{}
		So(reg.Register("counter", KindOutput, countingCallbacks(c)), ShouldBeNil)

		rt := NewRuntime(reg)
		a := fakeElement{id: "a"}
		b := fakeElement{id: "b"}
		So(rt.Bind(a, "counter"), ShouldBeNil)
		So(rt.Bind(b, "counter"), ShouldBeNil)

		Convey("unbinding one leaves the other live", func() {
			So(rt.Unbind(a), ShouldBeNil)
			So(rt.Bound(a), ShouldBeFalse)
			So(rt.Bound(b), ShouldBeTrue)
			So(rt.SetPayload(b, payload.Payload{"n": 1}), ShouldBeNil)
			So(c.rendered, ShouldEqual, 1)
		})
	})
}
