// server hosts live widget pages: it serves the embedding document, binds
// every embed through the widget runtime, applies payload updates and
// client resize reports on a single goroutine, and pushes the resulting
// element ops to connected pages over websockets. The host is the
// serialization point the runtime's single-writer contract requires; all
// lifecycle calls for all elements happen on the apply loop.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"

	"github.com/hafen/htmlwidgets/internal/atomicfloat"
	"github.com/hafen/htmlwidgets/manifest"
	"github.com/hafen/htmlwidgets/page"
	"github.com/hafen/htmlwidgets/payload"
	"github.com/hafen/htmlwidgets/widget"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Update is a payload replacement pushed by the data-producing side for
// one element. Each update fully replaces the element's data state.
type Update struct {
	Element string
	Payload payload.Payload
}

// Config carries the host's external knobs.
type Config struct {
	// Addr is the listen address, e.g. "localhost:8080".
	Addr string
	// Title is the served page's title.
	Title string
	// Assets is the merged dependency manifest for the page head; may be nil.
	Assets *manifest.Manifest
	// FlushWindow is how long element ops accumulate before a batch is
	// broadcast; later ops for an element replace earlier ones within the
	// window. Defaults to 20ms.
	FlushWindow time.Duration
}

// Host serves one widget page to any number of clients.
type Host struct {
	cfg      Config
	log      *charmlog.Logger
	reg      *widget.Registry
	rt       *widget.Runtime
	pg       *page.Page
	elements map[string]*RemoteElement
	updates  <-chan Update
	events   chan clientEvent
	hub      *hub

	batches float64
	ops     float64
	started time.Time
}

// NewHost validates the embeds against the registry and returns a host
// serving them. Updates drive renders; the producer should treat each
// update as an idempotent snapshot for its element.
func NewHost(
	cfg Config,
	reg *widget.Registry,
	embeds []page.Embed,
	updates <-chan Update,
	logger *charmlog.Logger,
) (*Host, error) {
	if cfg.FlushWindow <= 0 {
		cfg.FlushWindow = 20 * time.Millisecond
	}
	if logger == nil {
		logger = charmlog.Default()
	}

	pg := &page.Page{
		Title:   cfg.Title,
		Assets:  cfg.Assets,
		LiveURL: "auto",
		Embeds:  embeds,
	}

	elements := map[string]*RemoteElement{}
	for i := range pg.Embeds {
		embed := &pg.Embeds[i]
		if _, ok := reg.Lookup(embed.Widget); !ok {
			return nil, fmt.Errorf("embed %q: %w", embed.Widget, widget.ErrUnknownWidget)
		}
		id := embed.ContainerID()
		elements[id] = NewRemoteElement(id)
	}

	return &Host{
		cfg:      cfg,
		log:      logger,
		reg:      reg,
		rt:       widget.NewRuntime(reg),
		pg:       pg,
		elements: elements,
		updates:  updates,
		events:   make(chan clientEvent, 16),
		hub:      newHub(),
	}, nil
}

// Run binds all embeds, then serves until ctx is cancelled. All instances
// are unbound on the way out.
func (h *Host) Run(ctx context.Context) error {
	if err := h.bindAll(); err != nil {
		return err
	}
	defer h.unbindAll()
	h.started = time.Now()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return h.applyLoop(groupCtx)
	})

	srv := &http.Server{Addr: h.cfg.Addr, Handler: h.router()}
	group.Go(func() error {
		h.log.Info("serving widget page", "addr", h.cfg.Addr, "widgets", h.reg.Names())
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// bindAll drives every embed through bind and its initial render.
func (h *Host) bindAll() error {
	var initial []EleUpdate
	for i := range h.pg.Embeds {
		embed := &h.pg.Embeds[i]
		el := h.elements[embed.ElementID]

		var opts []widget.BindOption
		if embed.Width > 0 || embed.Height > 0 {
			opts = append(opts, widget.WithSize(embed.Width, embed.Height))
		}
		if err := h.rt.Bind(el, embed.Widget, opts...); err != nil {
			return err
		}
		if embed.Payload != nil {
			if err := h.rt.SetPayload(el, embed.Payload); err != nil {
				return err
			}
		}
		initial = append(initial, el.Flush()...)
	}

	h.hub.broadcast(initial)
	return nil
}

// unbindAll releases every instance. Destroy failures are logged, not
// fatal: teardown continues for the remaining elements.
func (h *Host) unbindAll() {
	for id, el := range h.elements {
		if err := h.rt.Unbind(el); err != nil {
			h.log.Warn("unbind failed", "element", id, "err", err)
		}
		h.hub.forget(id)
	}
}

// applyLoop is the single writer for every widget instance: it applies
// payload updates and client resize reports through the runtime, then
// broadcasts the accumulated ops once per flush window. Ops staged for the
// same element within a window overwrite each other, so only the latest
// state travels.
func (h *Host) applyLoop(ctx context.Context) error {
	done := ctx.Done()
	flush := channerics.NewTicker(done, h.cfg.FlushWindow)
	pending := map[string]EleUpdate{}

	for {
		select {
		case <-done:
			return nil

		case update, ok := <-h.updates:
			if !ok {
				return nil
			}
			el, known := h.elements[update.Element]
			if !known {
				h.log.Warn("update for unknown element", "element", update.Element)
				continue
			}
			if err := h.rt.SetPayload(el, update.Payload); err != nil {
				// Callback failures leave the instance bound; the
				// producer's next update is the retry.
				h.log.Warn("render failed", "element", update.Element, "err", err)
				continue
			}
			stage(pending, el.Flush())

		case ev := <-h.events:
			if ev.Kind != "resize" {
				h.log.Debug("ignoring client event", "kind", ev.Kind)
				continue
			}
			el, known := h.elements[ev.Element]
			if !known {
				continue
			}
			if err := h.rt.NotifyResize(el, ev.Width, ev.Height); err != nil {
				h.log.Warn("resize failed", "element", ev.Element, "err", err)
				continue
			}
			stage(pending, el.Flush())

		case <-flush:
			if len(pending) == 0 {
				continue
			}
			batch := make([]EleUpdate, 0, len(pending))
			opCount := 0
			for _, update := range pending {
				batch = append(batch, update)
				opCount += len(update.Ops)
			}
			h.hub.broadcast(batch)
			atomicfloat.Add(&h.batches, 1)
			atomicfloat.Add(&h.ops, float64(opCount))
			pending = map[string]EleUpdate{}
		}
	}
}

func stage(pending map[string]EleUpdate, updates []EleUpdate) {
	for _, update := range updates {
		pending[update.EleID] = update
	}
}

func (h *Host) router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.serveIndex)
	r.Get("/ws", h.serveWebsocket)
	r.Get("/healthz", h.serveHealth)
	r.Get("/stats", h.serveStats)
	return r
}

func (h *Host) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if err := h.pg.Render(w, h.reg); err != nil {
		h.log.Error("render page", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Host) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	sub := h.hub.subscribe()
	defer h.hub.unsubscribe(sub)

	cli, err := newClient(w, r, sub, h.events)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	h.log.Debug("client connected", "remote", r.RemoteAddr)
	if err := cli.Sync(); err != nil {
		h.log.Warn("client sync ended", "remote", r.RemoteAddr, "err", err)
		return
	}
	h.log.Debug("client disconnected", "remote", r.RemoteAddr)
}

func (h *Host) serveHealth(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

// serveStats reports connection and publish counters, including the mean
// publish rate since startup.
func (h *Host) serveStats(w http.ResponseWriter, _ *http.Request) {
	batches := atomicfloat.Read(&h.batches)
	elapsed := time.Since(h.started).Seconds()
	stats := map[string]any{
		"clients":         h.hub.count(),
		"batches":         batches,
		"ops":             atomicfloat.Read(&h.ops),
		"batches_per_sec": batches / max(elapsed, 1e-9),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.log.Warn("encode stats", "err", err)
	}
}
