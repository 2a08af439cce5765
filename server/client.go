package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 1 * time.Second
	// The rate at which update batches are sent to a client; batches
	// arriving faster are dropped, which is safe since they are
	// idempotent element snapshots.
	pubResolution  = 100 * time.Millisecond
	pingResolution = 200 * time.Millisecond
	// The number of pings to tolerate losing before concluding the peer
	// is gone.
	pongWait = pingResolution * 4

	writeDeadline    = time.Second
	closeGracePeriod = time.Second
)

var upgrader = websocket.Upgrader{}

// clientEvent is a message from a connected page. Resize reports are the
// only kind today; the kind field keeps the channel open to others.
type clientEvent struct {
	Kind    string `json:"kind"`
	Element string `json:"element"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// ErrPongDeadlineExceeded signals a client disconnect: no pong arrived
// before the read deadline ran out.
var ErrPongDeadlineExceeded = errors.New("client disconnect, pong deadline exceeded")

// client publishes update batches to one connected page and forwards the
// page's events (resizes) back to the host. The socket is full-duplex:
// a read routine, a write/publish routine, and a ping/pong liveness check
// run per connection under one errgroup.
type client struct {
	updates <-chan []EleUpdate
	events  chan<- clientEvent
	sock    *websock
	rootCtx context.Context
}

// newClient upgrades the request to a websocket and returns a publisher
// for it.
func newClient(
	w http.ResponseWriter,
	r *http.Request,
	updates <-chan []EleUpdate,
	events chan<- clientEvent,
) (*client, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, err
	}

	return &client{
		updates: updates,
		events:  events,
		sock:    newWebsock(ws),
		rootCtx: r.Context(),
	}, nil
}

// Sync runs the connection's routines until the client disconnects (nil)
// or an unexpected error occurs.
func (cli *client) Sync() error {
	defer cli.sock.Close()

	// Liveness is deadline based: each pong pushes the read deadline out,
	// so a peer that stops answering pings fails the next read instead of
	// hanging it. Handlers are installed before any routine reads.
	conn := cli.sock.Conn()
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	group, groupCtx := errgroup.WithContext(cli.rootCtx)
	group.Go(func() error {
		return cli.readEvents(groupCtx)
	})
	group.Go(func() error {
		return cli.pingPong(groupCtx)
	})
	group.Go(func() error {
		return cli.publish(groupCtx)
	})
	group.Go(func() error {
		// Expiring the deadline on the underlying conn unblocks any
		// in-flight read, so teardown is never held up by a half-open
		// connection. net.Conn deadlines are safe to set concurrently.
		<-groupCtx.Done()
		return conn.UnderlyingConn().SetReadDeadline(time.Now())
	})

	err := group.Wait()
	if isClosure(err) {
		return nil
	}
	return err
}

// readEvents decodes page events and forwards them to the host. Errors
// returned by websocket read methods are permanent, hence any error
// triggers full teardown. Reading also services the pong handler, which
// keeps the read deadline ahead of the next expiry while the peer lives.
func (cli *client) readEvents(ctx context.Context) error {
	for {
		var ev clientEvent
		err := cli.sock.Read(ctx, func(ws *websocket.Conn) error {
			return ws.ReadJSON(&ev)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return ErrPongDeadlineExceeded
			}
			return err
		}
		if ev.Kind == "" {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		select {
		case cli.events <- ev:
		case <-ctx.Done():
			return nil
		}
	}
}

// pingPong emits the liveness pings. The pong side lives entirely on the
// read path, which must be running for the pong handler to fire.
func (cli *client) pingPong(ctx context.Context) error {
	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if err := cli.ping(ctx); err != nil {
				return err
			}
		}
	}
}

func (cli *client) ping(ctx context.Context) error {
	return cli.sock.Write(ctx, func(ws *websocket.Conn) (err error) {
		if err = ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			if isError(err) {
				err = fmt.Errorf("ping failed: %w", err)
			}
		}
		return
	})
}

// publish sends update batches at no more than the publication rate,
// dropping intermediate batches received faster than that.
func (cli *client) publish(ctx context.Context) error {
	lastSync := time.Time{}

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-cli.updates:
			// Graceful input channel closure.
			if !ok {
				return nil
			}
			if time.Since(lastSync) < pubResolution {
				break
			}

			lastSync = time.Now()
			err := cli.sock.Write(ctx, func(ws *websocket.Conn) (writeErr error) {
				if writeErr = ws.SetWriteDeadline(time.Now().Add(writeWait)); writeErr != nil {
					return fmt.Errorf("failed to set deadline: %w", writeErr)
				}
				if writeErr = ws.WriteJSON(batch); writeErr != nil {
					if isError(writeErr) {
						writeErr = fmt.Errorf("publish failed: %w", writeErr)
					}
				}
				return
			})
			if err != nil {
				return err
			}
		}
	}
}

func isError(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

func isClosure(err error) bool {
	return err != nil && websocket.IsCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

// ErrSockCongestion indicates too many waiters on the socket for an op.
var ErrSockCongestion = errors.New("sock op failed due to congestion")

// websock serializes reads and writes to the websocket, whose requirement
// is at most one concurrent reader and one concurrent writer.
type websock struct {
	// These are merely mutexes, but channel semantics are cleaner.
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
}

func newWebsock(ws *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

// Conn returns the underlying websocket. This should only be used
// non-concurrently for setup, e.g. adding handlers.
func (sock *websock) Conn() *websocket.Conn {
	return sock.ws
}

// Close sends the close message and tears the socket down.
func (sock *websock) Close() {
	_ = sock.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = sock.ws.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	time.Sleep(closeGracePeriod)
	sock.ws.Close()
}

// Read serializes read operations on the socket.
func (sock *websock) Read(ctx context.Context, readFn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.ws)
	}
}

// Write serializes write operations on the socket, giving up after the
// write deadline if another writer holds it.
func (sock *websock) Write(ctx context.Context, writeFn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return writeFn(sock.ws)
	case <-time.After(writeDeadline):
		return ErrSockCongestion
	}
}
