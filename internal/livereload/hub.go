// Package livereload pushes reload notifications to connected browsers over
// websocket or Server-Sent Events.
package livereload

import (
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/starford/xo/internal/metrics"
)

// DefaultBufferSize is the per-client message buffer.
const DefaultBufferSize = 16

// Client is one registered browser connection.
type Client struct {
	ID string
	ch chan string
}

// Messages returns the channel the client receives broadcasts on. It is
// closed when the client is unregistered, dropped or the hub closes.
func (c *Client) Messages() <-chan string { return c.ch }

// Option configures a Hub.
type Option func(*Hub)

// WithBufferSize sets the per-client buffer.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// WithRecorder reports the connected client count.
func WithRecorder(r metrics.Recorder) Option {
	return func(h *Hub) { h.recorder = r }
}

// Hub fans reload messages out to registered clients.
//
// A single internal loop owns the client set. Public methods talk to it
// through channels, so no mutexes are required.
type Hub struct {
	bufSize  int
	logger   *slog.Logger
	recorder metrics.Recorder

	registerCh   chan *Client
	unregisterCh chan *Client
	broadcastCh  chan string
	countReqCh   chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewHub creates a hub and starts its loop.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		bufSize:      DefaultBufferSize,
		logger:       slog.Default(),
		recorder:     metrics.NoopRecorder{},
		registerCh:   make(chan *Client),
		unregisterCh: make(chan *Client),
		broadcastCh:  make(chan string, 64),
		countReqCh:   make(chan chan int),
		stopCh:       make(chan struct{}),
		stopped:      make(chan struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.stopped)

	clients := make(map[*Client]struct{})
	drop := func(c *Client) {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			close(c.ch)
			h.recorder.SetReloadClients(len(clients))
		}
	}

	for {
		select {
		case <-h.stopCh:
			for c := range clients {
				close(c.ch)
			}
			h.recorder.SetReloadClients(0)
			return

		case c := <-h.registerCh:
			clients[c] = struct{}{}
			h.recorder.SetReloadClients(len(clients))
			h.logger.Debug("livereload: client connected",
				slog.String("client", c.ID), slog.Int("clients", len(clients)))

		case c := <-h.unregisterCh:
			drop(c)

		case msg := <-h.broadcastCh:
			for c := range clients {
				select {
				case c.ch <- msg:
				default:
					h.logger.Warn("livereload: client too slow, dropping", slog.String("client", c.ID))
					drop(c)
				}
			}

		case resp := <-h.countReqCh:
			resp <- len(clients)
		}
	}
}

// Register adds a new client. After Close the returned client's channel is
// already closed.
func (h *Hub) Register() *Client {
	c := &Client{ID: uuid.NewString(), ch: make(chan string, h.bufSize)}
	if h.closed.Load() {
		close(c.ch)
		return c
	}
	select {
	case h.registerCh <- c:
	case <-h.stopped:
		close(c.ch)
	}
	return c
}

// Unregister removes a client and closes its channel. Unknown or already
// dropped clients are ignored.
func (h *Hub) Unregister(c *Client) {
	if h.closed.Load() {
		return
	}
	select {
	case h.unregisterCh <- c:
	case <-h.stopped:
	}
}

// Broadcast queues msg for every client registered when it is delivered.
// It never waits on a slow client.
func (h *Hub) Broadcast(msg string) {
	if h.closed.Load() {
		return
	}
	select {
	case h.broadcastCh <- msg:
	case <-h.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	if h.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case h.countReqCh <- resp:
	case <-h.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-h.stopped:
		return 0
	}
}

// Close stops the loop and closes every client channel.
func (h *Hub) Close() {
	if h.closed.CompareAndSwap(false, true) {
		close(h.stopCh)
	}
	<-h.stopped
}
