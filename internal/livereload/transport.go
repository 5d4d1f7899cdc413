package livereload

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const writeWait = 10 * time.Second

// ServeWebSocket upgrades the request and forwards every broadcast as a
// text frame until the browser disconnects.
func (h *Hub) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	if !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		http.Error(w, "websocket upgrade required", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		h.logger.Warn("livereload: websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()

	c := h.Register()
	defer h.Unregister(c)

	// Reads are discarded; the returned ctx ends when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Messages():
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Write(writeCtx, websocket.MessageText, []byte(msg))
			cancel()
			if err != nil {
				h.logger.Debug("livereload: websocket write failed",
					slog.String("client", c.ID), slog.String("error", err.Error()))
				return
			}
		}
	}
}

// ServeSSE streams broadcasts as "reload" events.
func (h *Hub) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	c := h.Register()
	defer h.Unregister(c)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Messages():
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: reload\ndata: %s\n\n", msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
