// Package server wires the development HTTP surface: built pages with the
// reload script, static files, live-reload transports, health, metrics and
// the introspection API.
package server

import (
	"bytes"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/xo/internal/livereload"
	"github.com/starford/xo/internal/storage"
)

// APIPrefix is where the introspection API is mounted.
const APIPrefix = "/__xo/api"

// Deps are the handlers and trees the router serves.
type Deps struct {
	Output  storage.Provider
	Public  storage.Provider
	Hub     *livereload.Hub
	API     http.Handler
	Metrics http.Handler
}

// NewRouter builds the chi router for the dev server.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", health)
	r.Get("/health/ready", health)

	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	if d.Hub != nil {
		r.Get(livereload.WebSocketPath, d.Hub.ServeWebSocket)
		r.Get(livereload.EventsPath, d.Hub.ServeSSE)
	}
	if d.API != nil {
		r.Mount(APIPrefix, d.API)
	}

	if d.Public != nil {
		r.Get("/public/*", staticFile(d.Public))
	}
	r.Get("/*", pages(d.Output))

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// staticFile serves files from tree verbatim.
func staticFile(tree storage.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rel := chi.URLParam(r, "*")
		info, ok := regularFile(tree, rel)
		if !ok {
			http.NotFound(w, r)
			return
		}
		serveFile(w, r, tree, rel, info)
	}
}

// pages serves <output>/<path>/index.html with the reload script injected.
// A request naming a built file directly is served verbatim.
func pages(tree storage.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rel := strings.Trim(path.Clean("/"+chi.URLParam(r, "*")), "/")

		page := path.Join(rel, "index.html")
		if _, ok := regularFile(tree, page); ok {
			data, err := tree.Read(page)
			if err != nil {
				http.Error(w, "read failed", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			_, _ = w.Write(livereload.Inject(data, r.Host))
			return
		}

		if rel != "" {
			if info, ok := regularFile(tree, rel); ok {
				serveFile(w, r, tree, rel, info)
				return
			}
		}
		http.NotFound(w, r)
	}
}

func regularFile(tree storage.Provider, rel string) (fs.FileInfo, bool) {
	if rel == "" {
		return nil, false
	}
	info, err := tree.Stat(rel)
	if err != nil || !info.Mode().IsRegular() {
		return nil, false
	}
	return info, true
}

func serveFile(w http.ResponseWriter, r *http.Request, tree storage.Provider, rel string, info fs.FileInfo) {
	abs, err := tree.Resolve(rel)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	modTime := time.Time{}
	if info != nil {
		modTime = info.ModTime()
	}
	http.ServeContent(w, r, path.Base(rel), modTime, bytes.NewReader(data))
}
