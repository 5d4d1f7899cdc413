package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/starford/xo/internal/siteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *siteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *siteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Status handles GET /status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status(r.Context()))
}

// Documents handles GET /graph/documents.
func (h *Handler) Documents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DocumentsResponse{Documents: h.svc.Documents(r.Context())})
}

// Dependents handles GET /graph/dependents?path=.
func (h *Handler) Dependents(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	items, err := h.svc.Dependents(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GraphResponse{Path: path, Items: items})
}

// Dependencies handles GET /graph/dependencies?path=.
func (h *Handler) Dependencies(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	items, err := h.svc.Dependencies(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GraphResponse{Path: path, Items: items})
}

// Rebuild handles POST /rebuild.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	var req RebuildRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid body"))
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
			return
		}
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	sum, err := h.svc.Rebuild(r.Context(), req.Paths)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("api: rebuild", slog.String("status", sum.Status), slog.Int("built", len(sum.Built)))
	writeJSON(w, http.StatusOK, sum)
}
