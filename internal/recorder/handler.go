package recorder

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler exposes recording status over HTTP using go-chi.
type Handler struct {
	registry *Registry
	log      *slog.Logger
}

// NewHandler returns a Handler serving the recordings held by registry.
func NewHandler(registry *Registry, log *slog.Logger) *Handler {
	return &Handler{registry: registry, log: log}
}

// Routes mounts the status endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.Healthz)
	r.Route("/recordings", func(r chi.Router) {
		r.Get("/", h.ListRecordings)
		r.Get("/{name}", h.GetRecording)
	})
}

// ListRecordings handles GET /recordings.
func (h *Handler) ListRecordings(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.registry.Statuses())
}

// GetRecording handles GET /recordings/{name}.
func (h *Handler) GetRecording(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	rec, ok := h.registry.Get(name)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h.writeJSON(w, rec.Status())
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("encode response failed", slog.String("error", err.Error()))
	}
}
