package plugin

import (
	"encoding/json"
	"net/http"
)

// MountLister reports mounted URL tables. *Dispatcher implements it.
type MountLister interface {
	Mounts() []Mount
}

// RegistryHandler serves read-only introspection of the installed apps.
type RegistryHandler struct {
	registry *Registry
	mounts   MountLister
}

// NewRegistryHandler creates a handler for registry. mounts may be nil, in
// which case no mounts are reported.
func NewRegistryHandler(registry *Registry, mounts MountLister) *RegistryHandler {
	return &RegistryHandler{registry: registry, mounts: mounts}
}

// RegisterRoutes registers the introspection routes on mux.
func (h *RegistryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/plugins", h.handleList)
	mux.HandleFunc("GET /api/v1/plugins/{name}", h.handleGet)
	mux.HandleFunc("GET /api/v1/plugins/mounts", h.handleMounts)
}

func (h *RegistryHandler) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.Descriptors())
}

func (h *RegistryHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	app, ok := h.registry.Get(r.PathValue("name"))
	if !ok {
		writeError(w, http.StatusNotFound, "plugin not found")
		return
	}
	writeJSON(w, http.StatusOK, app.Descriptor())
}

func (h *RegistryHandler) handleMounts(w http.ResponseWriter, _ *http.Request) {
	mounts := []Mount{}
	if h.mounts != nil {
		mounts = h.mounts.Mounts()
	}
	writeJSON(w, http.StatusOK, mounts)
}

// envelope is the JSON response wrapper.
type envelope struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: message})
}
