package zendeskproxy

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/GoCodeAlone/zendeskproxy/metrics"
	"github.com/GoCodeAlone/zendeskproxy/ratelimit"
)

const maxRequestBody = 1 << 20

type handler struct {
	client    *Client
	logger    *slog.Logger
	metrics   *metrics.Collector
	clientKey ratelimit.KeyFunc
}

// v0Request is the flat ticket form accepted by the v0 endpoint.
type v0Request struct {
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Subject      string        `json:"subject"`
	Body         string        `json:"body"`
	CustomFields []CustomField `json:"custom_fields"`
	Tags         []string      `json:"tags"`
}

// v1Request mirrors the Zendesk ticket shape.
type v1Request struct {
	Requester struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"requester"`
	Subject string `json:"subject"`
	Comment struct {
		Body    string   `json:"body"`
		Uploads []string `json:"uploads"`
	} `json:"comment"`
	CustomFields   []CustomField  `json:"custom_fields"`
	Tags           []string       `json:"tags"`
	Group          string         `json:"group"`
	AdditionalInfo map[string]any `json:"additional_info"`
}

// handleV0 files a ticket from the flat form.
func (h *handler) handleV0(w http.ResponseWriter, r *http.Request) {
	var req v0Request
	if !h.decode(w, r, "v0", &req) {
		return
	}
	if req.Name == "" || req.Email == "" || req.Subject == "" || req.Body == "" {
		h.reject(w, r, "v0", "name, email, subject and body are required")
		return
	}
	status := h.client.CreateTicket(r.Context(), Ticket{
		RequesterName:  req.Name,
		RequesterEmail: req.Email,
		Subject:        req.Subject,
		Body:           req.Body,
		CustomFields:   req.CustomFields,
		Tags:           req.Tags,
	})
	h.respond(w, r, "v0", status)
}

// handleV1 files a ticket from the Zendesk-shaped form.
func (h *handler) handleV1(w http.ResponseWriter, r *http.Request) {
	var req v1Request
	if !h.decode(w, r, "v1", &req) {
		return
	}
	if req.Requester.Name == "" || req.Requester.Email == "" || req.Subject == "" || req.Comment.Body == "" {
		h.reject(w, r, "v1", "requester, subject and comment body are required")
		return
	}
	status := h.client.CreateTicket(r.Context(), Ticket{
		RequesterName:  req.Requester.Name,
		RequesterEmail: req.Requester.Email,
		Subject:        req.Subject,
		Body:           req.Comment.Body,
		Uploads:        req.Comment.Uploads,
		Group:          req.Group,
		CustomFields:   req.CustomFields,
		Tags:           req.Tags,
		AdditionalInfo: req.AdditionalInfo,
	})
	h.respond(w, r, "v1", status)
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, endpoint string, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		h.reject(w, r, endpoint, "invalid JSON body")
		return false
	}
	return true
}

func (h *handler) reject(w http.ResponseWriter, r *http.Request, endpoint, message string) {
	h.logger.Warn("Rejected ticket request", "endpoint", endpoint, "reason", message, "request_id", requestIDFrom(r.Context()))
	h.metrics.RecordTicket(endpoint, http.StatusBadRequest)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (h *handler) respond(w http.ResponseWriter, r *http.Request, endpoint string, status int) {
	h.logger.Info("Ticket request proxied", "endpoint", endpoint, "status", status, "request_id", requestIDFrom(r.Context()))
	h.metrics.RecordTicket(endpoint, status)
	w.WriteHeader(status)
}
