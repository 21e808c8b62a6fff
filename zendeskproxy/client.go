package zendeskproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/GoCodeAlone/zendeskproxy/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer used for Zendesk API spans.
const TracerName = "zendeskproxy.zendesk"

// CustomField is a Zendesk ticket custom field value.
type CustomField struct {
	ID    int64 `json:"id"`
	Value any   `json:"value"`
}

// Ticket is a support request to be filed in Zendesk.
type Ticket struct {
	RequesterName  string
	RequesterEmail string
	Subject        string
	Body           string
	Group          string
	CustomFields   []CustomField
	Uploads        []string
	Tags           []string
	AdditionalInfo map[string]any
}

// Client files tickets through the Zendesk tickets API.
type Client struct {
	cfg     Config
	http    *http.Client
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewClient creates a Client. A nil httpClient uses http.DefaultClient and a
// nil logger uses slog.Default.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger, m *metrics.Collector) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger, metrics: m}
}

type zdRequester struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type zdComment struct {
	Body    string   `json:"body"`
	Uploads []string `json:"uploads,omitempty"`
	Public  *bool    `json:"public,omitempty"`
}

type zdTicket struct {
	Requester    *zdRequester  `json:"requester,omitempty"`
	Subject      string        `json:"subject,omitempty"`
	Comment      zdComment     `json:"comment"`
	CustomFields []CustomField `json:"custom_fields,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	GroupID      int64         `json:"group_id,omitempty"`
}

type zdEnvelope struct {
	Ticket zdTicket `json:"ticket"`
}

type zdCreated struct {
	Ticket struct {
		ID int64 `json:"id"`
	} `json:"ticket"`
}

// CreateTicket files t and returns the HTTP status to report to the caller:
// 201 on success, 503 when the proxy has no Zendesk credentials, 400 for an
// unknown group, the upstream status when Zendesk rejects a call, and 500
// when Zendesk cannot be reached.
func (c *Client) CreateTicket(ctx context.Context, t Ticket) int {
	if !c.cfg.Configured() {
		c.logger.Error("Zendesk proxy is not configured, cannot create ticket", "subject", t.Subject)
		return http.StatusServiceUnavailable
	}

	payload := zdEnvelope{Ticket: zdTicket{
		Requester:    &zdRequester{Name: t.RequesterName, Email: t.RequesterEmail},
		Subject:      t.Subject,
		Comment:      zdComment{Body: t.Body, Uploads: t.Uploads},
		CustomFields: t.CustomFields,
		Tags:         t.Tags,
	}}
	if t.Group != "" {
		id, ok := c.cfg.GroupIDMapping[t.Group]
		if !ok {
			c.logger.Error("Unknown Zendesk group", "group", t.Group)
			return http.StatusBadRequest
		}
		payload.Ticket.GroupID = id
	}

	status, body, err := c.do(ctx, "create_ticket", http.MethodPost, c.cfg.URL+"/api/v2/tickets.json", payload)
	if err != nil {
		c.logger.Error("Failed to reach Zendesk", "operation", "create_ticket", "error", err)
		return http.StatusInternalServerError
	}
	if status != http.StatusCreated {
		c.logger.Error("Zendesk rejected ticket", "status", status, "response", truncate(body, 512))
		return status
	}

	if len(t.AdditionalInfo) == 0 {
		return http.StatusCreated
	}

	var created zdCreated
	if err := json.Unmarshal(body, &created); err != nil || created.Ticket.ID == 0 {
		c.logger.Error("Could not read created ticket id", "error", err)
		return http.StatusInternalServerError
	}
	return c.addPrivateComment(ctx, created.Ticket.ID, t.AdditionalInfo)
}

// addPrivateComment attaches info to the ticket as an internal note.
func (c *Client) addPrivateComment(ctx context.Context, ticketID int64, info map[string]any) int {
	public := false
	payload := zdEnvelope{Ticket: zdTicket{
		Comment: zdComment{Body: formatAdditionalInfo(info), Public: &public},
	}}
	url := fmt.Sprintf("%s/api/v2/tickets/%d.json", c.cfg.URL, ticketID)

	status, body, err := c.do(ctx, "add_comment", http.MethodPut, url, payload)
	if err != nil {
		c.logger.Error("Failed to reach Zendesk", "operation", "add_comment", "ticket", ticketID, "error", err)
		return http.StatusInternalServerError
	}
	if status != http.StatusOK {
		c.logger.Error("Zendesk rejected ticket comment", "ticket", ticketID, "status", status, "response", truncate(body, 512))
		return status
	}
	return http.StatusCreated
}

func (c *Client) do(ctx context.Context, operation, method, url string, payload any) (status int, body []byte, err error) {
	ctx, span := otel.Tracer(TracerName).Start(ctx, "zendesk "+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("zendesk.operation", operation)),
	)
	defer func() {
		span.SetAttributes(attribute.Int("zendesk.status", status))
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case status >= 400:
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		span.End()
	}()

	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal %s payload: %w", operation, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.OAuthAccessToken)

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.ObserveUpstream(operation, time.Since(start))
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("read %s response: %w", operation, err)
	}
	return resp.StatusCode, body, nil
}

func formatAdditionalInfo(info map[string]any) string {
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Additional information:\n\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, info[k])
	}
	return b.String()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
