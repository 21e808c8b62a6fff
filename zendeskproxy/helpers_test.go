package zendeskproxy

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeZendesk records the API calls made to it.
type fakeZendesk struct {
	mu           sync.Mutex
	server       *httptest.Server
	requests     []recordedRequest
	createStatus int
	updateStatus int
	ticketID     int64
}

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

func newFakeZendesk(t *testing.T) *fakeZendesk {
	t.Helper()
	f := &fakeZendesk{createStatus: http.StatusCreated, updateStatus: http.StatusOK, ticketID: 4242}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(data, &body)

		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Auth:   r.Header.Get("Authorization"),
			Body:   body,
		})
		createStatus, updateStatus, id := f.createStatus, f.updateStatus, f.ticketID
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(createStatus)
			_ = json.NewEncoder(w).Encode(map[string]any{"ticket": map[string]any{"id": id}})
		case http.MethodPut:
			w.WriteHeader(updateStatus)
			_, _ = io.WriteString(w, `{}`)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeZendesk) calls() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakeZendesk) config() Config {
	return Config{
		URL:              f.server.URL,
		OAuthAccessToken: "s3cret",
		GroupIDMapping:   map[string]int64{"billing": 360000001},
		RequestsPerHour:  50,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ticketField digs a nested value out of a recorded request body.
func ticketField(body map[string]any, path ...string) any {
	var cur any = body["ticket"]
	for _, p := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}
