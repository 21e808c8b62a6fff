package tracing

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ServerTracerName names the tracer used for inbound request spans.
const ServerTracerName = "zendeskproxy.http"

// SpanMiddleware creates a server span named "METHOD /path" for each
// request, continuing any trace the caller propagated in the headers.
func SpanMiddleware(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, ServerTracerName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Transport wraps base so outgoing requests get a client span and carry the
// current trace context. A nil base uses http.DefaultTransport.
func Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(base)
}
