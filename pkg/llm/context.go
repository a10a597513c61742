package llm

import (
	"context"
	"net/http"
)

type contextKey string

const requestIDKey contextKey = "llm_request_id"

// requestIDHeader carries the resolution ID to the provider so its logs can
// be correlated with ours.
const requestIDHeader = "X-Request-Id"

// WithRequestID tags every provider call made with ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the tag set by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestIDTransport copies the context request ID onto outgoing requests.
type requestIDTransport struct {
	base http.RoundTripper
}

func (t *requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if id := RequestIDFromContext(req.Context()); id != "" {
		req = req.Clone(req.Context())
		req.Header.Set(requestIDHeader, id)
	}
	return t.base.RoundTrip(req)
}

func newHTTPClient() *http.Client {
	return &http.Client{Transport: &requestIDTransport{base: http.DefaultTransport}}
}
