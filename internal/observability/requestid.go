package observability

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID on inbound requests and responses.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

// Client-supplied IDs end up in log records and response headers, so only a
// conservative character set is accepted.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

type requestIDKey struct{}

// GenerateRequestID returns a random (v4) UUID.
func GenerateRequestID() string {
	return uuid.NewString()
}

// ContextWithRequestID returns a copy of ctx carrying requestID.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request ID carried by ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// GetOrCreateRequestID returns the ID already carried by ctx. Without one it
// generates an ID and returns a context carrying it, so every layer of a
// call reports the same ID.
func GetOrCreateRequestID(ctx context.Context) (context.Context, string) {
	if id := RequestIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := GenerateRequestID()
	return ContextWithRequestID(ctx, id), id
}

// RequestIDFromHeader returns the client-supplied request ID if it is safe to
// echo back.
func RequestIDFromHeader(h http.Header) (string, bool) {
	id := strings.TrimSpace(h.Get(RequestIDHeader))
	if len(id) > maxRequestIDLen || !requestIDPattern.MatchString(id) {
		return "", false
	}
	return id, true
}

// RequestIDMiddleware attaches a request ID to the request context and echoes
// it in the response. A missing or unsafe header gets a fresh UUID.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := RequestIDFromHeader(r.Header)
		if !ok {
			id = GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ContextWithRequestID(r.Context(), id)))
	})
}
