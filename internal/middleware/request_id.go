// Package middleware provides HTTP middleware for the scheduler API.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Correlation headers. X-Request-ID is always echoed; X-Trace-ID only when
// the caller sent a usable one.
const (
	RequestIDHeader = "X-Request-ID"
	TraceIDHeader   = "X-Trace-ID"
)

// maxIncomingIDLength bounds client-supplied IDs before they reach the logs.
const maxIncomingIDLength = 128

type correlationKey struct{}

type correlation struct {
	requestID string
	traceID   string
}

// RequestID assigns each request an ID, reusing a well-formed incoming
// X-Request-ID and otherwise generating a UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := correlation{
			requestID: r.Header.Get(RequestIDHeader),
			traceID:   r.Header.Get(TraceIDHeader),
		}
		if !validIncomingID(c.requestID) {
			c.requestID = uuid.NewString()
		}
		if !validIncomingID(c.traceID) {
			c.traceID = ""
		}

		w.Header().Set(RequestIDHeader, c.requestID)
		if c.traceID != "" {
			w.Header().Set(TraceIDHeader, c.traceID)
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), correlationKey{}, c)))
	})
}

// GetRequestID returns the request ID, or "" outside the middleware.
func GetRequestID(ctx context.Context) string {
	c, _ := ctx.Value(correlationKey{}).(correlation)
	return c.requestID
}

// GetTraceID returns the caller's trace ID, if any.
func GetTraceID(ctx context.Context) string {
	c, _ := ctx.Value(correlationKey{}).(correlation)
	return c.traceID
}

// validIncomingID accepts printable ASCII without spaces, so forged IDs
// cannot break log lines.
func validIncomingID(id string) bool {
	if id == "" || len(id) > maxIncomingIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if c := id[i]; c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}
