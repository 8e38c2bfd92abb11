package logging

import (
	"context"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// newRequestID returns a short identifier for one listener request. The formatter
// prints it in the second column.
func newRequestID() string {
	return uuid.NewString()[:8]
}

// WithRequestID attaches a request ID to ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// GetRequestID returns the request ID carried by ctx, or "".
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
