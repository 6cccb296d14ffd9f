// Package reqctx carries a per-fetch request ID through contexts so log lines
// from the ladder, its strategies and the batch runner can be correlated.
package reqctx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type key int

const requestKey key = 0

type RequestContext struct {
	RequestID string
	StartTime time.Time
}

// WithRequestContext attaches a fresh request ID to ctx
func WithRequestContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestKey, &RequestContext{
		RequestID: uuid.NewString(),
		StartTime: time.Now(),
	})
}

// Ensure returns ctx unchanged if it already carries a request ID
func Ensure(ctx context.Context) context.Context {
	if _, ok := ctx.Value(requestKey).(*RequestContext); ok {
		return ctx
	}
	return WithRequestContext(ctx)
}

func GetRequestContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(requestKey).(*RequestContext); ok {
		return rc
	}
	return &RequestContext{
		RequestID: "unknown",
		StartTime: time.Now(),
	}
}

// RequestError wraps an error with request context
type RequestError struct {
	RequestID string
	Err       error
}

// Error implements the error interface
func (e *RequestError) Error() string {
	return fmt.Sprintf("[%s] %v", e.RequestID, e.Err)
}

// Unwrap returns the underlying error
func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError creates a new RequestError from context
func NewRequestError(ctx context.Context, err error) error {
	rc := GetRequestContext(ctx)
	return &RequestError{
		RequestID: rc.RequestID,
		Err:       err,
	}
}
