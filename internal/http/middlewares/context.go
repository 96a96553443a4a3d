package middlewares

import (
	"context"

	"github.com/dropDatabas3/authcore/internal/session"
)

type ctxKey string

const (
	// ctxSessionKey holds the verified session payload
	ctxSessionKey ctxKey = "session"
	// ctxRequestIDKey holds the request ID
	ctxRequestIDKey ctxKey = "request_id"
)

// WithSession injects a verified session payload into the context.
func WithSession(ctx context.Context, p *session.Payload) context.Context {
	return context.WithValue(ctx, ctxSessionKey, p)
}

// setRequestID injects the request ID into the context (internal).
func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetSession returns the session payload from the context, or nil when the
// request is anonymous or the session middleware was not applied.
func GetSession(ctx context.Context) *session.Payload {
	if v := ctx.Value(ctxSessionKey); v != nil {
		if p, ok := v.(*session.Payload); ok {
			return p
		}
	}
	return nil
}

// GetRequestID returns the request ID from the context, or "".
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
