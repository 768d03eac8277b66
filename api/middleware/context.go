package middleware

import "context"

type contextKey string

const (
	ctxSessionID    contextKey = "session_id"
	ctxSessionToken contextKey = "session_token"
)

// SessionIDFromContext returns the storefront session bound to the request.
func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

// SessionTokenFromContext returns the signed token carrying the session.
func SessionTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionToken).(string); ok {
		return v
	}
	return ""
}

// WithSession injects the session identifier and its token into the context.
func WithSession(ctx context.Context, sessionID, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxSessionID, sessionID)
	return context.WithValue(ctx, ctxSessionToken, token)
}
