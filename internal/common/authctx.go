package common

import "context"

type ctxKey string

const sessionKey ctxKey = "auth/session"

// WithSession stores the authenticated session identifier on the provided context.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey, id)
}

// Session extracts the authenticated session identifier from the context if present.
func Session(ctx context.Context) (string, bool) {
	v := ctx.Value(sessionKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
