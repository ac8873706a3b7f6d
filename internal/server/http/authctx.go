package httpserver

import (
	"context"

	"github.com/and161185/notekeeper/internal/model"
)

type ctxKey string

const (
	identityKey  ctxKey = "notes.identity"
	requestIDKey ctxKey = "notes.requestID"
)

// WithIdentity stores the authenticated caller in context.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromCtx fetches the authenticated caller from context.
func IdentityFromCtx(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(model.Identity)
	return id, ok
}

// RequestIDFromCtx returns the request id assigned by the RequestID middleware.
func RequestIDFromCtx(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey).(string)
	return s
}
