package types

import "context"

// ContextKey is the type of keys stored in request contexts.
type ContextKey string

const (
	// ContextKeyRequestID carries the per-request correlation id.
	ContextKeyRequestID ContextKey = "request_id"
	// ContextKeyUsage tags a language model call with the stage that issued it,
	// so that the nlp router can pick a model per stage.
	ContextKeyUsage ContextKey = "usage"
	// ContextKeyRequestSource records which front end received the request.
	ContextKeyRequestSource ContextKey = "request_source"
)

// Usage tags for language model calls.
const (
	UsageRouter    = "router"
	UsageDecompose = "decompose"
	UsageEntities  = "entities"
	UsageChitchat  = "chitchat"
	UsageAnswer    = "answer"
	UsageRerank    = "rerank"
)

// WithRequestID returns a context carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, id)
}

// RequestIDFromContext returns the request id stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// WithUsage returns a context tagged with a language model usage.
func WithUsage(ctx context.Context, usage string) context.Context {
	return context.WithValue(ctx, ContextKeyUsage, usage)
}

// UsageFromContext returns the usage tag stored in ctx, or "".
func UsageFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyUsage).(string); ok {
		return v
	}
	return ""
}
