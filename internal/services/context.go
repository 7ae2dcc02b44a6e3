package services

import "context"

type contextKey string

const (
	componentKey contextKey = "component"
	querySeqKey  contextKey = "query_seq"
	requestIDKey contextKey = "request_id"
)

// WithComponent annotates context with the originating component name.
func WithComponent(ctx context.Context, component string) context.Context {
	if component == "" {
		return ctx
	}
	return context.WithValue(ctx, componentKey, component)
}

// ComponentFromContext returns the component name if present.
func ComponentFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(componentKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithQuerySeq annotates context with the sequence number of the query that
// issued the request.
func WithQuerySeq(ctx context.Context, seq uint64) context.Context {
	return context.WithValue(ctx, querySeqKey, seq)
}

// QuerySeqFromContext extracts the query sequence number if present.
func QuerySeqFromContext(ctx context.Context) (uint64, bool) {
	v, ok := ctx.Value(querySeqKey).(uint64)
	return v, ok
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
