package logging

import "context"

// contextKey is an unexported type for context keys defined in this package,
// avoiding collisions with keys from other packages.
type contextKey int

const (
	sessionIDKey contextKey = iota
	toolCallIDKey
	componentKey
	operationKey
)

// WithSession returns a context carrying the given session ID. Logging calls
// made with this context automatically include a session_id attribute.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithToolCall returns a context carrying the given tool-call (checkpoint
// trigger) ID.
func WithToolCall(ctx context.Context, toolCallID string) context.Context {
	return context.WithValue(ctx, toolCallIDKey, toolCallID)
}

// WithComponent returns a context tagging log lines with the originating
// component name (e.g. "fold", "rewrite", "notesstore").
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// WithOperation returns a context tagging log lines with the history-rewrite
// operation name (e.g. "rebase", "squash", "stash-pop").
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey, operation)
}
