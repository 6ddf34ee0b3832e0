package middleware

import (
	"context"

	attributeutils "github.com/bwaidelich/AttributeUtils"
)

// Wrapper decorates an Analyzer with extra behavior (caching, tracing,
// policy) while keeping the Resolve contract intact.
type Wrapper func(attributeutils.Analyzer) attributeutils.Analyzer

// Chain wraps base with the given wrappers, first wrapper outermost:
// Chain(base, a, b) resolves through a, then b, then base.
func Chain(base attributeutils.Analyzer, wraps ...Wrapper) attributeutils.Analyzer {
	out := base
	for i := len(wraps) - 1; i >= 0; i-- {
		out = wraps[i](out)
	}
	return out
}

// ctxKeyResolved is a typed context key for storing Resolved[T].
// Using a generic struct type ensures uniqueness per T.
type ctxKeyResolved[T any] struct{}

// ContextWithResolved attaches a Resolved[T] to the context, so handlers
// downstream of a resolving middleware can pick up the marker without
// re-resolving.
func ContextWithResolved[T any](ctx context.Context, r attributeutils.Resolved[T]) context.Context {
	return context.WithValue(ctx, ctxKeyResolved[T]{}, r)
}

// ResolvedFromContext retrieves a Resolved[T] from context.
func ResolvedFromContext[T any](ctx context.Context) (attributeutils.Resolved[T], bool) {
	v, ok := ctx.Value(ctxKeyResolved[T]{}).(attributeutils.Resolved[T])
	return v, ok
}

// ErrorPayload shapes Issues for JSON responses.
func ErrorPayload(issues []attributeutils.Issue) map[string]any {
	return map[string]any{"issues": issues}
}
