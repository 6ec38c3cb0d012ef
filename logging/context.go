package logging

import "context"

type debugKey struct{}

// WithDebug tags ctx so that contextual log calls made with it are emitted at any level. Those
// entries carry `name` under the "debug_log" key.
func WithDebug(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, debugKey{}, name)
}

// DebugName returns the name ctx was tagged with and whether it was tagged at all.
func DebugName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(debugKey{}).(string)
	return name, ok
}
