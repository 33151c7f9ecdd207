package resourcecache

import (
	"context"
)

type affectedKeysContextKey struct{}

// WithAffectedKeys attaches extra cache keys, or key prefixes, to
// invalidate when a mutation made with ctx succeeds. The resource prefix is
// always invalidated; use this for views of other resources that embed the
// changed records.
func WithAffectedKeys(ctx context.Context, keys ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(keys) == 0 {
		return ctx
	}

	combined := dedupeStrings(append(affectedKeysFromContext(ctx), keys...))
	if len(combined) == 0 {
		return ctx
	}

	return context.WithValue(ctx, affectedKeysContextKey{}, combined)
}

func affectedKeysFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if keys, ok := ctx.Value(affectedKeysContextKey{}).([]string); ok {
		return append([]string(nil), keys...)
	}
	return nil
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
