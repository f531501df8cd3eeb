// Package source defines the authoritative counter behind an allocator:
// a slow store that hands out raw block-start values, one per round trip.
package source

import (
	"context"

	"github.com/AutoMQ/idalloc/pkg/numeric"
)

// Source hands out the next raw block-start value for a tenant.
// An empty tenant targets the shared, no-tenant counter.
//
// When the consuming allocator reports AppliesIncrementToSource, the source
// must advance its stored counter by the allocator's increment size on every
// fetch, so successive raw values are spaced one block apart. That coupling
// is a configuration contract; it cannot be enforced at runtime.
type Source interface {
	// NextValue returns the next raw value. It may perform blocking I/O and
	// may fail; the caller does not retry.
	NextValue(ctx context.Context, tenant string) (numeric.Holder, error)
}

// Func adapts a function to the Source interface.
type Func func(ctx context.Context, tenant string) (numeric.Holder, error)

func (f Func) NextValue(ctx context.Context, tenant string) (numeric.Holder, error) {
	return f(ctx, tenant)
}
