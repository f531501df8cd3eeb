// Package numeric provides the mutable integer cells the allocator advances.
// A Holder hides whether the value is backed by a machine int64 or by an
// arbitrary-precision integer, so allocation logic stays width-agnostic.
package numeric

// Holder is a mutable integer cell.
// Implementations are NOT safe for concurrent use; the owner serializes access.
type Holder interface {
	// Clone returns an independent copy of the holder.
	Clone() Holder

	// Increment advances the value by 1.
	Increment()

	// Add advances the value by n.
	Add(n int64)

	// Subtract moves the value back by n.
	Subtract(n int64)

	// Less reports whether the value is less than the other holder's value.
	Less(other Holder) bool

	// LessInt reports whether the value is less than n.
	LessInt(n int64) bool

	// Delta returns the difference between this holder and the other one,
	// computed in the holder's native domain and truncated to int64.
	// Callers only use it for differences known to be small.
	Delta(other Holder) int64

	// Value returns an immutable snapshot of the current value.
	Value() Value

	// ValueThenIncrement returns a snapshot of the current value and then
	// advances the holder by 1. The snapshot is what the caller hands out.
	ValueThenIncrement() Value
}
