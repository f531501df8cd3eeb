package numeric

import (
	"math/big"
	"strconv"
)

// Value is an immutable snapshot of a Holder.
// The zero Value is 0.
type Value struct {
	i int64
	b *big.Int // nil for fixed-width values
}

// Int64Value returns a Value holding v.
func Int64Value(v int64) Value {
	return Value{i: v}
}

// BigValue returns a Value holding a copy of v.
func BigValue(v *big.Int) Value {
	return Value{b: new(big.Int).Set(v)}
}

// Int64 returns the value truncated to int64.
func (v Value) Int64() int64 {
	if v.b != nil {
		return v.b.Int64()
	}
	return v.i
}

// Big returns the value as a fresh big.Int.
func (v Value) Big() *big.Int {
	if v.b != nil {
		return new(big.Int).Set(v.b)
	}
	return big.NewInt(v.i)
}

// Cmp compares v and other, returning -1, 0 or +1.
func (v Value) Cmp(other Value) int {
	if v.b == nil && other.b == nil {
		switch {
		case v.i < other.i:
			return -1
		case v.i > other.i:
			return 1
		default:
			return 0
		}
	}
	return v.Big().Cmp(other.Big())
}

func (v Value) String() string {
	if v.b != nil {
		return v.b.String()
	}
	return strconv.FormatInt(v.i, 10)
}
