package numeric

import "math/big"

// int64Holder is the fast fixed-width Holder.
type int64Holder struct {
	v int64
}

// NewInt64 creates a Holder backed by a machine int64.
func NewInt64(v int64) Holder {
	return &int64Holder{v: v}
}

func (h *int64Holder) Clone() Holder {
	return &int64Holder{v: h.v}
}

func (h *int64Holder) Increment() {
	h.v++
}

func (h *int64Holder) Add(n int64) {
	h.v += n
}

func (h *int64Holder) Subtract(n int64) {
	h.v -= n
}

func (h *int64Holder) Less(other Holder) bool {
	if o, ok := other.(*int64Holder); ok {
		return h.v < o.v
	}
	return h.Value().Cmp(other.Value()) < 0
}

func (h *int64Holder) LessInt(n int64) bool {
	return h.v < n
}

func (h *int64Holder) Delta(other Holder) int64 {
	if o, ok := other.(*int64Holder); ok {
		return h.v - o.v
	}
	return new(big.Int).Sub(h.Value().Big(), other.Value().Big()).Int64()
}

func (h *int64Holder) Value() Value {
	return Int64Value(h.v)
}

func (h *int64Holder) ValueThenIncrement() Value {
	v := Int64Value(h.v)
	h.v++
	return v
}
