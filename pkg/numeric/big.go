package numeric

import "math/big"

var _bigOne = big.NewInt(1)

// bigHolder is the arbitrary-precision fallback, for sources whose counters
// do not fit in an int64.
type bigHolder struct {
	v *big.Int
}

// NewBig creates a Holder backed by a copy of v.
func NewBig(v *big.Int) Holder {
	return &bigHolder{v: new(big.Int).Set(v)}
}

func (h *bigHolder) Clone() Holder {
	return &bigHolder{v: new(big.Int).Set(h.v)}
}

func (h *bigHolder) Increment() {
	h.v.Add(h.v, _bigOne)
}

func (h *bigHolder) Add(n int64) {
	h.v.Add(h.v, big.NewInt(n))
}

func (h *bigHolder) Subtract(n int64) {
	h.v.Sub(h.v, big.NewInt(n))
}

func (h *bigHolder) Less(other Holder) bool {
	if o, ok := other.(*bigHolder); ok {
		return h.v.Cmp(o.v) < 0
	}
	return h.Value().Cmp(other.Value()) < 0
}

func (h *bigHolder) LessInt(n int64) bool {
	return h.v.Cmp(big.NewInt(n)) < 0
}

func (h *bigHolder) Delta(other Holder) int64 {
	return new(big.Int).Sub(h.v, other.Value().Big()).Int64()
}

func (h *bigHolder) Value() Value {
	return BigValue(h.v)
}

func (h *bigHolder) ValueThenIncrement() Value {
	v := BigValue(h.v)
	h.v.Add(h.v, _bigOne)
	return v
}
