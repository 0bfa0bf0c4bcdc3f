package atomic

import "sync/atomic"

type Bool struct {
	v uint32
}

func NewBool(v bool) *Bool {
	b := &Bool{}
	b.Set(v)
	return b
}

func (b *Bool) Get() bool {
	return atomic.LoadUint32(&b.v) == 1
}

func (b *Bool) Set(v bool) {
	atomic.StoreUint32(&b.v, boolToUint32(v))
}

// CompareAndSwap reports whether the value was old and is now new.
func (b *Bool) CompareAndSwap(old, new bool) bool {
	return atomic.CompareAndSwapUint32(&b.v, boolToUint32(old), boolToUint32(new))
}

func boolToUint32(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}
