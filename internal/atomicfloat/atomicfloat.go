// atomicfloat provides lock-free float64 counters via CAS on the bit
// pattern. Pointers into the value are never held across more than the
// CAS call itself, keeping the unsafe usage within the gc's rules.
package atomicfloat

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// Read atomically reads a float64.
func Read(val *float64) float64 {
	return math.Float64frombits(atomic.LoadUint64((*uint64)(unsafe.Pointer(val))))
}

// Add atomically adds to a float64, returning the new value.
func Add(val *float64, addend float64) (newVal float64) {
	for {
		old := Read(val)
		newVal = old + addend
		if atomic.CompareAndSwapUint64(
			(*uint64)(unsafe.Pointer(val)),
			math.Float64bits(old),
			math.Float64bits(newVal),
		) {
			return
		}
	}
}

// Set atomically stores a float64.
func Set(val *float64, newVal float64) {
	atomic.StoreUint64((*uint64)(unsafe.Pointer(val)), math.Float64bits(newVal))
}
