// Package atomicx provides a lock-free tick/lag counter shared between the
// owning field/match goroutine and reader goroutines (the input scheduler's
// lag check). It is
// the integer analogue of the teacher's atomic_float.AtomicFloat64: ticks
// are already native integers, so sync/atomic's 64-bit primitives apply
// directly with no unsafe-pointer trick required.
package atomicx

import "sync/atomic"

// Int64 is an atomically-updated int64 counter.
type Int64 struct {
	v int64
}

// NewInt64 returns a counter initialised to val.
func NewInt64(val int64) *Int64 {
	return &Int64{v: val}
}

// Load atomically reads the counter.
func (a *Int64) Load() int64 { return atomic.LoadInt64(&a.v) }

// Store atomically overwrites the counter.
func (a *Int64) Store(val int64) { atomic.StoreInt64(&a.v, val) }

// Add atomically adds delta and returns the new value.
func (a *Int64) Add(delta int64) int64 { return atomic.AddInt64(&a.v, delta) }
