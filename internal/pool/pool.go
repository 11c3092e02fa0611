// Package pool provides pooled scratch buffers for slot map compaction.
// Uses sync.Pool buckets keyed by power-of-two capacity so that a rented
// buffer is never smaller than requested and never more than twice as large.
package pool

import (
	"math/bits"
	"sync"
	"sync/atomic"
)

// maxBucket covers every capacity an int32-indexed slot map can request.
const maxBucket = 32

// Int32s is a pool of []int32 scratch buffers. The zero value is ready to use.
type Int32s struct {
	buckets [maxBucket]sync.Pool
	rents   atomic.Int64
	misses  atomic.Int64
	returns atomic.Int64
}

// Shared is the process-wide pool used when a slot map is not given its own.
var Shared = &Int32s{}

func bucketFor(n int) int {
	return bits.Len(uint(n - 1))
}

// Rent returns a buffer of length n. Its contents are unspecified.
func (p *Int32s) Rent(n int) []int32 {
	if n <= 0 {
		return nil
	}
	p.rents.Add(1)

	b := bucketFor(n)
	if b >= maxBucket {
		p.misses.Add(1)
		return make([]int32, n)
	}
	if v := p.buckets[b].Get(); v != nil {
		buf := *(v.(*[]int32))
		return buf[:n]
	}
	p.misses.Add(1)
	return make([]int32, n, 1<<b)
}

// Return hands buf back to the pool. Buffers not obtained from Rent are dropped
// unless their capacity is an exact power of two.
func (p *Int32s) Return(buf []int32) {
	c := cap(buf)
	if c == 0 || c&(c-1) != 0 {
		return
	}
	b := bucketFor(c)
	if b >= maxBucket {
		return
	}
	p.returns.Add(1)
	buf = buf[:0]
	p.buckets[b].Put(&buf)
}

// Stats reports pool activity.
type Stats struct {
	Rents   int64
	Misses  int64
	Returns int64
}

// Stats returns the cumulative counters.
func (p *Int32s) Stats() Stats {
	return Stats{
		Rents:   p.rents.Load(),
		Misses:  p.misses.Load(),
		Returns: p.returns.Load(),
	}
}
