package bitvec

import (
	"encoding/binary"
	"math/bits"
)

// Vector is a packed bit-per-slot view over caller-owned bytes.
type Vector []byte

// BytesFor returns the number of bytes needed to track n slots.
func BytesFor(n int) int {
	return (n + 7) >> 3
}

// Test reports whether bit i is set.
func (v Vector) Test(i int) bool {
	return v[i>>3]&(1<<(uint(i)&7)) != 0
}

// Set sets bit i.
func (v Vector) Set(i int) {
	v[i>>3] |= 1 << (uint(i) & 7)
}

// Clear clears bit i.
func (v Vector) Clear(i int) {
	v[i>>3] &^= 1 << (uint(i) & 7)
}

// ByteAllClear reports whether all eight bits of byte b are clear.
func (v Vector) ByteAllClear(b int) bool {
	return v[b] == 0
}

// Reset clears every bit.
func (v Vector) Reset() {
	clear(v)
}

// Count returns the number of set bits.
func (v Vector) Count() int {
	n := 0
	i := 0
	for ; i+8 <= len(v); i += 8 {
		n += bits.OnesCount64(binary.LittleEndian.Uint64(v[i:]))
	}
	for ; i < len(v); i++ {
		n += bits.OnesCount8(v[i])
	}
	return n
}

// NextSet returns the lowest set bit in [from, limit), or -1 if there is none.
// limit must not exceed len(v)*8.
func (v Vector) NextSet(from, limit int) int {
	if from < 0 {
		from = 0
	}
	if from >= limit {
		return -1
	}

	b := from >> 3
	last := (limit - 1) >> 3
	// Mask off bits below from in the first byte.
	if cur := v[b] &^ (1<<(uint(from)&7) - 1); cur != 0 {
		return firstIn(b, cur, limit)
	}
	for b++; b <= last; b++ {
		// Skip runs of eight clear bytes at once.
		for b+8 <= last+1 && binary.LittleEndian.Uint64(v[b:]) == 0 {
			b += 8
		}
		if b > last {
			break
		}
		if v.ByteAllClear(b) {
			continue
		}
		return firstIn(b, v[b], limit)
	}
	return -1
}

// firstIn returns the lowest set bit of the non-zero byte cur at byte index
// b, or -1 if it lies at or beyond limit.
func firstIn(b int, cur byte, limit int) int {
	if i := b<<3 + bits.TrailingZeros8(cur); i < limit {
		return i
	}
	return -1
}

// NextSetLinear is the reference implementation of NextSet that tests every
// bit individually.
func (v Vector) NextSetLinear(from, limit int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i < limit; i++ {
		if v.Test(i) {
			return i
		}
	}
	return -1
}
