package slotmap

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/slotmap/internal/freelist"
)

// Stats is a point-in-time summary of a slot map's bookkeeping.
type Stats struct {
	Len                 int
	Cap                 int
	FreeSlots           int
	TouchedSlots        int
	HighestTouchedIndex int
	FreeListHead        int
	ReservedBytes       int64
}

// Stats returns the map's current bookkeeping.
func (m *SlotMap[T]) Stats() Stats {
	return Stats{
		Len:                 m.count,
		Cap:                 m.buf.Cap(),
		FreeSlots:           m.FreeSlotCount(),
		TouchedSlots:        m.TouchedSlotsCount(),
		HighestTouchedIndex: m.highest,
		FreeListHead:        int(m.free.Head()),
		ReservedBytes:       m.buf.Reserved(),
	}
}

// Validate checks the map's structural invariants and returns an error
// wrapping ErrCorrupt describing the first violation found. It costs
// O(Cap) and is meant for tests and debugging.
func (m *SlotMap[T]) Validate() error {
	capacity := m.buf.Cap()
	touched := m.highest + 1

	if m.highest < -1 || touched > capacity {
		return fmt.Errorf("%w: highest touched index %d outside capacity %d", ErrCorrupt, m.highest, capacity)
	}
	if m.count < 0 || m.count > touched {
		return fmt.Errorf("%w: count %d outside [0, %d]", ErrCorrupt, m.count, touched)
	}
	if m.count == 0 && (touched != 0 || !m.free.Empty()) {
		return fmt.Errorf("%w: empty map not reset", ErrCorrupt)
	}
	if i := m.buf.Bits.NextSet(touched, capacity); i >= 0 {
		return fmt.Errorf("%w: slot %d live beyond highest touched index", ErrCorrupt, i)
	}
	if live := m.buf.Bits.Count(); live != m.count {
		return fmt.Errorf("%w: %d occupancy bits set, count is %d", ErrCorrupt, live, m.count)
	}

	free := touched - m.count
	seen := bitset.New(uint(touched)) //nolint:gosec // touched >= 0
	n := 0
	var walkErr error
	freelist.Walk(&m.free, m.buf.Items, func(i int32) bool {
		switch {
		case n == free:
			walkErr = fmt.Errorf("%w: free list longer than %d", ErrCorrupt, free)
		case i < 0 || int(i) >= touched:
			walkErr = fmt.Errorf("%w: free slot %d outside touched range", ErrCorrupt, i)
		case m.buf.Bits.Test(int(i)):
			walkErr = fmt.Errorf("%w: free slot %d is live", ErrCorrupt, i)
		case seen.Test(uint(i)):
			walkErr = fmt.Errorf("%w: free slot %d linked twice", ErrCorrupt, i)
		default:
			seen.Set(uint(i))
			n++
			return true
		}
		return false
	})
	if walkErr != nil {
		return walkErr
	}
	if n != free {
		return fmt.Errorf("%w: free list has %d entries, want %d", ErrCorrupt, n, free)
	}
	return nil
}

// LiveBitmap returns the live indices as a roaring bitmap.
func (m *SlotMap[T]) LiveBitmap() *roaring.Bitmap {
	bm := roaring.New()
	for i := range m.Indices() {
		bm.Add(uint32(i)) //nolint:gosec // indices are below MaxCapacity
	}
	return bm
}

// FreeBitmap returns the free indices as a roaring bitmap.
func (m *SlotMap[T]) FreeBitmap() *roaring.Bitmap {
	bm := roaring.New()
	for i := range m.FreeIndices() {
		bm.Add(uint32(i)) //nolint:gosec // indices are below MaxCapacity
	}
	return bm
}

const fingerprintMix = 0x9e3779b97f4a7c15

// Fingerprint returns an order-independent hash of the live items and their
// indices under the map's policy. With DefaultPolicy the value is only
// comparable within one process.
func (m *SlotMap[T]) Fingerprint() uint64 {
	var sum uint64
	for i, v := range m.All() {
		sum += m.policy.Hash(v) ^ (uint64(i) * fingerprintMix) //nolint:gosec // i >= 0
	}
	return sum
}
