package slotmap

import (
	"slices"
	"time"

	"github.com/hupe1980/slotmap/internal/freelist"
)

// Optimize retires free slots that form a contiguous run at the top of the
// touched range and relinks the remaining free slots in ascending order, so
// that later Adds fill the lowest holes first. It returns the number of
// slots retired.
//
// No live item moves and storage is never shrunk. Optimize sorts the free
// list and costs O(f log f) for f free slots.
func (m *SlotMap[T]) Optimize() int {
	free := m.FreeSlotCount()
	if free == 0 {
		return 0
	}

	start := time.Now()
	scratch := m.opts.bufferPool.Rent(free)
	defer m.opts.bufferPool.Return(scratch)

	n := 0
	freelist.Walk(&m.free, m.buf.Items, func(i int32) bool {
		scratch[n] = i
		n++
		return n < free
	})
	candidates := scratch[:n]
	slices.Sort(candidates)

	cursor := int32(m.highest) //nolint:gosec // highest < MaxCapacity
	k := len(candidates)
	for k > 0 && candidates[k-1] == cursor {
		k--
		cursor--
	}
	reclaimed := len(candidates) - k

	m.highest = int(cursor)
	freelist.Rebuild(&m.free, m.buf.Items, candidates[:k])

	m.opts.metricsCollector.RecordOptimize(reclaimed, k, time.Since(start))
	m.opts.logger.LogOptimize(reclaimed, k, m.highest+1)
	return reclaimed
}

// FreeSlotIndices writes the free slot indices into buf in free-list order
// and returns the written prefix. buf must hold at least FreeSlotCount
// entries.
func (m *SlotMap[T]) FreeSlotIndices(buf []int) ([]int, error) {
	need := m.FreeSlotCount()
	if len(buf) < need {
		return nil, &BufferTooSmallError{Need: need, Got: len(buf)}
	}
	n := 0
	freelist.Walk(&m.free, m.buf.Items, func(i int32) bool {
		if n == need {
			return false
		}
		buf[n] = int(i)
		n++
		return true
	})
	return buf[:n], nil
}

// AppendFreeSlotIndices appends the free slot indices to dst in free-list
// order.
func (m *SlotMap[T]) AppendFreeSlotIndices(dst []int) []int {
	need := m.FreeSlotCount()
	dst = slices.Grow(dst, need)
	n := 0
	freelist.Walk(&m.free, m.buf.Items, func(i int32) bool {
		if n == need {
			return false
		}
		dst = append(dst, int(i))
		n++
		return true
	})
	return dst
}
