package slotmap

import (
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/slotmap/internal/freelist"
	"github.com/hupe1980/slotmap/internal/storage"
)

// RemoveFlags adjust the behavior of RemoveAtFlags.
type RemoveFlags uint8

const (
	// SkipTailShrink pushes the removed slot onto the free list even when it
	// is the highest touched slot. Optimize reclaims it later.
	SkipTailShrink RemoveFlags = 1 << iota
	// SkipValidation trusts the caller that the slot is live.
	// Removing a slot that is not live corrupts the map.
	SkipValidation
)

// noCopy may be embedded into structs which must not be copied after first use.
// See https://golang.org/issues/8005#issuecomment-190753527.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// SlotMap is a container of fixed-size items addressed by stable integer
// indices.
//
// Removing an item never moves another item, and a removed slot is reused by
// a later Add. Vacant slots are chained through their own storage, so no
// memory beyond the item array and one occupancy bit per slot is needed.
//
// T must not contain pointers and must be at least 4 bytes wide.
//
// A SlotMap owns its storage exclusively. It must not be copied by value;
// use Clone for an independent copy. It is not safe for concurrent use.
type SlotMap[T comparable] struct {
	_ noCopy

	buf     *storage.Buffer[T]
	free    freelist.List
	count   int
	highest int
	policy  Policy[T]
	opts    options
	closed  bool
}

// New creates a slot map with room for at least capacity items.
// Capacity is rounded up to a multiple of 8; zero is allowed and defers
// allocation to the first Add.
func New[T comparable](capacity int, optFns ...Option) (*SlotMap[T], error) {
	return newWithOptions[T](capacity, applyOptions(optFns))
}

func newWithOptions[T comparable](capacity int, o options) (*SlotMap[T], error) {
	if err := freelist.Check[T](); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedType, err)
	}

	rounded, err := storage.RoundCapacity(capacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCapacity, err)
	}

	policy, err := resolvePolicy[T](o.policy)
	if err != nil {
		return nil, err
	}

	buf, err := storage.New[T](rounded, storage.Config{
		Allocator:  o.allocator,
		Controller: o.controller,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGrowthFailed, err)
	}

	return &SlotMap[T]{
		buf:     buf,
		free:    freelist.New(),
		highest: -1,
		policy:  policy,
		opts:    o,
	}, nil
}

func resolvePolicy[T comparable](p any) (Policy[T], error) {
	if p == nil {
		return DefaultPolicy[T]{}, nil
	}
	typed, ok := p.(Policy[T])
	if !ok {
		var zero T
		return nil, fmt.Errorf("%w: %T cannot compare %T", ErrInvalidPolicy, p, zero)
	}
	return typed, nil
}

// Len returns the number of live items.
func (m *SlotMap[T]) Len() int {
	return m.count
}

// Cap returns the number of allocated slots.
func (m *SlotMap[T]) Cap() int {
	return m.buf.Cap()
}

// HighestTouchedIndex returns the highest slot index ever written since the
// last reset, or -1.
func (m *SlotMap[T]) HighestTouchedIndex() int {
	return m.highest
}

// TouchedSlotsCount returns the number of slots that are live or free.
func (m *SlotMap[T]) TouchedSlotsCount() int {
	return m.highest + 1
}

// FreeSlotCount returns the number of vacated slots awaiting reuse.
func (m *SlotMap[T]) FreeSlotCount() int {
	return m.highest + 1 - m.count
}

// Add stores item and returns its index. A vacated slot is reused if one
// exists; otherwise the next untouched slot is used, growing storage when the
// map is full. Growth copies every slot and is a latency spike proportional
// to Cap.
func (m *SlotMap[T]) Add(item T) (int, error) {
	i, p, err := m.reserve()
	if err != nil {
		return -1, err
	}
	*p = item
	return i, nil
}

// AddSlot reserves a live slot and returns a pointer for in-place
// initialization. The slot's contents are unspecified unless the map was
// created with WithZeroOnRemove, in which case they are zero.
// The pointer is invalidated by the next growth.
func (m *SlotMap[T]) AddSlot() (int, *T, error) {
	i, p, err := m.reserve()
	if err != nil {
		return -1, nil, err
	}
	if m.opts.zeroOnRemove {
		var zero T
		*p = zero
	}
	return i, p, nil
}

func (m *SlotMap[T]) reserve() (int, *T, error) {
	if m.closed {
		return -1, nil, ErrClosed
	}

	if i, ok := freelist.Pop(&m.free, m.buf.Items); ok {
		m.buf.Bits.Set(int(i))
		m.count++
		return int(i), &m.buf.Items[i], nil
	}

	i := m.highest + 1
	if i >= m.buf.Cap() {
		if err := m.grow(); err != nil {
			return -1, nil, err
		}
	}
	m.buf.Bits.Set(i)
	m.highest = i
	m.count++
	return i, &m.buf.Items[i], nil
}

func (m *SlotMap[T]) grow() error {
	oldCap := m.buf.Cap()
	newCap, err := storage.NextCapacity(oldCap)
	if err != nil {
		m.opts.logger.LogGrow(oldCap, oldCap, err)
		return fmt.Errorf("%w: %w", ErrGrowthFailed, err)
	}

	start := time.Now()
	err = m.buf.Grow(newCap)
	if errors.Is(err, storage.ErrReleaseFailed) {
		// The new block is installed; only the old one leaked.
		m.opts.logger.Warn("old storage block not released", "error", err)
		err = nil
	}
	m.opts.metricsCollector.RecordGrow(oldCap, newCap, time.Since(start), err)
	m.opts.logger.LogGrow(oldCap, newCap, err)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGrowthFailed, err)
	}
	return nil
}

func (m *SlotMap[T]) live(i int) bool {
	return i >= 0 && i <= m.highest && m.buf.Bits.Test(i)
}

// Contains reports whether slot i holds a live item.
func (m *SlotMap[T]) Contains(i int) bool {
	return m.live(i)
}

// At returns a pointer to the live item at index i.
// The pointer is invalidated by the next growth.
func (m *SlotMap[T]) At(i int) (*T, error) {
	if !m.live(i) {
		return nil, &SlotNotFoundError{Index: i}
	}
	return &m.buf.Items[i], nil
}

// UnsafeAt returns a pointer to slot i without checking that it is live.
// Use it only where liveness is already known, e.g. inside All.
func (m *SlotMap[T]) UnsafeAt(i int) *T {
	return &m.buf.Items[i]
}

// Get returns a copy of the item at index i.
func (m *SlotMap[T]) Get(i int) (T, bool) {
	if !m.live(i) {
		var zero T
		return zero, false
	}
	return m.buf.Items[i], true
}

// RemoveAt removes the item at index i.
func (m *SlotMap[T]) RemoveAt(i int) error {
	_, err := m.RemoveAtFlags(i, 0)
	return err
}

// Remove removes the item at index i and returns it.
func (m *SlotMap[T]) Remove(i int) (T, error) {
	return m.RemoveAtFlags(i, 0)
}

// RemoveAtFlags removes the item at index i and returns it.
//
// Removing the last live item resets the map so the next Add lands at
// index 0. Removing the highest touched slot retires it instead of
// queueing it for reuse, unless SkipTailShrink is set. On error nothing
// is changed.
func (m *SlotMap[T]) RemoveAtFlags(i int, flags RemoveFlags) (T, error) {
	var removed T
	if flags&SkipValidation == 0 && !m.live(i) {
		return removed, &SlotNotFoundError{Index: i}
	}
	removed = m.buf.Items[i]
	m.remove(i, flags)
	return removed, nil
}

func (m *SlotMap[T]) remove(i int, flags RemoveFlags) {
	if m.opts.zeroOnRemove {
		var zero T
		m.buf.Items[i] = zero
	}
	m.buf.Bits.Clear(i)
	m.count--

	switch {
	case m.count == 0:
		m.reset("empty")
	case i == m.highest && flags&SkipTailShrink == 0:
		m.highest--
	default:
		freelist.Push(&m.free, m.buf.Items, int32(i)) //nolint:gosec // i <= highest < MaxCapacity
	}
}

// TryRemoveItem removes the first live item equal to item under the map's
// policy. It scans every touched slot.
func (m *SlotMap[T]) TryRemoveItem(item T) bool {
	i := m.IndexOf(item)
	if i < 0 {
		return false
	}
	return m.RemoveAt(i) == nil
}

// IndexOf returns the index of the first live item equal to item under the
// map's policy, or -1.
func (m *SlotMap[T]) IndexOf(item T) int {
	for i, v := range m.All() {
		if m.policy.Equal(v, &item) {
			return i
		}
	}
	return -1
}

// Clear removes every item. Capacity is retained.
func (m *SlotMap[T]) Clear() {
	if m.opts.zeroOnRemove && m.highest >= 0 {
		clear(m.buf.Items[:m.highest+1])
	}
	m.buf.Bits.Reset()
	m.reset("clear")
}

func (m *SlotMap[T]) reset(reason string) {
	m.free.Reset()
	m.count = 0
	m.highest = -1
	m.opts.metricsCollector.RecordReset()
	m.opts.logger.LogReset(reason)
}

// Clone returns an independent deep copy with the same indices, capacity and
// options.
func (m *SlotMap[T]) Clone() (*SlotMap[T], error) {
	if m.closed {
		return nil, ErrClosed
	}
	buf, err := m.buf.Clone()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGrowthFailed, err)
	}
	return &SlotMap[T]{
		buf:     buf,
		free:    m.free,
		count:   m.count,
		highest: m.highest,
		policy:  m.policy,
		opts:    m.opts,
	}, nil
}

// Close releases the map's storage and returns its memory reservation.
// Off-heap storage is unmapped; pointers obtained from the map must not be
// used afterwards. Close is idempotent.
func (m *SlotMap[T]) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	m.free.Reset()
	m.count = 0
	m.highest = -1
	if err := m.buf.Release(); err != nil {
		return fmt.Errorf("slotmap: release storage: %w", err)
	}
	return nil
}
