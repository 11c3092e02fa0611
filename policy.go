package slotmap

import "hash/maphash"

// Policy defines item equality and hashing.
//
// Equal is used by TryRemoveItem and IndexOf; Hash by Fingerprint.
// Implementations must be consistent: Equal(a, b) implies Hash(a) == Hash(b).
type Policy[T any] interface {
	Equal(a, b *T) bool
	Hash(v *T) uint64
}

var defaultSeed = maphash.MakeSeed()

// DefaultPolicy compares items with == and hashes them with maphash.
type DefaultPolicy[T comparable] struct{}

// Equal implements Policy.
func (DefaultPolicy[T]) Equal(a, b *T) bool {
	return *a == *b
}

// Hash implements Policy.
func (DefaultPolicy[T]) Hash(v *T) uint64 {
	return maphash.Comparable(defaultSeed, *v)
}

// PolicyFunc builds a Policy from a pair of functions.
type PolicyFunc[T any] struct {
	EqualFunc func(a, b *T) bool
	HashFunc  func(v *T) uint64
}

// Equal implements Policy.
func (p PolicyFunc[T]) Equal(a, b *T) bool {
	return p.EqualFunc(a, b)
}

// Hash implements Policy.
func (p PolicyFunc[T]) Hash(v *T) uint64 {
	return p.HashFunc(v)
}
