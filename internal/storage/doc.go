// Package storage manages the two parallel backing buffers of a slot map:
// the item array and the occupancy bit vector.
//
// Both live in one block obtained from an Allocator. Heap blocks come from
// the Go allocator (64-byte aligned, never relocated by the collector);
// off-heap blocks come from anonymous mmap and stay outside the collector
// entirely. In both cases the block's address is fixed for its lifetime.
//
// Growth allocates a new block, copies the old contents into its low range
// byte for byte, and releases the old block, so every existing slot index
// keeps its value. Capacities are multiples of eight so the bit vector always
// covers whole bytes.
//
// Every block is charged against an optional resource.Controller before it
// is allocated; a refused reservation is the only way growth can fail other
// than the operating system refusing a mapping.
package storage
