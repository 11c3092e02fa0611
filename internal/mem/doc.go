// Package mem provides memory allocation utilities.
//
// # Aligned Allocation
//
// Provides 64-byte (cache line) aligned heap allocation for slot storage, so
// that element boundaries never straddle a line more often than their size
// requires.
package mem
