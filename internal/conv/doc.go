// Package conv provides safe integer type conversion utilities.
//
// These functions perform bounds checking to prevent integer overflow/underflow
// when converting between signed/unsigned and different bit-width integer types.
//
// Use cases:
//   - Validating untrusted data from snapshot headers (counts, sizes, indices)
//   - Converting slot indices between Go's int and the int32 link type
//   - Sizing buffers (capacity × element size) without silent wrap-around
//
// For conversions that are provably safe by domain constraints (e.g., loop
// indices bounded by capacity), use direct type casts instead to avoid overhead.
package conv
