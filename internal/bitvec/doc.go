// Package bitvec implements the occupancy bit vector of a slot map.
//
// One bit tracks one slot: bit j of byte i corresponds to slot i*8+j. A set
// bit means the slot holds a live item; a clear bit means it is free or has
// never been written. The vector does not own its memory. It is a view over a
// byte slice supplied by the storage layer, which may live off-heap.
//
// # Scanning
//
// NextSet skips whole 8-byte words and then whole clear bytes before using
// bits.TrailingZeros8 to jump to the lowest set bit, so sparse vectors are
// scanned in O(bytes/8) rather than O(bits).
package bitvec
