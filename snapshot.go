package slotmap

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"
	"unsafe"

	"github.com/hupe1980/slotmap/internal/bitvec"
	"github.com/hupe1980/slotmap/internal/compress"
	"github.com/hupe1980/slotmap/internal/conv"
	"github.com/hupe1980/slotmap/internal/freelist"
	"github.com/hupe1980/slotmap/internal/hash"
	"github.com/hupe1980/slotmap/internal/storage"
	"github.com/hupe1980/slotmap/resource"
)

// Snapshot layout, little endian:
//
//	[0:4]   magic "SLMP"
//	[4:6]   version
//	[6]     compression
//	[7]     flags
//	[8:12]  element size
//	[12:16] capacity
//	[16:20] count
//	[20:24] highest touched index (int32)
//	[24:28] free-list head (int32)
//	[28:32] block length
//	[32:36] CRC32C of the uncompressed payload
//
// The block that follows is an internal/compress block whose payload is the
// occupancy bytes for the touched slots followed by the touched slots' raw
// bytes. Free slots carry their links, so the free list survives as is.
const (
	snapshotMagic      = "SLMP"
	snapshotVersion    = 1
	snapshotHeaderSize = 36

	flagBigEndian = 1 << 0
)

func hostFlags() uint8 {
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], 1)
	if b[0] == 0 {
		return flagBigEndian
	}
	return 0
}

// Save writes a snapshot of the map to w and returns the number of bytes
// written. If the map has a resource controller, writes are charged against
// its IO limit and may wait; ctx bounds that wait.
func (m *SlotMap[T]) Save(ctx context.Context, w io.Writer) (n int64, err error) {
	if m.closed {
		return 0, ErrClosed
	}
	start := time.Now()
	defer func() {
		m.opts.metricsCollector.RecordSnapshot(n, time.Since(start), err)
		m.opts.logger.LogSnapshot(ctx, "save", n, err)
	}()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	touched := m.highest + 1
	bitBytes := bitvec.BytesFor(touched)
	items := m.buf.RawItems(touched)

	payload := make([]byte, 0, bitBytes+len(items))
	payload = append(payload, m.buf.Bits[:bitBytes]...)
	payload = append(payload, items...)

	block, err := compress.Encode(payload, compress.Type(m.opts.compression))
	if err != nil {
		return 0, fmt.Errorf("slotmap: encode snapshot: %w", err)
	}

	hdr, err := m.snapshotHeader(len(block), hash.CRC32C(payload))
	if err != nil {
		return 0, err
	}

	var dst io.Writer = w
	if m.opts.controller != nil {
		dst = resource.NewRateLimitedWriter(ctx, w, m.opts.controller)
	}

	written, err := dst.Write(hdr)
	n += int64(written)
	if err != nil {
		return n, fmt.Errorf("slotmap: write snapshot header: %w", err)
	}
	written, err = dst.Write(block)
	n += int64(written)
	if err != nil {
		return n, fmt.Errorf("slotmap: write snapshot block: %w", err)
	}
	return n, nil
}

func (m *SlotMap[T]) snapshotHeader(blockLen int, crc uint32) ([]byte, error) {
	var zero T
	elemSize, err := conv.IntToUint32(int(unsafe.Sizeof(zero)))
	if err != nil {
		return nil, err
	}
	capacity, err := conv.IntToUint32(m.buf.Cap())
	if err != nil {
		return nil, err
	}
	count, err := conv.IntToUint32(m.count)
	if err != nil {
		return nil, err
	}
	highest, err := conv.IntToInt32(m.highest)
	if err != nil {
		return nil, err
	}
	length, err := conv.IntToUint32(blockLen)
	if err != nil {
		return nil, err
	}

	hdr := make([]byte, snapshotHeaderSize)
	copy(hdr[0:4], snapshotMagic)
	binary.LittleEndian.PutUint16(hdr[4:6], snapshotVersion)
	hdr[6] = uint8(m.opts.compression)
	hdr[7] = hostFlags()
	binary.LittleEndian.PutUint32(hdr[8:12], elemSize)
	binary.LittleEndian.PutUint32(hdr[12:16], capacity)
	binary.LittleEndian.PutUint32(hdr[16:20], count)
	binary.LittleEndian.PutUint32(hdr[20:24], uint32(highest))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(m.free.Head()))
	binary.LittleEndian.PutUint32(hdr[28:32], length)
	binary.LittleEndian.PutUint32(hdr[32:36], crc)
	return hdr, nil
}

// WriteTo implements io.WriterTo. It is Save without a context.
func (m *SlotMap[T]) WriteTo(w io.Writer) (int64, error) {
	return m.Save(context.Background(), w)
}

// Load reads a snapshot written by Save into a new slot map configured with
// opts. Every index, the free list and the capacity are restored. The
// snapshot's compression is detected; WithCompression only affects later
// saves.
func Load[T comparable](ctx context.Context, r io.Reader, optFns ...Option) (*SlotMap[T], error) {
	m, _, err := load[T](ctx, r, applyOptions(optFns))
	return m, err
}

// ReadFrom implements io.ReaderFrom. It replaces the map's contents with the
// snapshot read from r. On error the map is unchanged.
func (m *SlotMap[T]) ReadFrom(r io.Reader) (int64, error) {
	if m.closed {
		return 0, ErrClosed
	}
	loaded, n, err := load[T](context.Background(), r, m.opts)
	if err != nil {
		return n, err
	}

	old := m.buf
	m.buf = loaded.buf
	m.free = loaded.free
	m.count = loaded.count
	m.highest = loaded.highest
	if err := old.Release(); err != nil {
		m.opts.logger.Warn("old storage block not released", "error", err)
	}
	return n, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type snapshotHeader struct {
	compression compress.Type
	capacity    int
	count       int
	highest     int
	freeHead    int32
	blockLen    int
	crc         uint32
}

func load[T comparable](ctx context.Context, r io.Reader, o options) (m *SlotMap[T], n int64, err error) {
	start := time.Now()
	src := &countingReader{r: r}
	defer func() {
		n = src.n
		o.metricsCollector.RecordSnapshot(n, time.Since(start), err)
		o.logger.LogSnapshot(ctx, "load", n, err)
	}()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if err := freelist.Check[T](); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrUnsupportedType, err)
	}

	var in io.Reader = src
	if o.controller != nil {
		in = resource.NewRateLimitedReader(ctx, src, o.controller)
	}

	var raw [snapshotHeaderSize]byte
	if _, err := io.ReadFull(in, raw[:]); err != nil {
		return nil, 0, fmt.Errorf("%w: header: %w", ErrCorruptSnapshot, err)
	}
	hdr, err := parseSnapshotHeader[T](raw[:])
	if err != nil {
		return nil, 0, err
	}

	touched := hdr.highest + 1
	var zero T
	itemBytes, err := conv.MulInt(touched, int(unsafe.Sizeof(zero)))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	want := bitvec.BytesFor(touched) + itemBytes
	if hdr.blockLen < compress.HeaderSize || hdr.blockLen > compress.HeaderSize+want {
		return nil, 0, fmt.Errorf("%w: block length %d", ErrCorruptSnapshot, hdr.blockLen)
	}

	// The header is untrusted until the CRC matches, so the buffer grows with
	// the bytes actually received instead of being sized from blockLen.
	block, err := io.ReadAll(io.LimitReader(in, int64(hdr.blockLen)))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: block: %w", ErrCorruptSnapshot, err)
	}
	if len(block) != hdr.blockLen {
		return nil, 0, fmt.Errorf("%w: block: %w", ErrCorruptSnapshot, io.ErrUnexpectedEOF)
	}
	if size, _, err := compress.Sizes(block); err != nil || int(size) != want {
		return nil, 0, fmt.Errorf("%w: payload size mismatch", ErrCorruptSnapshot)
	}
	payload, err := compress.Decode(block, hdr.compression)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if len(payload) != want {
		return nil, 0, fmt.Errorf("%w: payload size mismatch", ErrCorruptSnapshot)
	}
	if hash.CRC32C(payload) != hdr.crc {
		return nil, 0, fmt.Errorf("%w: checksum mismatch", ErrCorruptSnapshot)
	}

	m, err = newWithOptions[T](hdr.capacity, o)
	if err != nil {
		return nil, 0, err
	}
	bitBytes := bitvec.BytesFor(touched)
	copy(m.buf.Bits, payload[:bitBytes])
	copy(m.buf.RawItems(touched), payload[bitBytes:])
	m.count = hdr.count
	m.highest = hdr.highest
	m.free.SetHead(hdr.freeHead)

	if err := m.Validate(); err != nil {
		_ = m.Close()
		return nil, 0, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	return m, 0, nil
}

func parseSnapshotHeader[T comparable](raw []byte) (snapshotHeader, error) {
	var hdr snapshotHeader

	if string(raw[0:4]) != snapshotMagic {
		return hdr, fmt.Errorf("%w: bad magic %q", ErrCorruptSnapshot, raw[0:4])
	}
	if v := binary.LittleEndian.Uint16(raw[4:6]); v != snapshotVersion {
		return hdr, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, v)
	}
	hdr.compression = compress.Type(raw[6])
	if raw[7] != hostFlags() {
		return hdr, fmt.Errorf("%w: written on a host with different byte order", ErrCorruptSnapshot)
	}

	var zero T
	if size := binary.LittleEndian.Uint32(raw[8:12]); uint64(size) != uint64(unsafe.Sizeof(zero)) {
		return hdr, fmt.Errorf("%w: element size %d, %T is %d bytes", ErrCorruptSnapshot, size, zero, unsafe.Sizeof(zero))
	}

	capacity := binary.LittleEndian.Uint32(raw[12:16])
	if capacity > storage.MaxCapacity || capacity%storage.Granularity != 0 {
		return hdr, fmt.Errorf("%w: capacity %d", ErrCorruptSnapshot, capacity)
	}
	hdr.capacity = int(capacity)

	highest := int32(binary.LittleEndian.Uint32(raw[20:24])) //nolint:gosec // bit pattern of int32
	if highest < -1 || int(highest) >= hdr.capacity {
		return hdr, fmt.Errorf("%w: highest touched index %d", ErrCorruptSnapshot, highest)
	}
	hdr.highest = int(highest)

	count := binary.LittleEndian.Uint32(raw[16:20])
	if uint64(count) > uint64(hdr.highest+1) {
		return hdr, fmt.Errorf("%w: count %d", ErrCorruptSnapshot, count)
	}
	hdr.count = int(count)

	hdr.freeHead = int32(binary.LittleEndian.Uint32(raw[24:28])) //nolint:gosec // bit pattern of int32

	blockLen := binary.LittleEndian.Uint32(raw[28:32])
	if uint64(blockLen) > uint64(storage.MaxCapacity)*2 {
		return hdr, fmt.Errorf("%w: block length %d", ErrCorruptSnapshot, blockLen)
	}
	hdr.blockLen = int(blockLen)
	hdr.crc = binary.LittleEndian.Uint32(raw[32:36])
	return hdr, nil
}
