package slotmap

import (
	"github.com/hupe1980/slotmap/internal/compress"
	"github.com/hupe1980/slotmap/internal/fs"
	"github.com/hupe1980/slotmap/internal/mmap"
	"github.com/hupe1980/slotmap/internal/pool"
	"github.com/hupe1980/slotmap/internal/storage"
	"github.com/hupe1980/slotmap/resource"
)

// Allocator hands out the zero-filled, address-stable blocks that back a slot
// map's items and occupancy bits. Blocks are never relocated once handed out.
type Allocator = storage.Allocator

// BufferPool provides scratch buffers for Optimize.
// Rent must return a slice of length n; its contents are unspecified.
type BufferPool interface {
	Rent(n int) []int32
	Return(buf []int32)
}

// Compression selects the block codec used when saving snapshots.
type Compression uint8

const (
	// CompressionNone writes snapshot payloads uncompressed.
	CompressionNone Compression = Compression(compress.None)
	// CompressionLZ4 favors speed.
	CompressionLZ4 Compression = Compression(compress.LZ4)
	// CompressionZSTD favors ratio.
	CompressionZSTD Compression = Compression(compress.ZSTD)
)

func (c Compression) String() string {
	return compress.Type(c).String()
}

type options struct {
	allocator        storage.Allocator
	policy           any
	bufferPool       BufferPool
	logger           *Logger
	metricsCollector MetricsCollector
	controller       *resource.Controller
	zeroOnRemove     bool
	compression      Compression
	fsys             fs.FileSystem
}

// Option configures a slot map at construction or load time.
type Option func(*options)

func defaultOptions() options {
	return options{
		allocator:        storage.Heap{},
		bufferPool:       pool.Shared,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		compression:      CompressionNone,
		fsys:             fs.Default,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithAllocator configures where item storage comes from.
//
// If nil is passed, the Go heap is used.
func WithAllocator(a Allocator) Option {
	return func(o *options) {
		if a == nil {
			a = storage.Heap{}
		}
		o.allocator = a
	}
}

// WithOffHeap backs item storage with anonymous memory mappings instead of
// the Go heap. The mappings are outside the collector's view; Close releases
// them.
func WithOffHeap() Option {
	return func(o *options) {
		o.allocator = storage.OffHeap{}
	}
}

// WithOffHeapRandomAccess is WithOffHeap with a random-access hint to the
// kernel, useful for large maps with scattered index lookups.
func WithOffHeapRandomAccess() Option {
	return func(o *options) {
		o.allocator = storage.OffHeap{Advice: mmap.AccessRandom}
	}
}

// WithPolicy configures the equality and hash policy used by TryRemoveItem,
// IndexOf and Fingerprint. The policy's element type must match the map's;
// New returns ErrInvalidPolicy otherwise.
func WithPolicy[T any](p Policy[T]) Option {
	return func(o *options) {
		if p != nil {
			o.policy = p
		}
	}
}

// WithBufferPool configures the scratch-buffer provider used by Optimize.
//
// If nil is passed, a process-wide sync.Pool-backed provider is used.
func WithBufferPool(p BufferPool) Option {
	return func(o *options) {
		if p == nil {
			p = pool.Shared
		}
		o.bufferPool = p
	}
}

// WithLogger configures structured logging.
//
// If nil is passed, logging is disabled (NoopLogger).
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures metrics collection.
//
// If nil is passed, NoopMetricsCollector is used.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithResourceController charges item storage against the controller's memory
// limit and snapshot IO against its rate limit. Growth that would exceed the
// memory limit fails with ErrGrowthFailed.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithZeroOnRemove zeroes a slot's storage when its item is removed and when a
// slot is handed out by AddSlot or FreeCursor.Claim.
func WithZeroOnRemove() Option {
	return func(o *options) {
		o.zeroOnRemove = true
	}
}

// WithCompression configures the codec used by WriteTo and Save.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// withFileSystem replaces the filesystem used by SaveFile and LoadFile.
func withFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fsys = fsys
	}
}
