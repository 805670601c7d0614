package kea

import (
	"log/slog"

	"github.com/hupe1980/kea/codec"
	"github.com/hupe1980/kea/internal/filter"
	"github.com/hupe1980/kea/resource"
	"github.com/hupe1980/kea/store"
)

// Compression identifies the chunk compression of pixel and attribute
// datasets.
type Compression = filter.Compression

const (
	// CompressionNone stores chunks raw.
	CompressionNone = filter.None
	// CompressionLZ4 favours speed over ratio.
	CompressionLZ4 = filter.LZ4
	// CompressionZstd is the default.
	CompressionZstd = filter.Zstd
)

type options struct {
	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	rc               *resource.Controller
	cacheBytes       int64
	compression      Compression
	level            int
	readOnly         bool
}

// Option configures Create and Open.
type Option func(*options)

// WithCodec configures the codec used to encode the manifest.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &kea.BasicMetricsCollector{}
//	img, _ := kea.Open(ctx, bs, kea.WithMetricsCollector(metrics))
//	// ... use img ...
//	stats := metrics.GetStats()
//	fmt.Printf("Block reads: %d, Avg latency: %dns\n", stats.BlockReadCount, stats.BlockReadAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := kea.NewJSONLogger(slog.LevelInfo)
//	img, _ := kea.Open(ctx, bs, kea.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResourceController shares a memory, worker and bandwidth budget
// between images.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithCacheBytes sets the decoded chunk cache capacity. Zero disables the
// cache.
func WithCacheBytes(n int64) Option {
	return func(o *options) {
		o.cacheBytes = n
	}
}

// WithCompression sets the compression of newly created datasets. The
// default is Zstd at level 1.
func WithCompression(c Compression, level int) Option {
	return func(o *options) {
		o.compression = c
		o.level = level
	}
}

// WithReadOnly opens the image for reading only. Every mutation returns
// ErrReadOnly.
func WithReadOnly() Option {
	return func(o *options) {
		o.readOnly = true
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		cacheBytes:       store.DefaultCacheBytes,
		compression:      CompressionZstd,
		level:            1,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}

// storeOptions maps the image options onto the store.
func (o options) storeOptions() []store.Option {
	opts := []store.Option{
		store.WithLogger(o.logger.Logger),
		store.WithCodec(o.codec),
		store.WithCacheBytes(o.cacheBytes),
		store.WithDefaultCompression(o.compression, o.level),
	}
	if o.rc != nil {
		opts = append(opts, store.WithResourceController(o.rc))
	}
	if o.readOnly {
		opts = append(opts, store.WithReadOnly())
	}
	return opts
}
