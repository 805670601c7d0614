package store

import (
	"log/slog"

	"github.com/hupe1980/kea/codec"
	"github.com/hupe1980/kea/internal/filter"
	"github.com/hupe1980/kea/resource"
)

// DefaultCacheBytes is the default capacity of the decoded chunk cache.
const DefaultCacheBytes = 64 << 20

// Option configures a File.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	codec       codec.Codec
	rc          *resource.Controller
	cacheBytes  int64
	readOnly    bool
	compression filter.Compression
	level       int
}

func applyOptions(opts []Option) options {
	o := options{
		logger:      slog.New(slog.DiscardHandler),
		codec:       codec.Default,
		cacheBytes:  DefaultCacheBytes,
		compression: filter.Zstd,
		level:       1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger for flush and recovery events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCodec sets the codec used to write manifests.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithResourceController bounds cache memory, flush concurrency and upload
// bandwidth.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithCacheBytes sets the chunk cache capacity. Zero disables caching.
func WithCacheBytes(n int64) Option {
	return func(o *options) {
		if n >= 0 {
			o.cacheBytes = n
		}
	}
}

// WithReadOnly rejects every mutation with ErrReadOnly.
func WithReadOnly() Option {
	return func(o *options) {
		o.readOnly = true
	}
}

// WithDefaultCompression sets the filter for datasets created without
// WithCompression. The default is Zstd level 1.
func WithDefaultCompression(c filter.Compression, level int) Option {
	return func(o *options) {
		o.compression = c
		o.level = level
	}
}

// DatasetOption configures dataset creation.
type DatasetOption func(*datasetOptions)

type datasetOptions struct {
	chunks      []uint64
	maxDims     []uint64
	fill        any
	compression *filter.Compression
	level       int
}

// WithChunks sets the chunk shape. It defaults to the initial dimensions,
// clamped to at least one element.
func WithChunks(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) {
		o.chunks = dims
	}
}

// WithMaxDims sets the maximum dimensions. Use 0 for unlimited.
// By default a dataset cannot grow.
func WithMaxDims(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) {
		o.maxDims = dims
	}
}

// WithFill sets the value unwritten elements read back as.
func WithFill(v any) DatasetOption {
	return func(o *datasetOptions) {
		o.fill = v
	}
}

// WithCompression sets the chunk filter for the dataset.
func WithCompression(c filter.Compression, level int) DatasetOption {
	return func(o *datasetOptions) {
		o.compression = &c
		o.level = level
	}
}
