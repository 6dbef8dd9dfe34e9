package recgo

import (
	"log/slog"

	"github.com/hupe1980/recgo/blobstore"
	"github.com/hupe1980/recgo/cache"
	"github.com/hupe1980/recgo/codec"
)

const defaultCacheDir = "./cache"

type options struct {
	blobStore        blobstore.BlobStore
	cacheDir         string
	codec            codec.Codec
	compression      cache.Compression
	metricsCollector MetricsCollector
	logger           *Logger
	uniqueBulkIDs    bool
}

// Option configures engine constructor behavior.
type Option func(*options)

// WithBlobStore configures the store that holds both cache snapshots.
// Use blobstore/s3 or blobstore/minio for cloud deployments; when
// unset, a local directory store at the cache dir is used.
func WithBlobStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobStore = store
	}
}

// WithCacheDir configures the directory of the default local snapshot
// store. Ignored when WithBlobStore is set. Defaults to "./cache".
func WithCacheDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.cacheDir = dir
		}
	}
}

// WithCodec configures the codec used for encoding cache snapshots.
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

// WithCompression configures the snapshot payload compression.
// Defaults to cache.CompressionZstd.
func WithCompression(c cache.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
//
// Example with BasicMetricsCollector:
//
//	metrics := &recgo.BasicMetricsCollector{}
//	engine, _ := recgo.New(ctx, idx, embedder, recgo.WithMetricsCollector(metrics))
//	// ... use engine ...
//	stats := metrics.GetStats()
//	fmt.Printf("Retrievals: %d, Cache hits: %d\n", stats.RetrievalCount, stats.RetrievalCacheHits)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metricsCollector = mc
		}
	}
}

// WithLogger configures structured logging for operations.
//
// Example with JSON logging:
//
//	logger := recgo.NewJSONLogger(slog.LevelInfo)
//	engine, _ := recgo.New(ctx, idx, embedder, recgo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithUniqueBulkIDs makes BulkAddItems assign a random uuid to every
// item instead of the default positional ids ("item_0", "item_1", ...).
//
// Positional ids collide across calls: a second bulk add silently
// overwrites the first call's items in the index. Enable this option
// whenever bulk adds can happen more than once against the same index.
func WithUniqueBulkIDs() Option {
	return func(o *options) {
		o.uniqueBulkIDs = true
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		cacheDir:         defaultCacheDir,
		compression:      cache.CompressionZstd,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
