package cache

import (
	"io"
	"log/slog"

	"github.com/hupe1980/recgo/codec"
)

// Default snapshot blob names.
const (
	EmbeddingSnapshotName = "embedding_cache.snap"
	RetrievalSnapshotName = "retrieval_cache.snap"
)

// Options configures a cache instance.
// The zero value is usable: default snapshot name, codec.Default,
// uncompressed payload, discarded logs.
type Options struct {
	// Name is the snapshot blob name.
	Name string
	// Codec encodes the snapshot payload.
	Codec codec.Codec
	// Compression compresses the snapshot payload.
	Compression Compression
	// Logger receives persistence warnings.
	Logger *slog.Logger
}

func (o Options) withDefaults(defaultName string) Options {
	if o.Name == "" {
		o.Name = defaultName
	}
	if o.Codec == nil {
		o.Codec = codec.Default
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}
