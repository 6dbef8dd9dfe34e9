package cache

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/recgo/blobstore"
	"github.com/hupe1980/recgo/embedding"
)

// Embedding is the durable content-hash-keyed store of embedding vectors.
// It wraps calls to the external embedding function: a given content value
// always maps to the same cached vector for the lifetime of the cache.
type Embedding struct {
	mu       sync.Mutex
	entries  map[string][]float32
	group    singleflight.Group
	embedder embedding.Embedder
	store    blobstore.BlobStore
	opts     Options
}

// NewEmbedding creates the embedding cache and loads its snapshot.
// A missing or corrupt snapshot is non-fatal: the cache starts empty.
func NewEmbedding(ctx context.Context, embedder embedding.Embedder, store blobstore.BlobStore, opts Options) *Embedding {
	c := &Embedding{
		entries:  make(map[string][]float32),
		embedder: embedder,
		store:    store,
		opts:     opts.withDefaults(EmbeddingSnapshotName),
	}
	c.load(ctx)
	return c
}

func (c *Embedding) load(ctx context.Context) {
	data, err := c.store.Get(ctx, c.opts.Name)
	if err != nil {
		if !errors.Is(err, blobstore.ErrNotFound) {
			perr := &PersistenceError{Cache: "embedding", Op: "load", cause: err}
			c.opts.Logger.WarnContext(ctx, "embedding cache starting empty", "error", perr)
		}
		return
	}

	entries := make(map[string][]float32)
	if err := decodeSnapshot(data, &entries); err != nil {
		perr := &PersistenceError{Cache: "embedding", Op: "load", cause: err}
		c.opts.Logger.WarnContext(ctx, "embedding cache starting empty", "error", perr)
		return
	}
	c.entries = entries
	c.opts.Logger.InfoContext(ctx, "embedding cache loaded", "entries", len(entries))
}

// Get returns the embedding for content, computing and caching it on a
// miss. Concurrent misses for identical content collapse into a single
// embedder call. Returned slices must be treated as read-only.
//
// Embedder failures propagate unchanged; snapshot-save failures are logged
// and swallowed because the in-memory entry is already live.
func (c *Embedding) Get(ctx context.Context, content string) ([]float32, error) {
	key := contentKey(content)

	c.mu.Lock()
	vec, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return vec, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A waiter may arrive after the winner already stored the entry.
		c.mu.Lock()
		if vec, ok := c.entries[key]; ok {
			c.mu.Unlock()
			return vec, nil
		}
		c.mu.Unlock()

		vec, err := c.embedder.Embed(ctx, content)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = vec
		perr := c.persistLocked(ctx)
		c.mu.Unlock()

		if perr != nil {
			c.opts.Logger.WarnContext(ctx, "embedding cache snapshot not saved", "error", perr)
		}
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// Len returns the number of cached embeddings.
func (c *Embedding) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Persist writes the current snapshot to the blobstore.
func (c *Embedding) Persist(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persistLocked(ctx)
}

func (c *Embedding) persistLocked(ctx context.Context) error {
	data, err := encodeSnapshot(c.opts.Codec, c.opts.Compression, c.entries)
	if err != nil {
		return &PersistenceError{Cache: "embedding", Op: "save", cause: err}
	}
	if err := c.store.Put(ctx, c.opts.Name, data); err != nil {
		return &PersistenceError{Cache: "embedding", Op: "save", cause: err}
	}
	return nil
}
