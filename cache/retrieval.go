package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/recgo/blobstore"
	"github.com/hupe1980/recgo/index"
)

// Retrieval is the durable fingerprint-keyed store of ranked result lists.
//
// Entries are only ever populated from live index query results. The sole
// invalidation granularity is InvalidateAll: callers must clear the whole
// cache after any index mutation so a result cached before the mutation is
// never served after it.
type Retrieval struct {
	mu      sync.Mutex
	entries map[string][]index.Match
	store   blobstore.BlobStore
	opts    Options
}

// NewRetrieval creates the retrieval cache and loads its snapshot.
// A missing or corrupt snapshot is non-fatal: the cache starts empty.
func NewRetrieval(ctx context.Context, store blobstore.BlobStore, opts Options) *Retrieval {
	c := &Retrieval{
		entries: make(map[string][]index.Match),
		store:   store,
		opts:    opts.withDefaults(RetrievalSnapshotName),
	}
	c.load(ctx)
	return c
}

func (c *Retrieval) load(ctx context.Context) {
	data, err := c.store.Get(ctx, c.opts.Name)
	if err != nil {
		if !errors.Is(err, blobstore.ErrNotFound) {
			perr := &PersistenceError{Cache: "retrieval", Op: "load", cause: err}
			c.opts.Logger.WarnContext(ctx, "retrieval cache starting empty", "error", perr)
		}
		return
	}

	entries := make(map[string][]index.Match)
	if err := decodeSnapshot(data, &entries); err != nil {
		perr := &PersistenceError{Cache: "retrieval", Op: "load", cause: err}
		c.opts.Logger.WarnContext(ctx, "retrieval cache starting empty", "error", perr)
		return
	}
	c.entries = entries
	c.opts.Logger.InfoContext(ctx, "retrieval cache loaded", "entries", len(entries))
}

// Lookup returns the cached result list for a fingerprint.
// The returned slice must be treated as read-only.
func (c *Retrieval) Lookup(key string) ([]index.Match, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	results, ok := c.entries[key]
	return results, ok
}

// Store inserts a result list and persists the snapshot write-through.
// A snapshot-save failure is logged and swallowed: the in-memory entry is
// live either way.
func (c *Retrieval) Store(ctx context.Context, key string, results []index.Match) {
	c.mu.Lock()
	c.entries[key] = results
	perr := c.persistLocked(ctx)
	c.mu.Unlock()

	if perr != nil {
		c.opts.Logger.WarnContext(ctx, "retrieval cache snapshot not saved", "error", perr)
	}
}

// InvalidateAll clears every entry and persists the empty snapshot.
func (c *Retrieval) InvalidateAll(ctx context.Context) {
	c.mu.Lock()
	c.entries = make(map[string][]index.Match)
	perr := c.persistLocked(ctx)
	c.mu.Unlock()

	c.opts.Logger.DebugContext(ctx, "retrieval cache invalidated")
	if perr != nil {
		c.opts.Logger.WarnContext(ctx, "retrieval cache snapshot not saved", "error", perr)
	}
}

// Len returns the number of cached result lists.
func (c *Retrieval) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Persist writes the current snapshot to the blobstore.
func (c *Retrieval) Persist(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persistLocked(ctx)
}

func (c *Retrieval) persistLocked(ctx context.Context) error {
	data, err := encodeSnapshot(c.opts.Codec, c.opts.Compression, c.entries)
	if err != nil {
		return &PersistenceError{Cache: "retrieval", Op: "save", cause: err}
	}
	if err := c.store.Put(ctx, c.opts.Name, data); err != nil {
		return &PersistenceError{Cache: "retrieval", Op: "save", cause: err}
	}
	return nil
}
