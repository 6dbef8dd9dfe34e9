package recgo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/recgo/blobstore"
	"github.com/hupe1980/recgo/cache"
	"github.com/hupe1980/recgo/embedding"
	"github.com/hupe1980/recgo/index"
	"github.com/hupe1980/recgo/metadata"
)

// DefaultTopK is the number of results returned when GetRetrivals is
// called with a non-positive topK.
const DefaultTopK = 5

// Metadata keys the engine reserves on every indexed item.
const (
	MetaKeyContent  = "content"
	MetaKeyItemType = "item_type"
)

// Engine orchestrates a remote vector index and an embedding function
// behind two durable caches. See the package documentation for the
// consistency model.
//
// All methods are safe for concurrent use. Mutations are mutually
// exclusive with retrievals: a retrieval never observes the index
// mid-mutation and never caches a result list that a concurrent
// mutation has already invalidated.
type Engine struct {
	mu         sync.RWMutex
	index      index.Index
	embeddings *cache.Embedding
	retrievals *cache.Retrieval
	metrics    MetricsCollector
	logger     *Logger
	uniqueIDs  bool
}

// New creates an Engine on top of the given index and embedder and
// loads both cache snapshots from the configured blob store. Missing
// or unreadable snapshots are non-fatal: the caches start empty.
func New(ctx context.Context, idx index.Index, embedder embedding.Embedder, optFns ...Option) (*Engine, error) {
	if idx == nil {
		return nil, &ValidationError{Msg: "index must not be nil"}
	}
	if embedder == nil {
		return nil, &ValidationError{Msg: "embedder must not be nil"}
	}

	opts := applyOptions(optFns)

	store := opts.blobStore
	if store == nil {
		store = blobstore.NewLocalStore(opts.cacheDir)
	}

	cacheOpts := cache.Options{
		Codec:       opts.codec,
		Compression: opts.compression,
		Logger:      opts.logger.Logger,
	}

	return &Engine{
		index:      idx,
		embeddings: cache.NewEmbedding(ctx, embedder, store, cacheOpts),
		retrievals: cache.NewRetrieval(ctx, store, cacheOpts),
		metrics:    opts.metricsCollector,
		logger:     opts.logger,
		uniqueIDs:  opts.uniqueBulkIDs,
	}, nil
}

// AddItem embeds content, upserts it into the index under a fresh
// uuid, and invalidates the retrieval cache. The content and item
// type are merged into a copy of meta under the reserved keys
// "content" and "item_type" so retrieval results carry them back.
//
// An upsert failure is returned as an ExternalServiceError with no
// rollback: the embedding stays cached, the retrieval cache stays
// invalidated.
func (e *Engine) AddItem(ctx context.Context, content string, meta metadata.Document, itemType string) (string, error) {
	if content == "" {
		return "", &ValidationError{Msg: "content must not be empty"}
	}

	start := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	id := uuid.NewString()
	err := e.addLocked(ctx, []string{id}, []string{content}, []metadata.Document{meta}, []string{itemType})

	e.metrics.RecordAdd(time.Since(start), err)
	e.logger.LogAdd(ctx, id, err)

	if err != nil {
		return "", err
	}
	return id, nil
}

// BulkAddItems embeds and upserts many items in one index call, then
// invalidates the retrieval cache. metadatas and itemTypes may each be
// nil; when non-nil their length must equal len(contents). Length
// mismatches are rejected before any side effect.
//
// Ids are positional by default ("item_0", "item_1", ...): a second
// bulk add against the same index reuses the same ids and silently
// overwrites the first call's items. Use WithUniqueBulkIDs to assign
// random uuids instead.
func (e *Engine) BulkAddItems(ctx context.Context, contents []string, metadatas []metadata.Document, itemTypes []string) ([]string, error) {
	if metadatas != nil && len(metadatas) != len(contents) {
		return nil, &ValidationError{Msg: fmt.Sprintf("metadatas length %d does not match contents length %d", len(metadatas), len(contents))}
	}
	if itemTypes != nil && len(itemTypes) != len(contents) {
		return nil, &ValidationError{Msg: fmt.Sprintf("itemTypes length %d does not match contents length %d", len(itemTypes), len(contents))}
	}
	for i, content := range contents {
		if content == "" {
			return nil, &ValidationError{Msg: fmt.Sprintf("content at position %d must not be empty", i)}
		}
	}
	if len(contents) == 0 {
		return nil, nil
	}

	start := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, len(contents))
	for i := range ids {
		if e.uniqueIDs {
			ids[i] = uuid.NewString()
		} else {
			ids[i] = fmt.Sprintf("item_%d", i)
		}
	}
	if metadatas == nil {
		metadatas = make([]metadata.Document, len(contents))
	}
	if itemTypes == nil {
		itemTypes = make([]string, len(contents))
	}

	err := e.addLocked(ctx, ids, contents, metadatas, itemTypes)

	e.metrics.RecordBulkAdd(len(contents), time.Since(start), err)
	e.logger.LogBulkAdd(ctx, len(contents), err)

	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (e *Engine) addLocked(ctx context.Context, ids, contents []string, metadatas []metadata.Document, itemTypes []string) error {
	vectors := make([]index.Vector, len(ids))
	for i := range ids {
		vec, err := e.embeddings.Get(ctx, contents[i])
		if err != nil {
			return externalError("embed", err)
		}

		doc := metadatas[i].Clone()
		if doc == nil {
			doc = metadata.Document{}
		}
		doc[MetaKeyContent] = metadata.String(contents[i])
		doc[MetaKeyItemType] = metadata.String(itemTypes[i])

		vectors[i] = index.Vector{ID: ids[i], Values: vec, Metadata: doc}
	}

	if err := e.index.Upsert(ctx, vectors); err != nil {
		return externalError("upsert", err)
	}

	e.retrievals.InvalidateAll(ctx)

	return nil
}

// GetRetrivals returns the topK most similar items for query,
// optionally restricted to items whose metadata matches every entry
// of filter. topK <= 0 falls back to DefaultTopK.
//
// The request fingerprint (query, topK, filter) is looked up in the
// retrieval cache first; on a hit the cached list is returned without
// touching the embedder or the index.
func (e *Engine) GetRetrivals(ctx context.Context, query string, topK int, filter metadata.Document) ([]index.Match, error) {
	if query == "" {
		return nil, &ValidationError{Msg: "query must not be empty"}
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	start := time.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	key := cache.Fingerprint(query, topK, filter)

	if results, ok := e.retrievals.Lookup(key); ok {
		e.metrics.RecordRetrieval(true, time.Since(start), nil)
		e.logger.LogRetrieval(ctx, topK, len(results), true, nil)
		return results, nil
	}

	results, err := e.retrieveLocked(ctx, key, query, topK, filter)

	e.metrics.RecordRetrieval(false, time.Since(start), err)
	e.logger.LogRetrieval(ctx, topK, len(results), false, err)

	return results, err
}

func (e *Engine) retrieveLocked(ctx context.Context, key, query string, topK int, filter metadata.Document) ([]index.Match, error) {
	vec, err := e.embeddings.Get(ctx, query)
	if err != nil {
		return nil, externalError("embed", err)
	}

	results, err := e.index.Query(ctx, index.QueryRequest{
		Vector:          vec,
		TopK:            topK,
		IncludeMetadata: true,
		Filter:          filter,
	})
	if err != nil {
		return nil, externalError("query", err)
	}

	e.retrievals.Store(ctx, key, results)

	return results, nil
}

// DeleteItem removes an item from the index and invalidates the
// retrieval cache. Deleting an id that was never added is not an
// error when the index treats it as a no-op.
func (e *Engine) DeleteItem(ctx context.Context, id string) error {
	if id == "" {
		return &ValidationError{Msg: "id must not be empty"}
	}

	start := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if derr := e.index.Delete(ctx, []string{id}); derr != nil {
		err = externalError("delete", derr)
	} else {
		e.retrievals.InvalidateAll(ctx)
	}

	e.metrics.RecordDelete(time.Since(start), err)
	e.logger.LogDelete(ctx, id, err)

	return err
}

// ClearRetrievalCache drops every cached result list without touching
// the index or the embedding cache.
func (e *Engine) ClearRetrievalCache(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.retrievals.InvalidateAll(ctx)
}

// EmbeddingCacheLen returns the number of cached embeddings.
func (e *Engine) EmbeddingCacheLen() int {
	return e.embeddings.Len()
}

// RetrievalCacheLen returns the number of cached result lists.
func (e *Engine) RetrievalCacheLen() int {
	return e.retrievals.Len()
}

// Persist forces both caches to write their snapshots. Normal
// operation persists write-through; Persist exists for shutdown hooks
// that want a final confirmation the snapshots are durable.
func (e *Engine) Persist(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.embeddings.Persist(ctx); err != nil {
		return err
	}
	return e.retrievals.Persist(ctx)
}
