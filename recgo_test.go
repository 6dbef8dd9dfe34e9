package recgo

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/recgo/blobstore"
	"github.com/hupe1980/recgo/embedding"
	"github.com/hupe1980/recgo/index"
	"github.com/hupe1980/recgo/metadata"
)

// countingIndex wraps an index and counts the calls that reach it.
type countingIndex struct {
	inner   index.Index
	upserts atomic.Int64
	queries atomic.Int64
	deletes atomic.Int64
	failAll bool
}

func (c *countingIndex) Upsert(ctx context.Context, vectors []index.Vector) error {
	c.upserts.Add(1)
	if c.failAll {
		return errors.New("index unavailable")
	}
	return c.inner.Upsert(ctx, vectors)
}

func (c *countingIndex) Query(ctx context.Context, req index.QueryRequest) ([]index.Match, error) {
	c.queries.Add(1)
	if c.failAll {
		return nil, errors.New("index unavailable")
	}
	return c.inner.Query(ctx, req)
}

func (c *countingIndex) Delete(ctx context.Context, ids []string) error {
	c.deletes.Add(1)
	if c.failAll {
		return errors.New("index unavailable")
	}
	return c.inner.Delete(ctx, ids)
}

type countingEmbedder struct {
	inner embedding.Embedder
	calls atomic.Int64
}

func (c *countingEmbedder) Embed(ctx context.Context, content string) ([]float32, error) {
	c.calls.Add(1)
	return c.inner.Embed(ctx, content)
}

func newTestEngine(t *testing.T, optFns ...Option) (*Engine, *countingIndex, *countingEmbedder) {
	t.Helper()

	hashing, err := embedding.NewHashing(64)
	require.NoError(t, err)

	idx := &countingIndex{inner: index.NewMemoryIndex()}
	embedder := &countingEmbedder{inner: hashing}

	optFns = append([]Option{WithBlobStore(blobstore.NewMemoryStore())}, optFns...)

	engine, err := New(context.Background(), idx, embedder, optFns...)
	require.NoError(t, err)

	return engine, idx, embedder
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("NilIndex", func(t *testing.T) {
		hashing, err := embedding.NewHashing(64)
		require.NoError(t, err)

		_, err = New(ctx, nil, hashing)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("NilEmbedder", func(t *testing.T) {
		_, err := New(ctx, index.NewMemoryIndex(), nil)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("DefaultLocalStore", func(t *testing.T) {
		hashing, err := embedding.NewHashing(64)
		require.NoError(t, err)

		engine, err := New(ctx, index.NewMemoryIndex(), hashing, WithCacheDir(t.TempDir()))
		require.NoError(t, err)
		assert.Equal(t, 0, engine.EmbeddingCacheLen())
	})
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyContent", func(t *testing.T) {
		engine, idx, embedder := newTestEngine(t)

		_, err := engine.AddItem(ctx, "", nil, "sentence")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, int64(0), idx.upserts.Load())
		assert.Equal(t, int64(0), embedder.calls.Load())
	})

	t.Run("MetadataCarriesContentAndType", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)

		meta := metadata.Document{"category": metadata.String("animals")}
		id, err := engine.AddItem(ctx, "the quick brown fox", meta, "sentence")
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		results, err := engine.GetRetrivals(ctx, "the quick brown fox", 1, nil)
		require.NoError(t, err)
		require.Len(t, results, 1)

		assert.Equal(t, id, results[0].ID)
		assert.Equal(t, metadata.String("the quick brown fox"), results[0].Metadata[MetaKeyContent])
		assert.Equal(t, metadata.String("sentence"), results[0].Metadata[MetaKeyItemType])
		assert.Equal(t, metadata.String("animals"), results[0].Metadata["category"])

		// The caller's document is not mutated.
		_, reserved := meta[MetaKeyContent]
		assert.False(t, reserved)
	})

	t.Run("UniqueIDs", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)

		a, err := engine.AddItem(ctx, "first", nil, "")
		require.NoError(t, err)
		b, err := engine.AddItem(ctx, "second", nil, "")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("UpsertFailure", func(t *testing.T) {
		engine, idx, _ := newTestEngine(t)
		idx.failAll = true

		_, err := engine.AddItem(ctx, "hello", nil, "")
		var serr *ExternalServiceError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "upsert", serr.Op)

		// The embedding computed on the way in stays cached.
		assert.Equal(t, 1, engine.EmbeddingCacheLen())
	})
}

func TestBulkAddItems(t *testing.T) {
	ctx := context.Background()

	t.Run("LengthMismatchBeforeSideEffects", func(t *testing.T) {
		engine, idx, embedder := newTestEngine(t)

		_, err := engine.BulkAddItems(ctx, []string{"a", "b"}, []metadata.Document{nil}, nil)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)

		_, err = engine.BulkAddItems(ctx, []string{"a", "b"}, nil, []string{"only one"})
		require.ErrorAs(t, err, &verr)

		assert.Equal(t, int64(0), idx.upserts.Load())
		assert.Equal(t, int64(0), embedder.calls.Load())
		assert.Equal(t, 0, engine.EmbeddingCacheLen())
	})

	t.Run("PositionalIDs", func(t *testing.T) {
		engine, idx, _ := newTestEngine(t)

		ids, err := engine.BulkAddItems(ctx, []string{"alpha", "beta", "gamma"}, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"item_0", "item_1", "item_2"}, ids)
		assert.Equal(t, int64(1), idx.upserts.Load())
	})

	t.Run("PositionalIDsCollideAcrossCalls", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)

		_, err := engine.BulkAddItems(ctx, []string{"original"}, nil, nil)
		require.NoError(t, err)
		_, err = engine.BulkAddItems(ctx, []string{"replacement"}, nil, nil)
		require.NoError(t, err)

		// The second call reused item_0 and overwrote the first item.
		results, err := engine.GetRetrivals(ctx, "replacement", 10, nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "item_0", results[0].ID)
	})

	t.Run("UniqueBulkIDs", func(t *testing.T) {
		engine, _, _ := newTestEngine(t, WithUniqueBulkIDs())

		first, err := engine.BulkAddItems(ctx, []string{"original"}, nil, nil)
		require.NoError(t, err)
		second, err := engine.BulkAddItems(ctx, []string{"replacement"}, nil, nil)
		require.NoError(t, err)
		assert.NotEqual(t, first[0], second[0])

		results, err := engine.GetRetrivals(ctx, "original", 10, nil)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("Empty", func(t *testing.T) {
		engine, idx, _ := newTestEngine(t)

		ids, err := engine.BulkAddItems(ctx, nil, nil, nil)
		require.NoError(t, err)
		assert.Nil(t, ids)
		assert.Equal(t, int64(0), idx.upserts.Load())
	})

	t.Run("DuplicateContentEmbeddedOnce", func(t *testing.T) {
		engine, _, embedder := newTestEngine(t)

		_, err := engine.BulkAddItems(ctx, []string{"same", "same", "same"}, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), embedder.calls.Load())
	})
}

func TestGetRetrivals(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyQuery", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)

		_, err := engine.GetRetrivals(ctx, "", 5, nil)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("DefaultTopK", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)

		contents := []string{"one", "two", "three", "four", "five", "six", "seven"}
		_, err := engine.BulkAddItems(ctx, contents, nil, nil)
		require.NoError(t, err)

		results, err := engine.GetRetrivals(ctx, "one two three", 0, nil)
		require.NoError(t, err)
		assert.Len(t, results, DefaultTopK)
	})

	t.Run("CacheHitSkipsIndex", func(t *testing.T) {
		engine, idx, _ := newTestEngine(t)

		_, err := engine.AddItem(ctx, "hello world", nil, "")
		require.NoError(t, err)

		first, err := engine.GetRetrivals(ctx, "hello", 5, nil)
		require.NoError(t, err)
		require.Equal(t, int64(1), idx.queries.Load())

		second, err := engine.GetRetrivals(ctx, "hello", 5, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), idx.queries.Load())
		assert.Equal(t, first, second)
		assert.Equal(t, 1, engine.RetrievalCacheLen())
	})

	t.Run("DistinctParametersMissSeparately", func(t *testing.T) {
		engine, idx, _ := newTestEngine(t)

		_, err := engine.AddItem(ctx, "hello world", nil, "")
		require.NoError(t, err)

		_, err = engine.GetRetrivals(ctx, "hello", 5, nil)
		require.NoError(t, err)
		_, err = engine.GetRetrivals(ctx, "hello", 3, nil)
		require.NoError(t, err)
		_, err = engine.GetRetrivals(ctx, "hello", 5, metadata.Document{"k": metadata.Int(1)})
		require.NoError(t, err)

		assert.Equal(t, int64(3), idx.queries.Load())
		assert.Equal(t, 3, engine.RetrievalCacheLen())
	})

	t.Run("MetadataFilter", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)

		_, err := engine.AddItem(ctx, "red apple", metadata.Document{"color": metadata.String("red")}, "fruit")
		require.NoError(t, err)
		_, err = engine.AddItem(ctx, "green apple", metadata.Document{"color": metadata.String("green")}, "fruit")
		require.NoError(t, err)

		results, err := engine.GetRetrivals(ctx, "apple", 10, metadata.Document{"color": metadata.String("red")})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, metadata.String("red apple"), results[0].Metadata[MetaKeyContent])
	})

	t.Run("QueryFailure", func(t *testing.T) {
		engine, idx, _ := newTestEngine(t)
		idx.failAll = true

		_, err := engine.GetRetrivals(ctx, "hello", 5, nil)
		var serr *ExternalServiceError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "query", serr.Op)

		// A failed retrieval is never cached.
		assert.Equal(t, 0, engine.RetrievalCacheLen())
	})
}

func TestCacheInvalidation(t *testing.T) {
	ctx := context.Background()

	warm := func(t *testing.T, engine *Engine) {
		t.Helper()
		_, err := engine.GetRetrivals(ctx, "warmup query", 5, nil)
		require.NoError(t, err)
		require.Equal(t, 1, engine.RetrievalCacheLen())
	}

	t.Run("AddItem", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		warm(t, engine)

		_, err := engine.AddItem(ctx, "new item", nil, "")
		require.NoError(t, err)
		assert.Equal(t, 0, engine.RetrievalCacheLen())
	})

	t.Run("BulkAddItems", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)
		warm(t, engine)

		_, err := engine.BulkAddItems(ctx, []string{"new item"}, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, engine.RetrievalCacheLen())
	})

	t.Run("DeleteItem", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)

		id, err := engine.AddItem(ctx, "doomed", nil, "")
		require.NoError(t, err)
		warm(t, engine)

		require.NoError(t, engine.DeleteItem(ctx, id))
		assert.Equal(t, 0, engine.RetrievalCacheLen())
	})

	t.Run("ClearRetrievalCache", func(t *testing.T) {
		engine, idx, _ := newTestEngine(t)
		warm(t, engine)

		engine.ClearRetrievalCache(ctx)
		assert.Equal(t, 0, engine.RetrievalCacheLen())
		// Manual clear touches no external service.
		assert.Equal(t, int64(1), idx.queries.Load())
		assert.Equal(t, int64(0), idx.deletes.Load())
	})

	t.Run("FailedDeleteKeepsCache", func(t *testing.T) {
		engine, idx, _ := newTestEngine(t)
		warm(t, engine)

		idx.failAll = true
		err := engine.DeleteItem(ctx, "some-id")
		var serr *ExternalServiceError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, 1, engine.RetrievalCacheLen())
	})
}

func TestEmbeddingReuse(t *testing.T) {
	ctx := context.Background()
	engine, _, embedder := newTestEngine(t)

	_, err := engine.AddItem(ctx, "hello world", nil, "")
	require.NoError(t, err)
	require.Equal(t, int64(1), embedder.calls.Load())

	// Same content as query text: the cached embedding is reused.
	_, err = engine.GetRetrivals(ctx, "hello world", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), embedder.calls.Load())

	// Mutations never touch the embedding cache.
	_, err = engine.AddItem(ctx, "hello world", nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), embedder.calls.Load())
	assert.Equal(t, 1, engine.EmbeddingCacheLen())
}

func TestDeleteItem(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyID", func(t *testing.T) {
		engine, idx, _ := newTestEngine(t)

		err := engine.DeleteItem(ctx, "")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, int64(0), idx.deletes.Load())
	})

	t.Run("RemovedFromResults", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)

		id, err := engine.AddItem(ctx, "hello world", nil, "")
		require.NoError(t, err)

		results, err := engine.GetRetrivals(ctx, "hello world", 1, nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Greater(t, results[0].Score, float32(0.99))

		require.NoError(t, engine.DeleteItem(ctx, id))

		results, err = engine.GetRetrivals(ctx, "hello world", 1, nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestSnapshotReload(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	hashing, err := embedding.NewHashing(64)
	require.NoError(t, err)

	idx := &countingIndex{inner: index.NewMemoryIndex()}
	embedder := &countingEmbedder{inner: hashing}

	engine, err := New(ctx, idx, embedder, WithBlobStore(store))
	require.NoError(t, err)

	_, err = engine.AddItem(ctx, "persistent item", nil, "")
	require.NoError(t, err)

	want, err := engine.GetRetrivals(ctx, "persistent", 5, nil)
	require.NoError(t, err)
	queriesBefore := idx.queries.Load()
	embedsBefore := embedder.calls.Load()

	// A fresh engine on the same store answers from the reloaded
	// snapshots without calling the embedder or the index.
	reloaded, err := New(ctx, idx, embedder, WithBlobStore(store))
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.RetrievalCacheLen())

	got, err := reloaded.GetRetrivals(ctx, "persistent", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, queriesBefore, idx.queries.Load())
	assert.Equal(t, embedsBefore, embedder.calls.Load())
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}
	engine, _, _ := newTestEngine(t, WithMetricsCollector(metrics))

	_, err := engine.AddItem(ctx, "hello world", nil, "")
	require.NoError(t, err)

	_, err = engine.BulkAddItems(ctx, []string{"a", "b"}, nil, nil)
	require.NoError(t, err)

	_, err = engine.GetRetrivals(ctx, "hello", 5, nil)
	require.NoError(t, err)
	_, err = engine.GetRetrivals(ctx, "hello", 5, nil)
	require.NoError(t, err)

	require.NoError(t, engine.DeleteItem(ctx, "item_0"))

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.AddCount)
	assert.Equal(t, int64(1), stats.BulkAddCount)
	assert.Equal(t, int64(2), stats.BulkAddItems)
	assert.Equal(t, int64(2), stats.RetrievalCount)
	assert.Equal(t, int64(1), stats.RetrievalCacheHits)
	assert.Equal(t, int64(1), stats.DeleteCount)
	assert.Equal(t, int64(0), stats.AddErrors)
}
