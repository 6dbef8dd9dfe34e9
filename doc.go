// Package recgo provides a cached retrieval engine for Go.
//
// Recgo sits between an application and a remote vector similarity
// index. It wraps every index interaction with two durable caches so
// repeated work never leaves the process:
//
//   - Embedding cache: content hash -> embedding vector. An embedding
//     is computed at most once per distinct content value, ever.
//   - Retrieval cache: request fingerprint -> ranked result list. A
//     repeated query with identical parameters is answered without
//     touching the index, until any mutation invalidates all entries.
//
// Both caches persist write-through to a BlobStore (local directory by
// default, S3/MinIO for cloud deployments) and reload on startup.
//
// # Quick Start
//
//	ctx := context.Background()
//
//	engine, err := recgo.New(ctx, idx, embedder,
//	    recgo.WithCacheDir("./cache"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	id, _ := engine.AddItem(ctx, "The quick brown fox", metadata.Document{
//	    "category": metadata.String("animals"),
//	}, "sentence")
//
//	results, _ := engine.GetRetrivals(ctx, "fast fox", 5, nil)
//	for _, r := range results {
//	    fmt.Println(r.ID, r.Score, r.Metadata)
//	}
//
//	_ = engine.DeleteItem(ctx, id)
//
// # Consistency Model
//
// Any mutation (AddItem, BulkAddItems, DeleteItem) invalidates the
// entire retrieval cache. Coarse, but it guarantees a cached result
// list computed before a mutation is never served after it. The
// embedding cache is never invalidated: content is immutable by key.
//
// # Cloud Storage
//
//	store, err := s3.NewDefault(ctx, "my-bucket", s3.WithPrefix("recgo/"))
//	engine, err := recgo.New(ctx, idx, embedder, recgo.WithBlobStore(store))
package recgo
