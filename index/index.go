// Package index defines the remote vector index collaborator surface and
// client implementations for it.
//
// The engine treats the index as the source of truth for items: once
// upserted, the engine keeps no independent copy. Any implementation must
// support upsert, filtered nearest-neighbor query, and delete.
package index

import (
	"context"

	"github.com/hupe1980/recgo/metadata"
)

// Vector is one item as stored in the index.
type Vector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata metadata.Document `json:"metadata,omitempty"`
}

// Match is one ranked query result.
type Match struct {
	ID       string            `json:"id"`
	Score    float32           `json:"score"`
	Metadata metadata.Document `json:"metadata,omitempty"`
}

// QueryRequest describes a nearest-neighbor query.
type QueryRequest struct {
	// Vector is the query embedding.
	Vector []float32
	// TopK is the number of nearest neighbors to return.
	TopK int
	// IncludeMetadata controls whether matches carry item metadata.
	IncludeMetadata bool
	// Filter restricts matches to items whose metadata contains every
	// listed key with an equal value. A nil filter matches everything.
	Filter metadata.Document
}

// Index is the capability surface required of a vector index service.
type Index interface {
	// Upsert inserts or replaces vectors by id.
	Upsert(ctx context.Context, vectors []Vector) error

	// Query returns up to req.TopK matches ranked by descending similarity.
	Query(ctx context.Context, req QueryRequest) ([]Match, error)

	// Delete removes vectors by id. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error
}
