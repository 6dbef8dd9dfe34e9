// Package embedding defines the text-embedding collaborator surface.
//
// The embedding function is external to the engine and assumed deterministic:
// identical content must always produce identical vectors, because the
// embedding cache keys on a hash of the content bytes and never re-checks.
package embedding

import "context"

// Embedder converts text content into a fixed-dimension vector.
type Embedder interface {
	// Embed generates an embedding vector for the given content.
	Embed(ctx context.Context, content string) ([]float32, error)
}

// EmbedderFunc adapts an ordinary function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, content string) ([]float32, error)

// Embed implements Embedder.
func (f EmbedderFunc) Embed(ctx context.Context, content string) ([]float32, error) {
	return f(ctx, content)
}
