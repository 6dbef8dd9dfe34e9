package index

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hupe1980/recgo/codec"
	"github.com/hupe1980/recgo/metadata"
)

// RESTIndex is a JSON-over-HTTP client for Pinecone-style vector index
// services exposing /vectors/upsert, /query and /vectors/delete.
//
// It applies no retries and no request timeout of its own; callers bound
// calls via ctx, and may compose WithRetry/RateLimited explicitly.
type RESTIndex struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	codec      codec.Codec
}

// RESTOption configures a RESTIndex.
type RESTOption func(*RESTIndex)

// WithHTTPClient sets the HTTP client. Defaults to http.DefaultClient.
func WithHTTPClient(c *http.Client) RESTOption {
	return func(r *RESTIndex) {
		if c != nil {
			r.httpClient = c
		}
	}
}

// WithRESTCodec sets the JSON codec used for request/response bodies.
func WithRESTCodec(c codec.Codec) RESTOption {
	return func(r *RESTIndex) {
		if c != nil {
			r.codec = c
		}
	}
}

// NewRESTIndex creates a client for the index service at baseURL.
// apiKey is sent as the Api-Key header on every request; pass "" to omit.
func NewRESTIndex(baseURL, apiKey string, optFns ...RESTOption) *RESTIndex {
	r := &RESTIndex{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
		codec:      codec.Default,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(r)
		}
	}
	return r
}

type restVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type restUpsertRequest struct {
	Vectors []restVector `json:"vectors"`
}

type restQueryRequest struct {
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	IncludeMetadata bool           `json:"includeMetadata"`
	Filter          map[string]any `json:"filter,omitempty"`
}

type restMatch struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type restQueryResponse struct {
	Matches []restMatch `json:"matches"`
}

type restDeleteRequest struct {
	IDs []string `json:"ids"`
}

// Upsert implements Index.
func (r *RESTIndex) Upsert(ctx context.Context, vectors []Vector) error {
	req := restUpsertRequest{Vectors: make([]restVector, len(vectors))}
	for i, v := range vectors {
		req.Vectors[i] = restVector{
			ID:       v.ID,
			Values:   v.Values,
			Metadata: v.Metadata.ToAny(),
		}
	}
	return r.post(ctx, "/vectors/upsert", req, nil)
}

// Query implements Index.
func (r *RESTIndex) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	body := restQueryRequest{
		Vector:          req.Vector,
		TopK:            req.TopK,
		IncludeMetadata: req.IncludeMetadata,
		Filter:          req.Filter.ToAny(),
	}

	var resp restQueryResponse
	if err := r.post(ctx, "/query", body, &resp); err != nil {
		return nil, err
	}

	matches := make([]Match, len(resp.Matches))
	for i, m := range resp.Matches {
		matches[i] = Match{
			ID:       m.ID,
			Score:    m.Score,
			Metadata: metadata.FromAnyMap(m.Metadata),
		}
	}
	return matches, nil
}

// Delete implements Index.
func (r *RESTIndex) Delete(ctx context.Context, ids []string) error {
	return r.post(ctx, "/vectors/delete", restDeleteRequest{IDs: ids}, nil)
}

func (r *RESTIndex) post(ctx context.Context, path string, in, out any) error {
	payload, err := r.codec.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Api-Key", r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("index service %s returned %d: %s", path, resp.StatusCode, truncate(body, 256))
	}

	if out != nil {
		if err := r.codec.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", path, err)
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
