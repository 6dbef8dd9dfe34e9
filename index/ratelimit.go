package index

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited wraps an Index so every call first waits on the limiter.
//
// The engine itself never rate-limits; compose this wrapper explicitly when
// the index service enforces a request budget.
func RateLimited(idx Index, limiter *rate.Limiter) Index {
	return &rateLimitedIndex{idx: idx, limiter: limiter}
}

type rateLimitedIndex struct {
	idx     Index
	limiter *rate.Limiter
}

func (r *rateLimitedIndex) Upsert(ctx context.Context, vectors []Vector) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.idx.Upsert(ctx, vectors)
}

func (r *rateLimitedIndex) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.idx.Query(ctx, req)
}

func (r *rateLimitedIndex) Delete(ctx context.Context, ids []string) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.idx.Delete(ctx, ids)
}
