package index

import (
	"context"

	"github.com/cenkalti/backoff/v4"
)

// WithRetry wraps an Index so failed calls are retried with exponential
// backoff. newBackOff produces a fresh policy per call; nil means
// backoff.NewExponentialBackOff with its defaults.
//
// The engine never retries on its own; compose this wrapper explicitly when
// transient index failures should be absorbed. Retrying upserts assumes the
// index treats them idempotently (true for id-keyed upsert/delete).
func WithRetry(idx Index, newBackOff func() backoff.BackOff) Index {
	if newBackOff == nil {
		newBackOff = func() backoff.BackOff { return backoff.NewExponentialBackOff() }
	}
	return &retryingIndex{idx: idx, newBackOff: newBackOff}
}

type retryingIndex struct {
	idx        Index
	newBackOff func() backoff.BackOff
}

func (r *retryingIndex) Upsert(ctx context.Context, vectors []Vector) error {
	return backoff.Retry(func() error {
		return r.idx.Upsert(ctx, vectors)
	}, backoff.WithContext(r.newBackOff(), ctx))
}

func (r *retryingIndex) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	var matches []Match
	err := backoff.Retry(func() error {
		var err error
		matches, err = r.idx.Query(ctx, req)
		return err
	}, backoff.WithContext(r.newBackOff(), ctx))
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *retryingIndex) Delete(ctx context.Context, ids []string) error {
	return backoff.Retry(func() error {
		return r.idx.Delete(ctx, ids)
	}, backoff.WithContext(r.newBackOff(), ctx))
}
