package index

import (
	"context"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/recgo/metadata"
	"github.com/hupe1980/recgo/metric"
)

// MemoryIndex is an exact (brute-force cosine) in-memory Index.
//
// Equality filters are evaluated through roaring-bitmap posting lists, one
// per (key, value) pair, intersected before any distance work happens.
// It is used by tests and by deployments small enough to skip a remote
// index service.
type MemoryIndex struct {
	mu       sync.RWMutex
	rows     map[string]*memoryRow
	postings map[string]*roaring.Bitmap
	bits     map[uint32]string // posting bit -> item id
	nextBit  uint32
}

type memoryRow struct {
	bit      uint32
	values   []float32
	metadata metadata.Document
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		rows:     make(map[string]*memoryRow),
		postings: make(map[string]*roaring.Bitmap),
		bits:     make(map[uint32]string),
	}
}

func postingKey(k string, v metadata.Value) string {
	return k + "\x1f" + v.Key()
}

// Upsert inserts or replaces vectors by id.
func (m *MemoryIndex) Upsert(_ context.Context, vectors []Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, vec := range vectors {
		if old, ok := m.rows[vec.ID]; ok {
			m.removePostingsLocked(old)
			delete(m.bits, old.bit)
		}

		row := &memoryRow{
			bit:      m.nextBit,
			values:   append([]float32(nil), vec.Values...),
			metadata: vec.Metadata.Clone(),
		}
		m.nextBit++

		m.rows[vec.ID] = row
		m.bits[row.bit] = vec.ID
		for k, v := range row.metadata {
			pk := postingKey(k, v)
			bm, ok := m.postings[pk]
			if !ok {
				bm = roaring.New()
				m.postings[pk] = bm
			}
			bm.Add(row.bit)
		}
	}
	return nil
}

// Query returns up to req.TopK matches ranked by descending cosine similarity.
func (m *MemoryIndex) Query(_ context.Context, req QueryRequest) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if req.TopK <= 0 {
		return nil, nil
	}

	candidates, all := m.filterLocked(req.Filter)

	matches := make([]Match, 0, len(m.rows))
	score := func(id string, row *memoryRow) error {
		s, err := metric.CosineSimilarity(req.Vector, row.values)
		if err != nil {
			return err
		}
		match := Match{ID: id, Score: s}
		if req.IncludeMetadata {
			match.Metadata = row.metadata.Clone()
		}
		matches = append(matches, match)
		return nil
	}

	if all {
		for id, row := range m.rows {
			if err := score(id, row); err != nil {
				return nil, err
			}
		}
	} else {
		var err error
		candidates.Iterate(func(bit uint32) bool {
			id := m.bits[bit]
			err = score(id, m.rows[id])
			return err == nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > req.TopK {
		matches = matches[:req.TopK]
	}
	return matches, nil
}

// Delete removes vectors by id. Unknown ids are ignored.
func (m *MemoryIndex) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		row, ok := m.rows[id]
		if !ok {
			continue
		}
		m.removePostingsLocked(row)
		delete(m.bits, row.bit)
		delete(m.rows, id)
	}
	return nil
}

// Len returns the number of stored vectors.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// filterLocked intersects the posting lists of every filter entry.
// all=true means "no filter, scan everything".
func (m *MemoryIndex) filterLocked(filter metadata.Document) (*roaring.Bitmap, bool) {
	if len(filter) == 0 {
		return nil, true
	}

	var acc *roaring.Bitmap
	for k, v := range filter {
		bm, ok := m.postings[postingKey(k, v)]
		if !ok {
			return roaring.New(), false
		}
		if acc == nil {
			acc = bm.Clone()
		} else {
			acc.And(bm)
		}
	}
	return acc, false
}

func (m *MemoryIndex) removePostingsLocked(row *memoryRow) {
	for k, v := range row.metadata {
		pk := postingKey(k, v)
		if bm, ok := m.postings[pk]; ok {
			bm.Remove(row.bit)
			if bm.IsEmpty() {
				delete(m.postings, pk)
			}
		}
	}
}
