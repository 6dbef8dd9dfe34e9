package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/hupe1980/recgo/metadata"
)

// Fingerprint derives the retrieval-cache key for a query.
//
// The key covers the query text, topK and the filter criteria. The filter
// is order-normalized (entries sorted by key) before hashing, so
// semantically identical filters produce identical fingerprints regardless
// of construction order.
func Fingerprint(query string, topK int, filter metadata.Document) string {
	h := sha256.New()
	h.Write([]byte(query))
	h.Write([]byte{0})

	var k [8]byte
	binary.LittleEndian.PutUint64(k[:], uint64(topK))
	h.Write(k[:])
	h.Write([]byte{0})

	h.Write([]byte(filter.Key()))
	return hex.EncodeToString(h.Sum(nil))
}

// contentKey derives the embedding-cache key for a content string: a stable
// hash of the exact content bytes.
func contentKey(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
