// Package metadata models the scalar metadata attached to indexed items
// and to query filters.
//
// Remote vector indexes accept a flat mapping of string keys to scalar
// values (string, integer, float, boolean). Value is the tagged union of
// exactly those scalars, and Document is the mapping. Both have a stable
// canonical form (Key) so that filters can be order-normalized before
// hashing into a cache fingerprint.
package metadata
