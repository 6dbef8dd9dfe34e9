package cache

import "fmt"

// PersistenceError reports a failure reading or writing a cache snapshot.
//
// It is always non-fatal: a failed load starts the cache empty, a failed
// save leaves the in-memory state authoritative until the next successful
// persist. Only durability across restarts is affected.
type PersistenceError struct {
	Cache string // "embedding" or "retrieval"
	Op    string // "load" or "save"
	cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s cache snapshot %s failed: %v", e.Cache, e.Op, e.cause)
}

func (e *PersistenceError) Unwrap() error { return e.cause }
