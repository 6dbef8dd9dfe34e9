// Package codec centralizes cache snapshot encoding.
//
// Snapshots are self-describing: they store the codec name in their header,
// and the codec is selected by name when an existing snapshot is opened.
// Changing the default codec therefore never breaks previously persisted
// caches.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}
