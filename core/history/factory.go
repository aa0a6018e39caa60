package history

import "fmt"

// NewStore creates a Store for the configured backend.
func NewStore(backend, path string) (Store, error) {
	switch backend {
	case "jsonl":
		return NewJSONLStore(path)
	case "sqlite":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown history backend %s", backend)
	}
}
