// Package kv defines the key-value store contract the rest of the
// application persists through, plus its backing implementations.
package kv

// Store is an atomic-per-key byte store. Get returns nil, nil when the
// key is absent. No ordering or transactional guarantees exist across
// keys.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}
