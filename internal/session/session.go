// Package session manages opaque server-side session records.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/foobargirl/hurl/internal/kv"
)

const idBytes = 20

// Manager stores session attribute maps under random opaque
// identifiers. A missing or corrupted record degrades to absent,
// never an error.
type Manager struct {
	KV kv.Store
}

// Create stores attrs under a fresh unguessable identifier and
// returns it for the caller to place in a cookie.
func (m *Manager) Create(attrs map[string]string) (string, error) {
	id, err := newID()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}

	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := m.KV.Set(id, data); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return id, nil
}

// Lookup returns the attributes stored under id, or nil, nil when the
// session is absent or its record does not decode.
func (m *Manager) Lookup(id string) (map[string]string, error) {
	data, err := m.KV.Get(id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	var attrs map[string]string
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, nil
	}
	return attrs, nil
}

// Destroy deletes the session record. The caller clears the cookie.
func (m *Manager) Destroy(id string) error {
	return m.KV.Delete(id)
}

func newID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
