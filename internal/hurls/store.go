// Package hurls persists completed request exercises under
// content-addressed identifiers.
package hurls

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/foobargirl/hurl/internal/kv"
	"github.com/foobargirl/hurl/internal/logging"
)

// Owner receives the identifier of a hurl saved on its behalf.
type Owner interface {
	AddHurl(id string) error
}

// Record is the persisted form of one hurl: the raw boundary
// parameters plus the identifier derived from them.
type Record struct {
	ID     string              `json:"id"`
	Params map[string][]string `json:"params"`
}

// Store saves and loads hurl records through the key-value store.
type Store struct {
	KV     kv.Store
	Logger *zap.Logger
}

// ID derives the content-addressed identifier for a raw parameter set.
// url.Values.Encode sorts keys, so the identifier depends only on the
// parameters as observed at the boundary, not on arrival order.
func ID(params url.Values) string {
	sum := sha1.Sum([]byte(params.Encode()))
	return hex.EncodeToString(sum[:])
}

// Save writes the record at its derived identifier, overwriting any
// prior record there, and appends the identifier to owner's saved list
// when owner is non-nil. Identical parameter sets always land on the
// same key.
func (s *Store) Save(params url.Values, owner Owner) (string, error) {
	id := ID(params)

	data, err := json.Marshal(Record{ID: id, Params: params})
	if err != nil {
		return "", fmt.Errorf("encode hurl %s: %w", id, err)
	}
	if err := s.KV.Set(id, data); err != nil {
		return "", fmt.Errorf("store hurl %s: %w", id, err)
	}

	if owner != nil {
		if err := owner.AddHurl(id); err != nil {
			return "", fmt.Errorf("record hurl %s for owner: %w", id, err)
		}
	}

	return id, nil
}

// Load fetches the record stored at id. An absent key and an
// undecodable record both yield nil, nil.
func (s *Store) Load(id string) (*Record, error) {
	data, err := s.KV.Get(id)
	if err != nil {
		return nil, fmt.Errorf("load hurl %s: %w", id, err)
	}
	if data == nil {
		return nil, nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("undecodable hurl record", logging.HurlID(id), zap.Error(err))
		}
		return nil, nil
	}
	return &rec, nil
}
