// Package user implements the account store: credentials plus the
// list of hurl identifiers each account has saved.
package user

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/foobargirl/hurl/internal/kv"
)

const keyPrefix = "user:"

// ValidationError reports unusable account-creation input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type record struct {
	Email string   `json:"email"`
	Salt  []byte   `json:"salt"`
	Hash  []byte   `json:"hash"`
	Hurls []string `json:"hurls"`
}

// Store persists accounts through the key-value store, one record per
// email.
type Store struct {
	KV kv.Store
}

// Ref is a handle on one existing account.
type Ref struct {
	Email string
	store *Store
}

// Create registers a new account and returns a Ref to it. Invalid
// input and duplicate emails come back as *ValidationError.
func (s *Store) Create(email, password string) (*Ref, error) {
	if !strings.Contains(email, "@") {
		return nil, &ValidationError{Field: "email", Message: "invalid email"}
	}
	if password == "" {
		return nil, &ValidationError{Field: "password", Message: "password is required"}
	}

	existing, err := s.load(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &ValidationError{Field: "email", Message: "email already taken"}
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	rec := &record{
		Email: email,
		Salt:  salt,
		Hash:  hashPassword(salt, password),
	}
	if err := s.save(rec); err != nil {
		return nil, err
	}
	return &Ref{Email: email, store: s}, nil
}

// Authenticate checks credentials and returns a Ref on success, or
// nil, nil when the email is unknown or the password does not match.
func (s *Store) Authenticate(email, password string) (*Ref, error) {
	rec, err := s.load(email)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	if subtle.ConstantTimeCompare(hashPassword(rec.Salt, password), rec.Hash) != 1 {
		return nil, nil
	}
	return &Ref{Email: email, store: s}, nil
}

// Find returns a Ref for an existing account, or nil, nil when the
// email is unknown.
func (s *Store) Find(email string) (*Ref, error) {
	rec, err := s.load(email)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return &Ref{Email: email, store: s}, nil
}

// AddHurl appends a saved hurl identifier to the account's list.
// Identifiers already present are not duplicated, matching the
// overwrite-on-identical-content behavior of the hurl store.
func (r *Ref) AddHurl(id string) error {
	rec, err := r.store.load(r.Email)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("account %s no longer exists", r.Email)
	}

	for _, existing := range rec.Hurls {
		if existing == id {
			return nil
		}
	}
	rec.Hurls = append(rec.Hurls, id)
	return r.store.save(rec)
}

// Hurls returns the account's saved hurl identifiers in save order.
func (r *Ref) Hurls() ([]string, error) {
	rec, err := r.store.load(r.Email)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return rec.Hurls, nil
}

func (s *Store) load(email string) (*record, error) {
	data, err := s.KV.Get(keyPrefix + email)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, nil
	}
	return &rec, nil
}

func (s *Store) save(rec *record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	if err := s.KV.Set(keyPrefix+rec.Email, data); err != nil {
		return fmt.Errorf("store account: %w", err)
	}
	return nil
}

func hashPassword(salt []byte, password string) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(password))
	return h.Sum(nil)
}
