package user

import (
	"errors"
	"reflect"
	"testing"

	"github.com/foobargirl/hurl/internal/kv"
)

func TestCreateAuthenticate(t *testing.T) {
	s := &Store{KV: kv.NewMemory()}

	ref, err := s.Create("a@example.test", "secret")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ref.Email != "a@example.test" {
		t.Errorf("email = %q", ref.Email)
	}

	got, err := s.Authenticate("a@example.test", "secret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got == nil {
		t.Fatal("valid credentials rejected")
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	s := &Store{KV: kv.NewMemory()}

	if _, err := s.Create("a@example.test", "secret"); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Authenticate("a@example.test", "wrong")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got != nil {
		t.Error("wrong password accepted")
	}
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	s := &Store{KV: kv.NewMemory()}

	got, err := s.Authenticate("nobody@example.test", "secret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got != nil {
		t.Error("unknown email accepted")
	}
}

func TestCreateValidation(t *testing.T) {
	s := &Store{KV: kv.NewMemory()}

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"no at sign", "nobody", "secret"},
		{"empty password", "a@example.test", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Create(tc.email, tc.password)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestCreateDuplicate(t *testing.T) {
	s := &Store{KV: kv.NewMemory()}

	if _, err := s.Create("a@example.test", "secret"); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := s.Create("a@example.test", "other")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestFind(t *testing.T) {
	s := &Store{KV: kv.NewMemory()}

	if ref, err := s.Find("a@example.test"); err != nil || ref != nil {
		t.Errorf("find before create = %v, %v", ref, err)
	}

	if _, err := s.Create("a@example.test", "secret"); err != nil {
		t.Fatalf("create: %v", err)
	}

	ref, err := s.Find("a@example.test")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if ref == nil {
		t.Fatal("existing account not found")
	}
}

func TestAddHurlAndList(t *testing.T) {
	s := &Store{KV: kv.NewMemory()}

	ref, err := s.Create("a@example.test", "secret")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, id := range []string{"one", "two", "one"} {
		if err := ref.AddHurl(id); err != nil {
			t.Fatalf("add hurl %s: %v", id, err)
		}
	}

	ids, err := ref.Hurls()
	if err != nil {
		t.Fatalf("hurls: %v", err)
	}
	want := []string{"one", "two"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("hurls = %v, want %v", ids, want)
	}
}
