package client

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/foobargirl/hurl/internal/hurls"
	"github.com/foobargirl/hurl/internal/kv"
	"github.com/foobargirl/hurl/internal/probe"
	"github.com/foobargirl/hurl/internal/server"
	"github.com/foobargirl/hurl/internal/session"
	"github.com/foobargirl/hurl/internal/user"
)

func setupTestService(t *testing.T) *Client {
	t.Helper()

	store := kv.NewMemory()
	logger := zap.NewNop()

	srv := &server.Server{
		Executor: &probe.Executor{Logger: logger},
		Hurls:    &hurls.Store{KV: store, Logger: logger},
		Users:    &user.Store{KV: store},
		Sessions: &session.Manager{KV: store},
		Logger:   logger,
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return New(ts.URL)
}

func TestProbeAndGetHurl(t *testing.T) {
	c := setupTestService(t)

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	}))
	defer target.Close()

	result, err := c.Probe(url.Values{"url": {target.URL}})
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if result.HurlID == "" {
		t.Fatal("no hurl id")
	}
	if !strings.Contains(result.Header, "200 OK") {
		t.Errorf("header pane = %q", result.Header)
	}

	rec, err := c.GetHurl(result.HurlID)
	if err != nil {
		t.Fatalf("get hurl: %v", err)
	}
	if rec.ID != result.HurlID {
		t.Errorf("id = %q, want %q", rec.ID, result.HurlID)
	}
}

func TestProbeTransportFailureSurfaces(t *testing.T) {
	c := setupTestService(t)

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	_, err := c.Probe(url.Values{"url": {deadURL}})
	if err == nil {
		t.Fatal("expected error from dead target")
	}
	if !strings.HasPrefix(err.Error(), "error: ") {
		t.Errorf("error = %q, want 'error: ' prefix", err)
	}
}

func TestGetHurlNotFound(t *testing.T) {
	c := setupTestService(t)

	_, err := c.GetHurl("ffffffffffffffffffffffffffffffffffffffff")
	if err == nil {
		t.Fatal("expected error for unknown id")
	}
}
