package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/foobargirl/hurl/internal/api"
	"github.com/foobargirl/hurl/internal/hurls"
	"github.com/foobargirl/hurl/internal/kv"
	"github.com/foobargirl/hurl/internal/probe"
	"github.com/foobargirl/hurl/internal/session"
	"github.com/foobargirl/hurl/internal/user"
)

func setupTestServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()

	store := kv.NewMemory()
	logger := zap.NewNop()

	srv := &Server{
		Executor: &probe.Executor{Logger: logger},
		Hurls:    &hurls.Store{KV: store, Logger: logger},
		Users:    &user.Store{KV: store},
		Sessions: &session.Manager{KV: store},
		Logger:   logger,
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return ts, &http.Client{Jar: jar}
}

func echoTarget(t *testing.T) *httptest.Server {
	t.Helper()

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hello":"world"}`))
	}))
	t.Cleanup(target.Close)
	return target
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestProbeEndpoint(t *testing.T) {
	ts, client := setupTestServer(t)
	target := echoTarget(t)

	form := url.Values{
		"url":    {target.URL},
		"method": {"GET"},
	}
	resp, err := client.PostForm(ts.URL+"/api/hurls", form)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	result := decodeJSON[api.ProbeResponse](t, resp)
	if result.HurlID == "" {
		t.Error("no hurl id in probe response")
	}
	if !strings.Contains(result.Header, "<span class='nf'>HTTP/1.1 200 OK</span>") {
		t.Errorf("header pane = %q", result.Header)
	}
	if !strings.HasPrefix(result.Body, "<div class='highlight'><pre>") {
		t.Errorf("body pane not highlighted: %q", result.Body)
	}
	if !strings.Contains(result.Request, "GET / HTTP/1.1") {
		t.Errorf("request trace = %q", result.Request)
	}
}

func TestProbeEndpointMissingURL(t *testing.T) {
	ts, client := setupTestServer(t)

	resp, err := client.PostForm(ts.URL+"/api/hurls", url.Values{"method": {"GET"}})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	result := decodeJSON[api.ErrorResponse](t, resp)
	if result.Error == "" {
		t.Error("no error message")
	}
}

func TestProbeEndpointTransportFailure(t *testing.T) {
	ts, client := setupTestServer(t)

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	resp, err := client.PostForm(ts.URL+"/api/hurls", url.Values{"url": {deadURL}})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	// Transport failures are a rendered outcome, not an HTTP error.
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	result := decodeJSON[api.ErrorResponse](t, resp)
	if !strings.HasPrefix(result.Error, "error: ") {
		t.Errorf("error = %q, want 'error: ' prefix", result.Error)
	}
}

func TestGetHurl(t *testing.T) {
	ts, client := setupTestServer(t)
	target := echoTarget(t)

	form := url.Values{"url": {target.URL}}
	resp, err := client.PostForm(ts.URL+"/api/hurls", form)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	saved := decodeJSON[api.ProbeResponse](t, resp)

	resp, err = client.Get(ts.URL + "/api/hurls/" + saved.HurlID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	rec := decodeJSON[api.HurlResponse](t, resp)
	if rec.ID != saved.HurlID {
		t.Errorf("id = %q, want %q", rec.ID, saved.HurlID)
	}
	if got := rec.Params["url"]; len(got) != 1 || got[0] != target.URL {
		t.Errorf("stored url = %v, want %q", got, target.URL)
	}
}

func TestGetHurlNotFound(t *testing.T) {
	ts, client := setupTestServer(t)

	resp, err := client.Get(ts.URL + "/api/hurls/ffffffffffffffffffffffffffffffffffffffff")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSignUpProbeAndList(t *testing.T) {
	ts, client := setupTestServer(t)
	target := echoTarget(t)

	resp, err := client.PostForm(ts.URL+"/api/signup", url.Values{
		"email":    {"a@example.test"},
		"password": {"secret"},
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	signed := decodeJSON[api.SignResponse](t, resp)
	if !signed.Success {
		t.Fatal("signup did not succeed")
	}

	// The cookie jar carries the session, so this probe has an owner.
	resp, err = client.PostForm(ts.URL+"/api/hurls", url.Values{"url": {target.URL}})
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	saved := decodeJSON[api.ProbeResponse](t, resp)

	resp, err = client.Get(ts.URL + "/api/hurls")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	list := decodeJSON[api.ListHurlsResponse](t, resp)
	if len(list.Hurls) != 1 || list.Hurls[0] != saved.HurlID {
		t.Errorf("saved list = %v, want [%s]", list.Hurls, saved.HurlID)
	}
}

func TestListHurlsRequiresSession(t *testing.T) {
	ts, client := setupTestServer(t)

	resp, err := client.Get(ts.URL + "/api/hurls")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSignInWrongPassword(t *testing.T) {
	ts, client := setupTestServer(t)

	if _, err := client.PostForm(ts.URL+"/api/signup", url.Values{
		"email":    {"a@example.test"},
		"password": {"secret"},
	}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	resp, err := client.PostForm(ts.URL+"/api/signin", url.Values{
		"email":    {"a@example.test"},
		"password": {"wrong"},
	})
	if err != nil {
		t.Fatalf("signin: %v", err)
	}

	result := decodeJSON[api.ErrorResponse](t, resp)
	if result.Error != "incorrect email or password" {
		t.Errorf("error = %q", result.Error)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	ts, client := setupTestServer(t)

	form := url.Values{"email": {"a@example.test"}, "password": {"secret"}}
	if _, err := client.PostForm(ts.URL+"/api/signup", form); err != nil {
		t.Fatalf("signup: %v", err)
	}

	resp, err := client.PostForm(ts.URL+"/api/signup", form)
	if err != nil {
		t.Fatalf("second signup: %v", err)
	}
	result := decodeJSON[api.ErrorResponse](t, resp)
	if result.Error == "" {
		t.Error("duplicate signup accepted")
	}
}

func TestSignOut(t *testing.T) {
	ts, client := setupTestServer(t)

	if _, err := client.PostForm(ts.URL+"/api/signup", url.Values{
		"email":    {"a@example.test"},
		"password": {"secret"},
	}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	resp, err := client.PostForm(ts.URL+"/api/signout", nil)
	if err != nil {
		t.Fatalf("signout: %v", err)
	}
	signed := decodeJSON[api.SignResponse](t, resp)
	if !signed.Success {
		t.Error("signout did not succeed")
	}

	resp, err = client.Get(ts.URL + "/api/hurls")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status after signout = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

// failingStore simulates the backing store being unreachable.
type failingStore struct{}

func (failingStore) Get(key string) ([]byte, error)     { return nil, errors.New("store offline") }
func (failingStore) Set(key string, value []byte) error { return errors.New("store offline") }
func (failingStore) Delete(key string) error            { return errors.New("store offline") }

func setupFailingServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()

	logger := zap.NewNop()
	srv := &Server{
		Executor: &probe.Executor{Logger: logger},
		Hurls:    &hurls.Store{KV: failingStore{}, Logger: logger},
		Users:    &user.Store{KV: failingStore{}},
		Sessions: &session.Manager{KV: failingStore{}},
		Logger:   logger,
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return ts, &http.Client{}
}

func assertStorageError(t *testing.T, resp *http.Response) {
	t.Helper()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	result := decodeJSON[api.ErrorResponse](t, resp)
	if result.Error != "storage error" {
		t.Errorf("error = %q, want %q", result.Error, "storage error")
	}
}

func TestProbeStoreUnavailable(t *testing.T) {
	ts, client := setupFailingServer(t)
	target := echoTarget(t)

	// The probe itself succeeds; persisting the exercise cannot.
	resp, err := client.PostForm(ts.URL+"/api/hurls", url.Values{"url": {target.URL}})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	assertStorageError(t, resp)
}

func TestListHurlsStoreUnavailable(t *testing.T) {
	ts, client := setupFailingServer(t)

	// A session cookie forces the lookup to touch the store.
	req, err := http.NewRequest("GET", ts.URL+"/api/hurls", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "somesession"})

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	assertStorageError(t, resp)
}

func TestGetHurlStoreUnavailable(t *testing.T) {
	ts, client := setupFailingServer(t)

	resp, err := client.Get(ts.URL + "/api/hurls/deadbeef")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	assertStorageError(t, resp)
}

func TestSignInStoreUnavailable(t *testing.T) {
	ts, client := setupFailingServer(t)

	resp, err := client.PostForm(ts.URL+"/api/signin", url.Values{
		"email":    {"a@example.test"},
		"password": {"secret"},
	})
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	assertStorageError(t, resp)
}

func TestSignOutStoreUnavailable(t *testing.T) {
	ts, client := setupFailingServer(t)

	req, err := http.NewRequest("POST", ts.URL+"/api/signout", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "somesession"})

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	assertStorageError(t, resp)
}
