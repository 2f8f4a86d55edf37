package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeSession записывает обращения fetcher-а к контроллеру сессии.
type fakeSession struct {
	mu          sync.Mutex
	token       string
	refreshed   string // токен после успешного refresh
	refreshOK   bool
	refreshes   int
	forcedOut   int
}

func (f *fakeSession) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeSession) Refresh(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshOK {
		f.token = f.refreshed
	}
	return f.refreshOK
}

func (f *fakeSession) ForceLogout(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forcedOut++
	f.token = ""
}

func TestClientDoSuccess(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	sess := &fakeSession{token: "tok1"}
	c := NewClient(srv.URL, sess)

	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.JSON(context.Background(), http.MethodGet, "/ping", nil, &out); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if !out.OK {
		t.Error("expected decoded body")
	}
	if gotAuth != "Bearer tok1" {
		t.Errorf("Authorization = %q, want Bearer tok1", gotAuth)
	}
	if sess.refreshes != 0 || sess.forcedOut != 0 {
		t.Errorf("session touched on success: refreshes=%d forcedOut=%d", sess.refreshes, sess.forcedOut)
	}
}

func TestClientDoNon401PassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"activity not found"}`))
	}))
	defer srv.Close()

	sess := &fakeSession{token: "tok1"}
	c := NewClient(srv.URL, sess)

	err := c.JSON(context.Background(), http.MethodGet, "/activity/nope", nil, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusNotFound || se.Message != "activity not found" {
		t.Errorf("unexpected error: %+v", se)
	}
	if sess.refreshes != 0 {
		t.Errorf("refresh attempted on %d, want only on 401", se.StatusCode)
	}
}

func TestClientDoRefreshRetryOnce(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := r.Header.Get("Authorization")
		calls = append(calls, tok)
		if tok != "Bearer tok2" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	sess := &fakeSession{token: "tok1", refreshOK: true, refreshed: "tok2"}
	c := NewClient(srv.URL, sess)

	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.JSON(context.Background(), http.MethodGet, "/ping", nil, &out); err != nil {
		t.Fatalf("JSON after refresh: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("server saw %d requests, want 2", len(calls))
	}
	if calls[0] != "Bearer tok1" || calls[1] != "Bearer tok2" {
		t.Errorf("tokens per request: %v", calls)
	}
	if sess.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", sess.refreshes)
	}
	if sess.forcedOut != 0 {
		t.Errorf("forced logout on recovered session")
	}
}

func TestClientDoSecond401IsTerminal(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer srv.Close()

	sess := &fakeSession{token: "tok1", refreshOK: true, refreshed: "tok2"}
	c := NewClient(srv.URL, sess)

	_, err := c.Do(context.Background(), http.MethodGet, "/ping", nil)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if requests != 2 {
		t.Errorf("server saw %d requests, want exactly 2", requests)
	}
	if sess.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", sess.refreshes)
	}
	if sess.forcedOut != 1 {
		t.Errorf("forcedOut = %d, want 1", sess.forcedOut)
	}
}

func TestClientDoFailedRefreshNoRetry(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer srv.Close()

	sess := &fakeSession{token: "tok1", refreshOK: false}
	c := NewClient(srv.URL, sess)

	_, err := c.Do(context.Background(), http.MethodPost, "/ping", map[string]string{"a": "b"})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if requests != 1 {
		t.Errorf("server saw %d requests, want 1: no retry without fresh tokens", requests)
	}
	if sess.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", sess.refreshes)
	}
	if sess.forcedOut != 1 {
		t.Errorf("forcedOut = %d, want 1", sess.forcedOut)
	}
}

func TestClientDoBodyResentOnRetry(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 256)
		n, _ := r.Body.Read(buf)
		bodies = append(bodies, string(buf[:n]))
		if r.Header.Get("Authorization") != "Bearer tok2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	sess := &fakeSession{token: "tok1", refreshOK: true, refreshed: "tok2"}
	c := NewClient(srv.URL, sess)

	if err := c.JSON(context.Background(), http.MethodPost, "/ping", map[string]string{"text": "hi"}, nil); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if len(bodies) != 2 {
		t.Fatalf("server saw %d requests, want 2", len(bodies))
	}
	if bodies[0] != bodies[1] {
		t.Errorf("retry body differs: %q vs %q", bodies[0], bodies[1])
	}
}
