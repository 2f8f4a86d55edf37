package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/drox/internal/client/api"
	"github.com/drox/internal/client/tokenstore"
	"github.com/drox/internal/model"
)

func fullProfile() model.Profile {
	return model.Profile{
		ID:          "u1",
		Phone:       "+79990000001",
		Name:        "Мария",
		IsActive:    true,
		HasPin:      true,
		IsOnboarded: true,
	}
}

// fakeAPI поднимает httptest-сервер с /user/me и /auth/refresh.
type fakeAPI struct {
	srv *httptest.Server

	validAccess  string
	validRefresh string
	nextAccess   string
	nextRefresh  string
	profile      model.Profile

	meCalls      int
	refreshCalls int
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		validAccess:  "acc1",
		validRefresh: "ref1",
		nextAccess:   "acc2",
		nextRefresh:  "ref2",
		profile:      fullProfile(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/me", func(w http.ResponseWriter, r *http.Request) {
		f.meCalls++
		if r.Header.Get("Authorization") != "Bearer "+f.validAccess {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		json.NewEncoder(w).Encode(f.profile)
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls++
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.RefreshToken != f.validRefresh {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid refresh token"}`))
			return
		}
		f.validAccess, f.validRefresh = f.nextAccess, f.nextRefresh
		json.NewEncoder(w).Encode(model.TokenPair{
			AccessToken:  f.validAccess,
			RefreshToken: f.validRefresh,
		})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func newTestSession(t *testing.T) (*Session, *fakeAPI, *tokenstore.MemoryStore) {
	t.Helper()
	f := newFakeAPI(t)
	store := tokenstore.NewMemoryStore()
	return New(store, api.NewAuthClient(f.srv.URL)), f, store
}

func TestBootstrapWithoutTokens(t *testing.T) {
	s, f, _ := newTestSession(t)

	if got := s.Bootstrap(context.Background()); got != RouteLogin {
		t.Errorf("route = %v, want login", got)
	}
	if f.meCalls != 0 || f.refreshCalls != 0 {
		t.Errorf("network touched with empty store: me=%d refresh=%d", f.meCalls, f.refreshCalls)
	}
}

func TestBootstrapValidTokensLandsOnPinUnlock(t *testing.T) {
	s, _, store := newTestSession(t)
	store.Save("acc1", "ref1")

	if got := s.Bootstrap(context.Background()); got != RoutePinUnlock {
		t.Errorf("route = %v, want pin-unlock", got)
	}
	if s.Unlocked() {
		t.Error("bootstrap must not unlock the session")
	}
	if u := s.User(); u == nil || u.ID != "u1" {
		t.Errorf("user = %+v, want profile u1", u)
	}
}

func TestBootstrapExpiredAccessRefreshes(t *testing.T) {
	s, f, store := newTestSession(t)
	store.Save("stale", "ref1")

	if got := s.Bootstrap(context.Background()); got != RoutePinUnlock {
		t.Errorf("route = %v, want pin-unlock", got)
	}
	if f.refreshCalls != 1 {
		t.Errorf("refreshCalls = %d, want 1", f.refreshCalls)
	}
	if store.Access() != "acc2" || store.Refresh() != "ref2" {
		t.Errorf("store = (%q, %q), want rotated pair", store.Access(), store.Refresh())
	}
}

func TestBootstrapDeadSessionClearsTokens(t *testing.T) {
	s, _, store := newTestSession(t)
	store.Save("stale", "revoked")

	if got := s.Bootstrap(context.Background()); got != RouteLogin {
		t.Errorf("route = %v, want login", got)
	}
	if store.Access() != "" || store.Refresh() != "" {
		t.Error("tokens must be cleared after failed bootstrap")
	}
	if s.User() != nil {
		t.Error("user must be nil after failed bootstrap")
	}
}

func TestLoginUnlocksAndPersists(t *testing.T) {
	s, _, store := newTestSession(t)

	got, err := s.Login(context.Background(), "acc1", "ref1", fullProfile())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got != RouteHome {
		t.Errorf("route = %v, want home", got)
	}
	if !s.Unlocked() {
		t.Error("login must unlock the session")
	}
	if store.Access() != "acc1" || store.Refresh() != "ref1" {
		t.Error("login must persist the token pair")
	}
}

func TestLoginRoutesNewUserToPinSetup(t *testing.T) {
	s, _, _ := newTestSession(t)

	user := fullProfile()
	user.HasPin = false
	user.IsOnboarded = false
	got, err := s.Login(context.Background(), "acc1", "ref1", user)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got != RoutePinSetup {
		t.Errorf("route = %v, want pin-setup", got)
	}
}

func TestUnlockWithPIN(t *testing.T) {
	s, _, store := newTestSession(t)
	store.Save("acc1", "ref1")
	s.Bootstrap(context.Background())

	if got := s.UnlockWithPIN(); got != RouteHome {
		t.Errorf("route = %v, want home", got)
	}
	if !s.Unlocked() {
		t.Error("UnlockWithPIN must unlock")
	}
}

func TestUpdateUserAndRoute(t *testing.T) {
	s, _, _ := newTestSession(t)
	user := fullProfile()
	user.IsOnboarded = false
	if _, err := s.Login(context.Background(), "acc1", "ref1", user); err != nil {
		t.Fatal(err)
	}

	if got := s.Route(); got != RouteOnboarding {
		t.Errorf("route = %v, want onboarding", got)
	}
	user.IsOnboarded = true
	if got := s.UpdateUserAndRoute(user); got != RouteHome {
		t.Errorf("route after onboarding = %v, want home", got)
	}
}

func TestRefreshWithoutTokenSkipsNetwork(t *testing.T) {
	s, f, _ := newTestSession(t)

	if s.Refresh(context.Background()) {
		t.Error("refresh must fail without a refresh token")
	}
	if f.refreshCalls != 0 {
		t.Errorf("refreshCalls = %d, want 0", f.refreshCalls)
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	s, _, store := newTestSession(t)
	if _, err := s.Login(context.Background(), "acc1", "ref1", fullProfile()); err != nil {
		t.Fatal(err)
	}

	if !s.Refresh(context.Background()) {
		t.Fatal("refresh failed with a valid refresh token")
	}
	if store.Access() != "acc2" || store.Refresh() != "ref2" {
		t.Errorf("store = (%q, %q), want rotated pair", store.Access(), store.Refresh())
	}
	if s.AccessToken() != "acc2" {
		t.Errorf("AccessToken = %q, want acc2", s.AccessToken())
	}
}

func TestRefreshDoesNotUnlock(t *testing.T) {
	s, _, store := newTestSession(t)
	store.Save("acc1", "ref1")
	s.Bootstrap(context.Background())

	if !s.Refresh(context.Background()) {
		t.Fatal("refresh failed")
	}
	if s.Unlocked() {
		t.Error("silent refresh must not unlock the session")
	}
	if got := s.Route(); got != RoutePinUnlock {
		t.Errorf("route = %v, want pin-unlock", got)
	}
}

func TestRefreshRejectedLogsOut(t *testing.T) {
	s, _, store := newTestSession(t)
	if _, err := s.Login(context.Background(), "acc1", "garbage", fullProfile()); err != nil {
		t.Fatal(err)
	}

	if s.Refresh(context.Background()) {
		t.Error("refresh must fail for a revoked token")
	}
	if store.Access() != "" || store.Refresh() != "" {
		t.Error("tokens must be cleared after rejected refresh")
	}
	if got := s.Route(); got != RouteLogin {
		t.Errorf("route = %v, want login", got)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	s, _, store := newTestSession(t)
	if _, err := s.Login(context.Background(), "acc1", "ref1", fullProfile()); err != nil {
		t.Fatal(err)
	}

	if got := s.Logout(context.Background()); got != RouteLogin {
		t.Errorf("route = %v, want login", got)
	}
	if store.Access() != "" || store.Refresh() != "" {
		t.Error("tokens must be cleared on logout")
	}
	if s.User() != nil || s.Unlocked() {
		t.Error("state must be reset on logout")
	}
}

// brokenStore отказывает в записи: моделирует недоступное хранилище токенов.
type brokenStore struct {
	*tokenstore.MemoryStore
	failSave bool
}

func (b *brokenStore) Save(access, refresh string) error {
	if b.failSave {
		return errors.New("disk full")
	}
	return b.MemoryStore.Save(access, refresh)
}

func TestLoginSaveFailureCancelsLogin(t *testing.T) {
	f := newFakeAPI(t)
	store := &brokenStore{MemoryStore: tokenstore.NewMemoryStore(), failSave: true}
	s := New(store, api.NewAuthClient(f.srv.URL))

	route, err := s.Login(context.Background(), "acc1", "ref1", fullProfile())
	if err == nil {
		t.Fatal("expected an error when the token store rejects the write")
	}
	if route != RouteLogin {
		t.Errorf("route = %v, want login", route)
	}
	if s.AccessToken() != "" {
		t.Error("no in-memory token may survive a failed persist")
	}
	if s.User() != nil || s.Unlocked() {
		t.Error("state must be reset after a failed persist")
	}
}

func TestRefreshSaveFailureLogsOut(t *testing.T) {
	f := newFakeAPI(t)
	store := &brokenStore{MemoryStore: tokenstore.NewMemoryStore()}
	s := New(store, api.NewAuthClient(f.srv.URL))
	if _, err := s.Login(context.Background(), "acc1", "ref1", fullProfile()); err != nil {
		t.Fatal(err)
	}

	store.failSave = true
	if s.Refresh(context.Background()) {
		t.Error("refresh must fail when the rotated pair cannot be persisted")
	}
	if s.AccessToken() != "" || store.Access() != "" || store.Refresh() != "" {
		t.Error("memory and store must both be empty after the failed persist")
	}
	if got := s.Route(); got != RouteLogin {
		t.Errorf("route = %v, want login", got)
	}
}

func TestBootstrapKeepsAccessTokenInMemory(t *testing.T) {
	s, _, store := newTestSession(t)
	store.Save("acc1", "ref1")
	s.Bootstrap(context.Background())

	// Fetcher читает токен из контроллера, а не из хранилища.
	store.Clear()
	if got := s.AccessToken(); got != "acc1" {
		t.Errorf("AccessToken = %q, want the bootstrapped acc1", got)
	}
}
