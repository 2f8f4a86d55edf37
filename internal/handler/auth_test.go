package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/drox/internal/config"
	"github.com/drox/internal/model"
	"github.com/drox/internal/repository"
	"github.com/drox/internal/service"
	"github.com/drox/internal/sms"
	"github.com/drox/internal/storage/memory"
	"github.com/drox/internal/token"
)

type stubUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func (f *stubUserStore) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *stubUserStore) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *stubUserStore) GetByPhone(_ context.Context, phone string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *stubUserStore) SetPin(_ context.Context, userID, pinHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PinHash = pinHash
	return nil
}

func (f *stubUserStore) SetDisabled(_ context.Context, userID string, disabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if disabled {
		now := time.Now().UTC()
		u.DisabledAt = &now
	} else {
		u.DisabledAt = nil
	}
	return nil
}

type stubSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*model.RefreshSession
}

func (f *stubSessionStore) Create(_ context.Context, s *model.RefreshSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *stubSessionStore) GetByID(_ context.Context, id string) (*model.RefreshSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *stubSessionStore) Rotate(_ context.Context, id, jti, tokenHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.RevokedAt != nil {
		return repository.ErrNotFound
	}
	s.JTI = jti
	s.TokenHash = tokenHash
	s.ExpiresAt = expiresAt
	return nil
}

func (f *stubSessionStore) Revoke(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok && s.RevokedAt == nil {
		now := time.Now().UTC()
		s.RevokedAt = &now
	}
	return nil
}

func (f *stubSessionStore) RevokeAllForUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	for _, s := range f.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
		}
	}
	return nil
}

func newTestAuthHandler() (*AuthHandler, *memory.Client) {
	store := memory.New()
	tokens := token.NewProvider("test_secret", "drox-test", 15*time.Minute, 720*time.Hour)
	svc := service.NewAuthService(
		&stubUserStore{users: make(map[string]*model.User)},
		&stubSessionStore{sessions: make(map[string]*model.RefreshSession)},
		store, tokens, sms.NewSender(&config.SMSConfig{}),
	)
	return NewAuthHandler(svc), store
}

// Мобильный клиент шлёт код в поле "otp". Контракт зафиксирован тестом,
// чтобы переименование поля на одной из сторон не прошло незамеченным.
func TestVerifyOTP_AcceptsOTPField(t *testing.T) {
	h, store := newTestAuthHandler()
	const phone = "+79991234567"
	if err := store.SetOTP(context.Background(), phone, "123456"); err != nil {
		t.Fatal(err)
	}

	body := `{"phone":"` + phone + `","otp":"123456"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/verify-otp", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.VerifyOTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken  string        `json:"accessToken"`
		RefreshToken string        `json:"refreshToken"`
		User         model.Profile `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("expected a token pair in the response")
	}
	if resp.User.Phone != phone {
		t.Errorf("user.phone = %q, want %q", resp.User.Phone, phone)
	}
}

func TestVerifyOTP_WrongCodeRejected(t *testing.T) {
	h, store := newTestAuthHandler()
	const phone = "+79991234567"
	if err := store.SetOTP(context.Background(), phone, "123456"); err != nil {
		t.Fatal(err)
	}

	body := `{"phone":"` + phone + `","otp":"654321"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/verify-otp", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.VerifyOTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
