package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/drox/internal/model"
)

// AuthClient — клиенты auth-endpoint'ов до входа. Работает без fetcher-а:
// на этих маршрутах либо нет токена, либо (Me при bootstrap) токен передаётся
// явно и 401 обрабатывается вызывающим, а не pipeline-ом.
type AuthClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAuthClient(baseURL string) *AuthClient {
	return &AuthClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// AuthResult — ответ verify-otp и login-pin.
type AuthResult struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	User         model.Profile `json:"user"`
}

func (c *AuthClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *AuthClient) SendOTP(ctx context.Context, phone string) error {
	return c.post(ctx, "/auth/send-otp", map[string]string{"phone": phone}, nil)
}

func (c *AuthClient) VerifyOTP(ctx context.Context, phone, code string) (*AuthResult, error) {
	var out AuthResult
	if err := c.post(ctx, "/auth/verify-otp", map[string]string{"phone": phone, "otp": code}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *AuthClient) HasPIN(ctx context.Context, phone string) (exists, hasPin bool, err error) {
	var out struct {
		Exists bool `json:"exists"`
		HasPin bool `json:"hasPin"`
	}
	if err := c.post(ctx, "/auth/has-pin", map[string]string{"phone": phone}, &out); err != nil {
		return false, false, err
	}
	return out.Exists, out.HasPin, nil
}

func (c *AuthClient) LoginWithPIN(ctx context.Context, phone, pin string) (*AuthResult, error) {
	var out AuthResult
	if err := c.post(ctx, "/auth/login-pin", map[string]string{"phone": phone, "pin": pin}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshTokens меняет refresh-токен на новую пару.
func (c *AuthClient) RefreshTokens(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	var out model.TokenPair
	if err := c.post(ctx, "/auth/refresh", map[string]string{"refreshToken": refreshToken}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me запрашивает профиль с явным токеном. Используется только при bootstrap:
// контроллер сессии ещё не собран, refresh-and-retry здесь не нужен.
func (c *AuthClient) Me(ctx context.Context, accessToken string) (*model.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp)
	}
	var out model.Profile
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
