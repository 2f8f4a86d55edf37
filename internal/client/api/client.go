// Package api — HTTP-клиенты DROX API: авторизованный fetcher с одной
// попыткой refresh-and-retry на 401 и типизированные клиенты поверх него.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrSessionExpired возвращается, когда 401 не излечивается обновлением
// токена: сессия мертва, состояние клиента сброшено в "разлогинен".
var ErrSessionExpired = errors.New("session expired")

// TokenSource — контроллер сессии глазами fetcher-а. Реализуется
// session.Session; интерфейс разрывает цикл пакетов и оставляет
// единственного писателя состояния сессии.
type TokenSource interface {
	// AccessToken возвращает текущий access-токен или "".
	AccessToken() string
	// Refresh пытается обновить пару токенов. false — сессия не спасена.
	Refresh(ctx context.Context) bool
	// ForceLogout сбрасывает состояние после терминального 401.
	ForceLogout(ctx context.Context)
}

// Client выполняет авторизованные запросы к API.
type Client struct {
	baseURL    string
	session    TokenSource
	httpClient *http.Client
}

func NewClient(baseURL string, session TokenSource) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		session:    session,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Do выполняет запрос с bearer-токеном. body (если не nil) сериализуется в
// JSON. Любой статус, кроме 401, отдаётся вызывающему как есть. Первый 401
// запускает обновление токена и ровно один повтор; 401 после повтора или
// неудачное обновление — принудительный разлогин и ErrSessionExpired.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
	}
	return c.do(ctx, method, path, payload, false)
}

// do — внутренний проход с явным флагом retried: повтор после refresh
// выполняется не более одного раза на логический вызов.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, retried bool) (*http.Response, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.session.AccessToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if retried || !c.session.Refresh(ctx) {
		c.session.ForceLogout(ctx)
		return nil, ErrSessionExpired
	}
	return c.do(ctx, method, path, payload, true)
}

// JSON выполняет запрос и декодирует успешный ответ в out (nil — тело не нужно).
// Неуспешный статус превращается в ошибку с текстом из {"error": ...}.
func (c *Client) JSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StatusError — неуспешный HTTP-статус с текстом ошибки сервера.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: %d", e.StatusCode)
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &body)
	return &StatusError{StatusCode: resp.StatusCode, Message: body.Error}
}
