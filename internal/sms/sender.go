package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/drox/internal/config"
)

// Sender отправляет OTP через HTTP-шлюз SMS. Без api_key отправка отключена —
// auth-сервис в этом случае логирует код (режим разработки).
type Sender struct {
	cfg        *config.SMSConfig
	httpClient *http.Client
}

func NewSender(cfg *config.SMSConfig) *Sender {
	return &Sender{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured сообщает, настроен ли шлюз (есть ли api_key).
func (s *Sender) Configured() bool {
	return s.cfg.APIKey != ""
}

type sendRequest struct {
	To     string `json:"to"`
	From   string `json:"from,omitempty"`
	Text   string `json:"text"`
}

// SendOTP отправляет код на номер. Текст фиксированный, совпадает с TTL кода (5 минут).
func (s *Sender) SendOTP(ctx context.Context, to, code string) error {
	if !s.Configured() {
		return fmt.Errorf("sms: шлюз не настроен")
	}
	body, err := json.Marshal(sendRequest{
		To:   to,
		From: s.cfg.Sender,
		Text: fmt.Sprintf("Ваш код DROX: %s. Код действителен 5 минут.", code),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms send: %d %s", resp.StatusCode, bytes.TrimSpace(b))
	}
	return nil
}
