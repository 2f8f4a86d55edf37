package memory

import (
	"context"
	"sync"
	"time"
)

const (
	otpTTL             = 300 * time.Second
	otpRateLimitWindow = 600 * time.Second
	otpRateLimitMax    = 10
)

type item struct {
	val string
	exp time.Time
}

type Client struct {
	mu    sync.RWMutex
	otp   map[string]item
	limit map[string][]time.Time
}

func New() *Client {
	return &Client{
		otp:   make(map[string]item),
		limit: make(map[string][]time.Time),
	}
}

func (c *Client) Close() error { return nil }

func (c *Client) SetOTP(ctx context.Context, phone, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.otp[phone] = item{val: code, exp: time.Now().Add(otpTTL)}
	return nil
}

func (c *Client) GetOTP(ctx context.Context, phone string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.otp[phone]
	if !ok || time.Now().After(v.exp) {
		return "", nil
	}
	return v.val, nil
}

func (c *Client) GetOTPTTL(ctx context.Context, phone string) (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.otp[phone]
	if !ok || time.Now().After(v.exp) {
		return 0, nil
	}
	d := time.Until(v.exp)
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

func (c *Client) DeleteOTP(ctx context.Context, phone string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.otp, phone)
	return nil
}

func (c *Client) CheckRateLimit(ctx context.Context, phone string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	cut := now.Add(-otpRateLimitWindow)
	slice := c.limit[phone]
	var kept []time.Time
	for _, t := range slice {
		if t.After(cut) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= otpRateLimitMax {
		return false, nil
	}
	kept = append(kept, now)
	c.limit[phone] = kept
	return true, nil
}
