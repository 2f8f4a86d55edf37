package storage

import (
	"context"
	"time"
)

// OTPStore — хранилище OTP-кодов и rate limit по номеру телефона.
// Реализации: redis.Client, memory.Client (для -dev без Redis).
type OTPStore interface {
	SetOTP(ctx context.Context, phone, code string) error
	GetOTP(ctx context.Context, phone string) (string, error)
	GetOTPTTL(ctx context.Context, phone string) (time.Duration, error)
	DeleteOTP(ctx context.Context, phone string) error
	CheckRateLimit(ctx context.Context, phone string) (allowed bool, err error)
	Close() error
}
