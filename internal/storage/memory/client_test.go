package memory

import (
	"context"
	"testing"
)

func TestOTP_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := New()

	if got, _ := c.GetOTP(ctx, "+10000000001"); got != "" {
		t.Errorf("GetOTP до Set = %q, want пустую строку", got)
	}
	if err := c.SetOTP(ctx, "+10000000001", "123456"); err != nil {
		t.Fatalf("SetOTP: %v", err)
	}
	if got, _ := c.GetOTP(ctx, "+10000000001"); got != "123456" {
		t.Errorf("GetOTP = %q, want 123456", got)
	}
	if ttl, _ := c.GetOTPTTL(ctx, "+10000000001"); ttl <= 0 {
		t.Errorf("GetOTPTTL = %v, want > 0", ttl)
	}
	if err := c.DeleteOTP(ctx, "+10000000001"); err != nil {
		t.Fatalf("DeleteOTP: %v", err)
	}
	if got, _ := c.GetOTP(ctx, "+10000000001"); got != "" {
		t.Errorf("GetOTP после Delete = %q, want пустую строку", got)
	}
}

func TestCheckRateLimit(t *testing.T) {
	ctx := context.Background()
	c := New()
	for i := 0; i < otpRateLimitMax; i++ {
		ok, err := c.CheckRateLimit(ctx, "+10000000002")
		if err != nil || !ok {
			t.Fatalf("запрос %d: ok=%v err=%v", i+1, ok, err)
		}
	}
	ok, err := c.CheckRateLimit(ctx, "+10000000002")
	if err != nil {
		t.Fatalf("CheckRateLimit: %v", err)
	}
	if ok {
		t.Error("лимит не сработал после otpRateLimitMax запросов")
	}
	// Другой номер — отдельное окно
	if ok, _ := c.CheckRateLimit(ctx, "+10000000003"); !ok {
		t.Error("лимит общего окна затронул другой номер")
	}
}
