package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Поле кода в verify-otp называется "otp": сервер другое имя не примет.
func TestVerifyOTPWireFormat(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/verify-otp" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(AuthResult{AccessToken: "acc", RefreshToken: "ref"})
	}))
	defer srv.Close()

	res, err := NewAuthClient(srv.URL).VerifyOTP(context.Background(), "+79991234567", "123456")
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if got["otp"] != "123456" {
		t.Errorf(`body = %v, want the code under "otp"`, got)
	}
	if got["phone"] != "+79991234567" {
		t.Errorf(`body = %v, want the phone under "phone"`, got)
	}
	if res.AccessToken != "acc" || res.RefreshToken != "ref" {
		t.Errorf("result = %+v", res)
	}
}
