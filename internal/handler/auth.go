package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/drox/internal/logger"
	"github.com/drox/internal/middleware"
	"github.com/drox/internal/model"
	"github.com/drox/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type phoneRequest struct {
	Phone string `json:"phone"`
}

func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req phoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Phone == "" {
		writeError(w, http.StatusBadRequest, "phone required")
		return
	}
	if err := h.auth.SendOTP(r.Context(), req.Phone); err != nil {
		switch {
		case errors.Is(err, service.ErrRateLimitExceeded):
			writeError(w, http.StatusTooManyRequests, "too many requests, try again later")
		case errors.Is(err, service.ErrInvalidPhone):
			writeError(w, http.StatusBadRequest, "invalid phone format")
		default:
			logger.Errorf("send-otp failed: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to send code")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

// authResponse — ответ на verify-otp и login-pin: пара токенов + профиль.
type authResponse struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	User         model.Profile `json:"user"`
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, pair, err := h.auth.VerifyOTP(r.Context(), req.Phone, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidOTP):
			writeError(w, http.StatusUnauthorized, "invalid or expired code")
		case errors.Is(err, service.ErrUserDisabled):
			writeError(w, http.StatusForbidden, "account disabled")
		default:
			logger.Errorf("verify-otp failed: %v", err)
			writeError(w, http.StatusInternalServerError, "verification failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user.ToProfile(),
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRefresh):
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
		case errors.Is(err, service.ErrUserDisabled):
			writeError(w, http.StatusForbidden, "account disabled")
		default:
			logger.Errorf("refresh failed: %v", err)
			writeError(w, http.StatusInternalServerError, "refresh failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) HasPIN(w http.ResponseWriter, r *http.Request) {
	var req phoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	exists, hasPin, err := h.auth.HasPIN(r.Context(), req.Phone)
	if err != nil {
		logger.Errorf("has-pin failed: %v", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists, "hasPin": hasPin})
}

type loginPINRequest struct {
	Phone string `json:"phone"`
	Pin   string `json:"pin"`
}

func (h *AuthHandler) LoginWithPIN(w http.ResponseWriter, r *http.Request) {
	var req loginPINRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, pair, err := h.auth.LoginWithPIN(r.Context(), req.Phone, req.Pin)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPIN):
			writeError(w, http.StatusUnauthorized, "invalid phone or PIN")
		case errors.Is(err, service.ErrPinNotSet):
			writeError(w, http.StatusConflict, "PIN not set for this account")
		case errors.Is(err, service.ErrUserDisabled):
			writeError(w, http.StatusForbidden, "account disabled")
		default:
			logger.Errorf("login-pin failed: %v", err)
			writeError(w, http.StatusInternalServerError, "login failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user.ToProfile(),
	})
}

func (h *AuthHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	var req struct {
		Pin string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.auth.SetPIN(r.Context(), userID, req.Pin); err != nil {
		if errors.Is(err, service.ErrInvalidPIN) {
			writeError(w, http.StatusBadRequest, "PIN must be 6 digits")
			return
		}
		logger.Errorf("set-pin failed user=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to set PIN")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Me отдаёт профиль текущего пользователя. Маршрут продублирован как
// GET /auth/me (старые клиенты) и GET /user/me (канонический).
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	user, err := h.auth.Me(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user.ToProfile())
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	if err := h.auth.Logout(r.Context(), sessionID); err != nil {
		logger.Errorf("logout failed: %v", err)
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
