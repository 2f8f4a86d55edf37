package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/drox/internal/logger"
	"github.com/drox/internal/middleware"
	"github.com/drox/internal/repository"
)

type UserHandler struct {
	userRepo *repository.UserRepository
}

func NewUserHandler(userRepo *repository.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user.ToProfile())
}

// parseDOB принимает дату рождения как "2006-01-02" или полный RFC3339.
func parseDOB(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type onboardingRequest struct {
	UserName  string  `json:"userName"`
	Bio       *string `json:"bio,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
	DOB       *string `json:"dob,omitempty"`
}

// CompleteOnboarding заполняет профиль и поднимает isOnboarded. Имя обязательно.
func (h *UserHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	var req onboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.UserName)
	if name == "" {
		writeError(w, http.StatusBadRequest, "userName required")
		return
	}
	upd := repository.ProfileUpdate{Name: &name, Bio: req.Bio, AvatarURL: req.AvatarURL}
	if req.DOB != nil {
		dob, err := parseDOB(*req.DOB)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dob format")
			return
		}
		upd.DOB = dob
	}
	user, err := h.userRepo.CompleteOnboarding(r.Context(), userID, upd)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		logger.Errorf("onboarding user=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}
	writeJSON(w, http.StatusOK, user.ToProfile())
}

type editProfileRequest struct {
	Name      *string `json:"name,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
	DOB       *string `json:"dob,omitempty"`
}

// EditProfile — частичное обновление: отсутствующие поля не меняются.
func (h *UserHandler) EditProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	var req editProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name cannot be empty")
		return
	}
	upd := repository.ProfileUpdate{Name: req.Name, Bio: req.Bio, AvatarURL: req.AvatarURL}
	if req.DOB != nil {
		dob, err := parseDOB(*req.DOB)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dob format")
			return
		}
		upd.DOB = dob
	}
	user, err := h.userRepo.UpdateProfile(r.Context(), userID, upd)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		logger.Errorf("edit-profile user=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}
	writeJSON(w, http.StatusOK, user.ToProfile())
}

// Reactivate снимает деактивацию аккаунта текущего пользователя.
func (h *UserHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.userRepo.SetDisabled(r.Context(), userID, false); err != nil {
		logger.Errorf("reactivate user=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to reactivate")
		return
	}
	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user.ToProfile())
}
