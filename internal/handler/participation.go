package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/drox/internal/logger"
	"github.com/drox/internal/middleware"
	"github.com/drox/internal/model"
	"github.com/drox/internal/push"
	"github.com/drox/internal/repository"
)

type ParticipationHandler struct {
	participationRepo *repository.ParticipationRepository
	activityRepo      *repository.ActivityRepository
	userRepo          *repository.UserRepository
	notifier          *push.Notifier
}

func NewParticipationHandler(
	participationRepo *repository.ParticipationRepository,
	activityRepo *repository.ActivityRepository,
	userRepo *repository.UserRepository,
	notifier *push.Notifier,
) *ParticipationHandler {
	return &ParticipationHandler{
		participationRepo: participationRepo,
		activityRepo:      activityRepo,
		userRepo:          userRepo,
		notifier:          notifier,
	}
}

// Join создаёт бронь текущего пользователя на активность и уведомляет хоста.
func (h *ParticipationHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	activityID := chi.URLParam(r, "id")
	activity, err := h.activityRepo.GetByID(r.Context(), activityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "activity not found")
			return
		}
		logger.Errorf("join: activity %s: %v", activityID, err)
		writeError(w, http.StatusInternalServerError, "failed to join")
		return
	}
	if activity.CreatedByUserID == userID {
		writeError(w, http.StatusConflict, "cannot join own activity")
		return
	}
	booking := &model.Booking{
		ID:         uuid.New().String(),
		ActivityID: activityID,
		UserID:     userID,
		Status:     model.BookingConfirmed,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.participationRepo.Create(r.Context(), booking); err != nil {
		if errors.Is(err, repository.ErrAlreadyBooked) {
			writeError(w, http.StatusConflict, "already joined")
			return
		}
		logger.Errorf("join: create booking %s/%s: %v", activityID, userID, err)
		writeError(w, http.StatusInternalServerError, "failed to join")
		return
	}
	// Хост получает пуш о новом участнике; ответ клиенту не ждёт отправки.
	joinerName := ""
	if u, err := h.userRepo.GetByID(r.Context(), userID); err == nil {
		joinerName = u.Name
	}
	title := "Новый участник"
	body := activity.Title
	if joinerName != "" {
		body = joinerName + " присоединился: " + activity.Title
	}
	h.notifier.NotifyAsync(activity.CreatedByUserID, title, body, map[string]string{"activityId": activityID})

	writeJSON(w, http.StatusCreated, booking)
}

// CheckStatus — участвует ли текущий пользователь в активности.
func (h *ParticipationHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	activityID := chi.URLParam(r, "id")
	booking, err := h.participationRepo.Get(r.Context(), activityID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]bool{"hasJoined": false})
			return
		}
		logger.Errorf("check-status %s/%s: %v", activityID, userID, err)
		writeError(w, http.StatusInternalServerError, "failed to check status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"hasJoined": booking.Status == model.BookingConfirmed})
}

// MyBookings — все подтверждённые брони текущего пользователя.
func (h *ParticipationHandler) MyBookings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	list, err := h.participationRepo.ListForUser(r.Context(), userID)
	if err != nil {
		logger.Errorf("check-all-bookings user=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to load bookings")
		return
	}
	if list == nil {
		list = []*model.Booking{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Cancel отменяет бронь текущего пользователя.
func (h *ParticipationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	activityID := chi.URLParam(r, "id")
	if err := h.participationRepo.Cancel(r.Context(), activityID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		logger.Errorf("cancel booking %s/%s: %v", activityID, userID, err)
		writeError(w, http.StatusInternalServerError, "failed to cancel")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
