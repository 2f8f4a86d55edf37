package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/drox/internal/logger"
	"github.com/drox/internal/middleware"
	"github.com/drox/internal/model"
	"github.com/drox/internal/repository"
)

const (
	defaultActivityPageSize = 50
	maxActivityPageSize     = 200
)

type ActivityHandler struct {
	activityRepo *repository.ActivityRepository
}

func NewActivityHandler(activityRepo *repository.ActivityRepository) *ActivityHandler {
	return &ActivityHandler{activityRepo: activityRepo}
}

// List — лента активностей, свежие первыми. Пагинация: ?limit=&offset=.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultActivityPageSize)
	if limit < 1 || limit > maxActivityPageSize {
		limit = defaultActivityPageSize
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	list, err := h.activityRepo.List(r.Context(), limit, offset)
	if err != nil {
		logger.Errorf("activity list: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load activities")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := h.activityRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "activity not found")
			return
		}
		logger.Errorf("activity get %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load activity")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Hosted — активности, созданные текущим пользователем.
func (h *ActivityHandler) Hosted(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	list, err := h.activityRepo.ListByCreator(r.Context(), userID)
	if err != nil {
		logger.Errorf("activity hosted user=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to load activities")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	var req model.CreateActivityPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title required")
		return
	}
	if req.Location.Name == "" {
		writeError(w, http.StatusBadRequest, "location required")
		return
	}
	if req.IsPaid && req.Fee <= 0 {
		writeError(w, http.StatusBadRequest, "fee required for paid activity")
		return
	}
	now := time.Now().UTC()
	a := &model.Activity{
		ID:              uuid.New().String(),
		Title:           req.Title,
		Description:     strings.TrimSpace(req.Description),
		IsPaid:          req.IsPaid,
		Fee:             req.Fee,
		Location:        req.Location,
		Images:          req.Images,
		CreatedByUserID: userID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if a.Images == nil {
		a.Images = []string{}
	}
	if req.Payment != nil {
		a.Currency = req.Payment.Currency
	}
	if err := h.activityRepo.Create(r.Context(), a); err != nil {
		logger.Errorf("activity create user=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to create activity")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.activityRepo.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "activity not found")
			return
		}
		logger.Errorf("activity delete %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to delete activity")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
