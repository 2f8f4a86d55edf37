package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/drox/internal/logger"
	"github.com/drox/internal/middleware"
	"github.com/drox/internal/model"
	"github.com/drox/internal/repository"
	"github.com/drox/internal/ws"
)

const chatHistoryLimit = 100

type ChatHandler struct {
	hub            *ws.Hub
	msgRepo        *repository.MessageRepository
	activityRepo   *repository.ActivityRepository
	allowedOrigins string
}

// NewChatHandler создаёт обработчик чата активности. allowedOrigins — как в CORS (через запятую или "*").
func NewChatHandler(hub *ws.Hub, msgRepo *repository.MessageRepository, activityRepo *repository.ActivityRepository, allowedOrigins string) *ChatHandler {
	return &ChatHandler{
		hub:            hub,
		msgRepo:        msgRepo,
		activityRepo:   activityRepo,
		allowedOrigins: strings.TrimSpace(allowedOrigins),
	}
}

// History отдаёт последние сообщения чата активности.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	activityID := chi.URLParam(r, "id")
	if _, err := h.activityRepo.GetByID(r.Context(), activityID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "activity not found")
			return
		}
		logger.Errorf("chat history activity=%s: %v", activityID, err)
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	list, err := h.msgRepo.ListForActivity(r.Context(), activityID, chatHistoryLimit)
	if err != nil {
		logger.Errorf("chat history activity=%s: %v", activityID, err)
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	if list == nil {
		list = []*model.Message{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ChatHandler) checkOrigin(r *http.Request) bool {
	if h.allowedOrigins == "*" || h.allowedOrigins == "" {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	for _, o := range strings.Split(h.allowedOrigins, ",") {
		if strings.TrimSpace(o) == origin {
			return true
		}
	}
	return false
}

// ServeWS апгрейдит соединение и подключает клиента к комнате активности.
func (h *ChatHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	activityID := chi.URLParam(r, "id")
	if _, err := h.activityRepo.GetByID(r.Context(), activityID); err != nil {
		http.Error(w, "activity not found", http.StatusNotFound)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return h.checkOrigin(r) },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("ws upgrade: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := ws.NewClient(h.hub, conn, userID, activityID)
	client.Start(ctx, cancel)
	h.hub.Register(client)
}
