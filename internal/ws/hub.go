// Package ws — чат активности поверх WebSocket: комната на активность,
// сообщения сохраняются в Postgres и рассылаются участникам комнаты.
package ws

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/drox/internal/logger"
	"github.com/drox/internal/model"
	"github.com/drox/internal/repository"
)

const maxTextLen = 2000

type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Client]struct{} // activityID -> clients
	total    int
	maxConns int
	msgRepo  *repository.MessageRepository
	userRepo *repository.UserRepository

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(msgRepo *repository.MessageRepository, userRepo *repository.UserRepository, maxConns int) *Hub {
	if maxConns <= 0 {
		maxConns = 10000
	}
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		maxConns:   maxConns,
		msgRepo:    msgRepo,
		userRepo:   userRepo,
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) shutdown() {
	// Клиенты собираются под локом; сетевой I/O — вне его.
	h.mu.Lock()
	all := make([]*Client, 0, h.total)
	for _, clients := range h.rooms {
		for c := range clients {
			all = append(all, c)
		}
	}
	h.rooms = make(map[string]map[*Client]struct{})
	h.total = 0
	h.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
	for _, c := range all {
		c.Wait()
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if h.total >= h.maxConns {
		h.mu.Unlock()
		logger.Errorf("ws connection limit reached (%d), rejecting user=%s", h.maxConns, c.userID)
		c.Close()
		return
	}
	if _, ok := h.rooms[c.activityID]; !ok {
		h.rooms[c.activityID] = make(map[*Client]struct{})
	}
	h.rooms[c.activityID][c] = struct{}{}
	h.total++
	h.mu.Unlock()
	logger.Infof("ws: user=%s подключился к чату activity=%s", c.userID, c.activityID)
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if clients, ok := h.rooms[c.activityID]; ok {
		if _, found := clients[c]; found {
			delete(clients, c)
			h.total--
			if len(clients) == 0 {
				delete(h.rooms, c.activityID)
			}
		}
	}
	h.mu.Unlock()
	c.Close()
}

// HandleMessage обрабатывает входящее сообщение: сохраняет и рассылает комнате.
func (h *Hub) HandleMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	if msg.Type != "message" {
		h.sendToClient(c, OutgoingMessage{Type: "error", Error: "unknown message type"})
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if len(text) > maxTextLen {
		h.sendToClient(c, OutgoingMessage{Type: "error", Error: "message too long"})
		return
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m := &model.Message{
		ID:         uuid.New().String(),
		ActivityID: c.activityID,
		UserID:     c.userID,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.msgRepo.Create(saveCtx, m); err != nil {
		logger.Errorf("ws save message user=%s: %v", c.userID, err)
		h.sendToClient(c, OutgoingMessage{Type: "error", Error: "failed to save message"})
		return
	}
	if u, err := h.userRepo.GetByID(saveCtx, c.userID); err == nil {
		m.UserName = u.Name
	}
	h.broadcast(c.activityID, OutgoingMessage{Type: "message", Message: m})
}

func (h *Hub) broadcast(activityID string, msg OutgoingMessage) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[activityID]))
	for c := range h.rooms[activityID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, msg)
	}
}

// sendToClient не блокируется: при переполненном буфере клиент отключается.
func (h *Hub) sendToClient(c *Client, msg OutgoingMessage) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		logger.Errorf("ws send buffer full, dropping client user=%s", c.userID)
		go c.Close()
	}
}
