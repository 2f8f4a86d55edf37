package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/drox/internal/model"
)

// ChatClient — чат активности: история по REST, живые сообщения по WebSocket.
type ChatClient struct {
	c *Client
}

func NewChatClient(c *Client) *ChatClient {
	return &ChatClient{c: c}
}

func (ch *ChatClient) History(ctx context.Context, activityID string) ([]*model.Message, error) {
	var out []*model.Message
	if err := ch.c.JSON(ctx, http.MethodGet, "/activity/"+activityID+"/messages", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChatEvent — кадр от сервера.
type ChatEvent struct {
	Type    string         `json:"type"` // message | error
	Message *model.Message `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Conn — открытое соединение с чатом активности.
type Conn struct {
	ws *websocket.Conn
}

// Dial подключается к комнате активности. Токен передаётся query-параметром:
// WebSocket-клиенты не шлют Authorization при upgrade.
func (ch *ChatClient) Dial(ctx context.Context, activityID string) (*Conn, error) {
	base := ch.c.baseURL
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	u := base + "/activity/" + activityID + "/ws?token=" + url.QueryEscape(ch.c.session.AccessToken())

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		// Протухший токен лечится общим механизмом и одной повторной попыткой.
		if resp != nil && resp.StatusCode == http.StatusUnauthorized && ch.c.session.Refresh(ctx) {
			u = base + "/activity/" + activityID + "/ws?token=" + url.QueryEscape(ch.c.session.AccessToken())
			ws, resp2, err2 := websocket.DefaultDialer.DialContext(ctx, u, nil)
			if resp2 != nil && resp2.Body != nil {
				resp2.Body.Close()
			}
			if err2 != nil {
				return nil, err2
			}
			return &Conn{ws: ws}, nil
		}
		return nil, err
	}
	return &Conn{ws: ws}, nil
}

// Send отправляет текст в комнату.
func (c *Conn) Send(text string) error {
	return c.ws.WriteJSON(map[string]string{"type": "message", "text": text})
}

// Next блокируется до следующего кадра от сервера.
func (c *Conn) Next() (*ChatEvent, error) {
	var ev ChatEvent
	if err := c.ws.ReadJSON(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (c *Conn) Close() error {
	c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.ws.Close()
}
