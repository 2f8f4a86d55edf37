package ws

import "github.com/drox/internal/model"

// IncomingMessage — сообщение от клиента в чат активности.
type IncomingMessage struct {
	Type string `json:"type"` // message
	Text string `json:"text"`
}

// OutgoingMessage — сообщение клиенту.
type OutgoingMessage struct {
	Type    string         `json:"type"` // message | error
	Message *model.Message `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
}
