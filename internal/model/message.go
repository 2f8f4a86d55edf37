package model

import "time"

// Message — сообщение в чате активности.
type Message struct {
	ID         string    `json:"id"`
	ActivityID string    `json:"activityId"`
	UserID     string    `json:"userId"`
	UserName   string    `json:"userName,omitempty"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}
