package model

import "time"

// Booking — запись об участии пользователя в активности.
type Booking struct {
	ID         string    `json:"id"`
	ActivityID string    `json:"activityId"`
	UserID     string    `json:"userId"`
	Status     string    `json:"status"` // confirmed | cancelled
	CreatedAt  time.Time `json:"createdAt"`
}

const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)
