package model

import "time"

// Location — место проведения активности (совместимо с картой на клиенте).
type Location struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

type Activity struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	IsPaid          bool      `json:"isPaid"`
	Fee             float64   `json:"fee"`
	Currency        string    `json:"currency,omitempty"`
	Location        Location  `json:"location"`
	Images          []string  `json:"images"`
	CreatedByUserID string    `json:"createdByUserId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// CreateActivityPayload — тело POST /activity (payment опционален: флоу и валюта платежа).
type CreateActivityPayload struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsPaid      bool      `json:"isPaid"`
	Fee         float64   `json:"fee,omitempty"`
	Payment     *Payment  `json:"payment,omitempty"`
	Location    Location  `json:"location"`
	Images      []string  `json:"images"`
}

type Payment struct {
	Flow     string `json:"flow"`
	Currency string `json:"currency"`
}
