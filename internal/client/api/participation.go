package api

import (
	"context"
	"net/http"

	"github.com/drox/internal/model"
)

// ParticipationClient — брони текущего пользователя.
type ParticipationClient struct {
	c *Client
}

func NewParticipationClient(c *Client) *ParticipationClient {
	return &ParticipationClient{c: c}
}

func (p *ParticipationClient) Join(ctx context.Context, activityID string) (*model.Booking, error) {
	var out model.Booking
	if err := p.c.JSON(ctx, http.MethodPost, "/participation/"+activityID+"/join", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *ParticipationClient) Cancel(ctx context.Context, activityID string) error {
	return p.c.JSON(ctx, http.MethodDelete, "/participation/"+activityID+"/join", nil, nil)
}

func (p *ParticipationClient) CheckStatus(ctx context.Context, activityID string) (bool, error) {
	var out struct {
		HasJoined bool `json:"hasJoined"`
	}
	if err := p.c.JSON(ctx, http.MethodGet, "/participation/"+activityID+"/check-status", nil, &out); err != nil {
		return false, err
	}
	return out.HasJoined, nil
}

// MyBookings — все подтверждённые брони.
func (p *ParticipationClient) MyBookings(ctx context.Context) ([]*model.Booking, error) {
	var out []*model.Booking
	if err := p.c.JSON(ctx, http.MethodGet, "/participation/check-all-bookings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
