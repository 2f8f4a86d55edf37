package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/drox/internal/model"
)

// ActivityClient — лента и карточки активностей.
type ActivityClient struct {
	c *Client
}

func NewActivityClient(c *Client) *ActivityClient {
	return &ActivityClient{c: c}
}

func (a *ActivityClient) List(ctx context.Context) ([]*model.Activity, error) {
	var out []*model.Activity
	if err := a.c.JSON(ctx, http.MethodGet, "/activity", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Hosted — активности, созданные текущим пользователем.
func (a *ActivityClient) Hosted(ctx context.Context) ([]*model.Activity, error) {
	var out []*model.Activity
	if err := a.c.JSON(ctx, http.MethodGet, "/activity/user/activities", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *ActivityClient) Get(ctx context.Context, id string) (*model.Activity, error) {
	var out model.Activity
	if err := a.c.JSON(ctx, http.MethodGet, "/activity/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *ActivityClient) Create(ctx context.Context, p model.CreateActivityPayload) (*model.Activity, error) {
	var out model.Activity
	if err := a.c.JSON(ctx, http.MethodPost, "/activity", p, &out); err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	return &out, nil
}
