package api

import (
	"context"
	"net/http"

	"github.com/drox/internal/model"
)

// UserClient — профиль и PIN текущего пользователя (через авторизованный fetcher).
type UserClient struct {
	c *Client
}

func NewUserClient(c *Client) *UserClient {
	return &UserClient{c: c}
}

func (u *UserClient) Me(ctx context.Context) (*model.Profile, error) {
	var out model.Profile
	if err := u.c.JSON(ctx, http.MethodGet, "/user/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OnboardingPayload — поля первичного заполнения профиля. Имя обязательно.
type OnboardingPayload struct {
	UserName  string `json:"userName"`
	Bio       string `json:"bio,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	DOB       string `json:"dob,omitempty"` // "2006-01-02"
}

func (u *UserClient) CompleteOnboarding(ctx context.Context, p OnboardingPayload) (*model.Profile, error) {
	var out model.Profile
	if err := u.c.JSON(ctx, http.MethodPatch, "/user/onboarding", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EditProfilePayload — частичное обновление: nil-поля не меняются.
type EditProfilePayload struct {
	Name      *string `json:"name,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
	DOB       *string `json:"dob,omitempty"`
}

func (u *UserClient) EditProfile(ctx context.Context, p EditProfilePayload) (*model.Profile, error) {
	var out model.Profile
	if err := u.c.JSON(ctx, http.MethodPost, "/user/edit-profile", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *UserClient) SetPIN(ctx context.Context, pin string) error {
	return u.c.JSON(ctx, http.MethodPost, "/auth/set-pin", map[string]string{"pin": pin}, nil)
}

func (u *UserClient) Reactivate(ctx context.Context) (*model.Profile, error) {
	var out model.Profile
	if err := u.c.JSON(ctx, http.MethodPost, "/user/reactivate", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout отзывает сессию на сервере. Локальное состояние чистит контроллер.
func (u *UserClient) Logout(ctx context.Context) error {
	return u.c.JSON(ctx, http.MethodPost, "/auth/logout", nil, nil)
}
