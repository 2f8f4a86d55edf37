package model

import "time"

// User — строка таблицы users. PIN и флаг отключения наружу не отдаются,
// клиент видит только Profile.
type User struct {
	ID          string     `json:"id"`
	Phone       string     `json:"phone"`
	Name        string     `json:"name"`
	Bio         string     `json:"bio"`
	AvatarURL   string     `json:"avatarUrl"`
	DOB         *time.Time `json:"dob,omitempty"`
	PinHash     string     `json:"-"`
	IsOnboarded bool       `json:"isOnboarded"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DisabledAt  *time.Time `json:"-"` // не null = аккаунт деактивирован, нужен повторный вход
}

// Profile — представление пользователя на wire (контракт мобильного клиента, camelCase).
// isActive/hasPin — производные поля: клиентский роутинг строится только на них.
type Profile struct {
	ID          string     `json:"id"`
	Phone       string     `json:"phone"`
	Name        string     `json:"name,omitempty"`
	Bio         string     `json:"bio,omitempty"`
	AvatarURL   string     `json:"avatarUrl,omitempty"`
	DOB         *time.Time `json:"dob,omitempty"`
	IsActive    bool       `json:"isActive"`
	HasPin      bool       `json:"hasPin"`
	IsOnboarded bool       `json:"isOnboarded"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (u *User) ToProfile() Profile {
	return Profile{
		ID:          u.ID,
		Phone:       u.Phone,
		Name:        u.Name,
		Bio:         u.Bio,
		AvatarURL:   u.AvatarURL,
		DOB:         u.DOB,
		IsActive:    u.DisabledAt == nil,
		HasPin:      u.PinHash != "",
		IsOnboarded: u.IsOnboarded,
		CreatedAt:   u.CreatedAt,
	}
}
