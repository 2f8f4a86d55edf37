package model

import "time"

// RefreshSession — строка таблицы sessions: одна на выданный refresh-токен.
// JTI и TokenHash привязывают сессию к последнему выданному refresh-токену
// (ротация: предъявление старого токена после ротации — признак кражи).
type RefreshSession struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	JTI        string     `json:"-"`
	TokenHash  string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	LastSeenAt time.Time  `json:"last_seen_at"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// TokenPair — пара токенов, выдаваемая при входе и при обновлении.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
