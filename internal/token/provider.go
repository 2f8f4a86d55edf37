// Package token — выпуск и проверка access/refresh JWT (HS256).
// Refresh-токен несёт jti: при ротации jti в БД заменяется, предъявление
// старого токена после ротации расценивается как кража и отзывает все сессии.
package token

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims — общие claims access и refresh токенов (тип различается полем tok).
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	TokenType string `json:"tok"` // access | refresh
}

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

type Provider struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewProvider(secret, issuer string, accessTTL, refreshTTL time.Duration) *Provider {
	return &Provider{secret: []byte(secret), issuer: issuer, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// IssueAccess выпускает короткоживущий access-токен для пары (сессия, пользователь).
func (p *Provider) IssueAccess(sessionID, userID string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(p.accessTTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		SessionID: sessionID,
		TokenType: typeAccess,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	return s, exp, err
}

// IssueRefresh выпускает refresh-токен; jti возвращается отдельно — его хранит сессия для ротации.
func (p *Provider) IssueRefresh(sessionID, userID string) (token, jti string, expiresAt time.Time, err error) {
	jti = uuid.New().String()
	now := time.Now().UTC()
	expiresAt = now.Add(p.refreshTTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
		TokenType: typeRefresh,
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	return token, jti, expiresAt, err
}

func (p *Provider) parse(raw, wantType string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	}, jwt.WithIssuer(p.issuer), jwt.WithExpirationRequired())
	if err != nil || !t.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType || claims.SessionID == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateAccess проверяет access-токен и возвращает (userID, sessionID).
func (p *Provider) ValidateAccess(raw string) (userID, sessionID string, err error) {
	c, err := p.parse(raw, typeAccess)
	if err != nil {
		return "", "", err
	}
	return c.Subject, c.SessionID, nil
}

// ValidateRefresh проверяет refresh-токен и возвращает (sessionID, jti, userID).
func (p *Provider) ValidateRefresh(raw string) (sessionID, jti, userID string, err error) {
	c, err := p.parse(raw, typeRefresh)
	if err != nil {
		return "", "", "", err
	}
	return c.SessionID, c.ID, c.Subject, nil
}

// HashRefreshToken — sha256 hex от токена; в БД хранится только хэш.
func HashRefreshToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
