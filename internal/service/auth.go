package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/drox/internal/logger"
	"github.com/drox/internal/model"
	"github.com/drox/internal/repository"
	"github.com/drox/internal/sms"
	"github.com/drox/internal/storage"
	"github.com/drox/internal/token"
)

var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrInvalidOTP        = errors.New("invalid or expired OTP")
	ErrInvalidPhone      = errors.New("invalid phone format")
	ErrInvalidPIN        = errors.New("invalid PIN")
	ErrPinNotSet         = errors.New("pin not set")
	ErrUserDisabled      = errors.New("user disabled")
	ErrInvalidRefresh    = errors.New("invalid refresh token")
)

// Валидация телефона: цифры с опциональным ведущим + (7..15 цифр, E.164 упрощённо).
var phoneRegexp = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// pinRegexp — PIN строго 6 цифр.
var pinRegexp = regexp.MustCompile(`^[0-9]{6}$`)

// UserStore — срез UserRepository, нужный сервису (в тестах подменяется фейком).
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByPhone(ctx context.Context, phone string) (*model.User, error)
	SetPin(ctx context.Context, userID, pinHash string) error
	SetDisabled(ctx context.Context, userID string, disabled bool) error
}

// SessionStore — срез SessionRepository.
type SessionStore interface {
	Create(ctx context.Context, s *model.RefreshSession) error
	GetByID(ctx context.Context, id string) (*model.RefreshSession, error)
	Rotate(ctx context.Context, id, jti, tokenHash string, expiresAt time.Time) error
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

type AuthService struct {
	users    UserStore
	sessions SessionStore
	store    storage.OTPStore
	tokens   *token.Provider
	sender   *sms.Sender
}

func NewAuthService(users UserStore, sessions SessionStore, store storage.OTPStore, tokens *token.Provider, sender *sms.Sender) *AuthService {
	return &AuthService{users: users, sessions: sessions, store: store, tokens: tokens, sender: sender}
}

// normalizePhone убирает пробелы, дефисы и скобки из номера.
func normalizePhone(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.TrimSpace(s) {
		switch r {
		case ' ', '-', '(', ')':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func maskPhone(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:len(s)-4] + "****"
}

func generateOTP(length int) string {
	const digits = "0123456789"
	b := make([]byte, length)
	for i := range b {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		b[i] = digits[n.Int64()]
	}
	return string(b)
}

// SendOTP генерирует одноразовый код и отправляет его по SMS.
// Если гейт не настроен (dev), код пишется в лог.
func (s *AuthService) SendOTP(ctx context.Context, phone string) error {
	phone = normalizePhone(phone)
	if !phoneRegexp.MatchString(phone) {
		return ErrInvalidPhone
	}
	allowed, err := s.store.CheckRateLimit(ctx, phone)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrRateLimitExceeded
	}
	// Код запрошен повторно при живом TTL (> 4 мин) — переотправляем тот же,
	// чтобы ранее доставленная SMS не протухала.
	const minTTLToReuse = 240 * time.Second
	code := ""
	if existing, _ := s.store.GetOTP(ctx, phone); len(existing) == 6 {
		if ttl, _ := s.store.GetOTPTTL(ctx, phone); ttl >= minTTLToReuse {
			code = existing
			logger.Infof("send-otp: переотправка того же кода для %s (TTL %.0fs)", maskPhone(phone), ttl.Seconds())
		}
	}
	if code == "" {
		code = generateOTP(6)
		if err := s.store.SetOTP(ctx, phone, code); err != nil {
			return err
		}
	}
	if !s.sender.Configured() {
		logger.Infof("send-otp: SMS-гейт не настроен, код для %s: %s", maskPhone(phone), code)
		return nil
	}
	return s.sender.SendOTP(ctx, phone, code)
}

// VerifyOTP проверяет код, находит или создаёт пользователя и выдаёт пару токенов.
func (s *AuthService) VerifyOTP(ctx context.Context, phone, code string) (*model.User, *model.TokenPair, error) {
	phone = normalizePhone(phone)
	code = strings.TrimSpace(code)
	if !phoneRegexp.MatchString(phone) || len(code) != 6 {
		return nil, nil, ErrInvalidOTP
	}
	stored, err := s.store.GetOTP(ctx, phone)
	if err != nil {
		logger.Errorf("verify-otp: GetOTP %s: %v", maskPhone(phone), err)
		return nil, nil, ErrInvalidOTP
	}
	// Сравнение constant-time; код одноразовый, после совпадения удаляется.
	if len(stored) != 6 || subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return nil, nil, ErrInvalidOTP
	}
	if err := s.store.DeleteOTP(ctx, phone); err != nil {
		logger.Errorf("verify-otp: DeleteOTP %s: %v", maskPhone(phone), err)
	}

	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, nil, err
		}
		now := time.Now().UTC()
		user = &model.User{ID: uuid.New().String(), Phone: phone, CreatedAt: now, UpdatedAt: now}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, nil, err
		}
		logger.Infof("verify-otp: создан пользователь %s", user.ID)
	}
	if user.DisabledAt != nil {
		return nil, nil, ErrUserDisabled
	}
	pair, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// issueSession создаёт строку сессии и выдаёт пару токенов, к ней привязанную.
func (s *AuthService) issueSession(ctx context.Context, userID string) (*model.TokenPair, error) {
	sessionID := uuid.New().String()
	refresh, jti, expiresAt, err := s.tokens.IssueRefresh(sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh: %w", err)
	}
	access, _, err := s.tokens.IssueAccess(sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("issue access: %w", err)
	}
	now := time.Now().UTC()
	sess := &model.RefreshSession{
		ID: sessionID, UserID: userID, JTI: jti,
		TokenHash: token.HashRefreshToken(refresh),
		ExpiresAt: expiresAt, LastSeenAt: now, CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// HasPIN сообщает, существует ли пользователь с этим номером и задан ли PIN.
func (s *AuthService) HasPIN(ctx context.Context, phone string) (exists, hasPin bool, err error) {
	phone = normalizePhone(phone)
	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, false, nil
		}
		return false, false, err
	}
	return true, user.PinHash != "", nil
}

// LoginWithPIN — вход по номеру и PIN. Неверный номер и неверный PIN
// неразличимы для вызывающего.
func (s *AuthService) LoginWithPIN(ctx context.Context, phone, pin string) (*model.User, *model.TokenPair, error) {
	phone = normalizePhone(phone)
	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidPIN
		}
		return nil, nil, err
	}
	if user.PinHash == "" {
		return nil, nil, ErrPinNotSet
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PinHash), []byte(pin)) != nil {
		return nil, nil, ErrInvalidPIN
	}
	if user.DisabledAt != nil {
		return nil, nil, ErrUserDisabled
	}
	pair, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// SetPIN сохраняет bcrypt-хэш шестизначного PIN для текущего пользователя.
func (s *AuthService) SetPIN(ctx context.Context, userID, pin string) error {
	if !pinRegexp.MatchString(pin) {
		return ErrInvalidPIN
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	return s.users.SetPin(ctx, userID, string(hash))
}

// Refresh ротирует пару токенов. Старый refresh-токен после ротации
// недействителен; его предъявление означает кражу, и все сессии
// пользователя отзываются.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	sessionID, jti, userID, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefresh
	}
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if sess.RevokedAt != nil || time.Now().UTC().After(sess.ExpiresAt) {
		return nil, ErrInvalidRefresh
	}
	if sess.JTI != jti || sess.TokenHash != token.HashRefreshToken(refreshToken) {
		logger.Errorf("refresh: повторное использование токена, отзыв всех сессий user=%s", userID)
		if err := s.sessions.RevokeAllForUser(ctx, sess.UserID); err != nil {
			logger.Errorf("refresh: RevokeAllForUser %s: %v", sess.UserID, err)
		}
		return nil, ErrInvalidRefresh
	}
	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, ErrInvalidRefresh
	}
	if user.DisabledAt != nil {
		return nil, ErrUserDisabled
	}
	newRefresh, newJTI, expiresAt, err := s.tokens.IssueRefresh(sessionID, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh: %w", err)
	}
	access, _, err := s.tokens.IssueAccess(sessionID, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("issue access: %w", err)
	}
	if err := s.sessions.Rotate(ctx, sessionID, newJTI, token.HashRefreshToken(newRefresh), expiresAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	return &model.TokenPair{AccessToken: access, RefreshToken: newRefresh}, nil
}

// Me возвращает пользователя по id из access-токена.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Logout отзывает сессию access-токена.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Revoke(ctx, sessionID)
}
