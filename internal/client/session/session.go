package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/drox/internal/client/api"
	"github.com/drox/internal/client/tokenstore"
	"github.com/drox/internal/logger"
	"github.com/drox/internal/model"
)

// Session — единственный владелец состояния авторизации на клиенте.
// Все мутации проходят через методы под мьютексом, снаружи состояние
// доступно только на чтение. Реализует api.TokenSource.
type Session struct {
	mu    sync.Mutex
	store tokenstore.Store
	auth  *api.AuthClient

	access   string
	user     *model.Profile
	unlocked bool
}

func New(store tokenstore.Store, auth *api.AuthClient) *Session {
	return &Session{store: store, auth: auth}
}

// Bootstrap восстанавливает сессию из хранилища токенов при старте.
// Если профиль получить не удалось, токены стираются и пользователь
// считается разлогиненным. unlocked после бутстрапа всегда false:
// до ввода PIN приложение остаётся заблокированным.
func (s *Session) Bootstrap(ctx context.Context) Route {
	s.mu.Lock()
	defer s.mu.Unlock()

	access := s.store.Access()
	refresh := s.store.Refresh()
	if access == "" && refresh == "" {
		return RouteLogin
	}

	user, err := s.auth.Me(ctx, access)
	if err != nil {
		var se *api.StatusError
		if errors.As(err, &se) && se.StatusCode == 401 && s.refreshLocked(ctx) {
			access = s.access
			user, err = s.auth.Me(ctx, access)
		}
	}
	if err != nil {
		logger.Errorf("session: bootstrap failed: %v", err)
		s.clearLocked()
		return RouteLogin
	}

	s.access = access
	s.user = user
	s.unlocked = false
	return s.routeLocked()
}

// Login фиксирует результат входа по OTP или PIN: сохраняет пару токенов
// и профиль, снимает блокировку. Если токены сохранить не удалось, вход
// не состоялся: токен в памяти без токена в хранилище недопустим.
func (s *Session) Login(ctx context.Context, access, refresh string, user model.Profile) (Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(access, refresh); err != nil {
		s.clearLocked()
		return RouteLogin, fmt.Errorf("save tokens: %w", err)
	}
	s.access = access
	s.user = &user
	s.unlocked = true
	return s.routeLocked(), nil
}

// UnlockWithPIN снимает блокировку уже восстановленной сессии.
// Проверка PIN выполняется на сервере до вызова этого метода.
func (s *Session) UnlockWithPIN() Route {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unlocked = true
	return s.routeLocked()
}

// UpdateUserAndRoute заменяет профиль и пересчитывает маршрут.
// Вызывается после онбординга, установки PIN и реактивации.
func (s *Session) UpdateUserAndRoute(user model.Profile) Route {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = &user
	return s.routeLocked()
}

// Logout стирает токены и состояние. Отзыв сессии на сервере выполняет
// вызывающий слой до Logout, здесь только локальная очистка.
func (s *Session) Logout(ctx context.Context) Route {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
	return RouteLogin
}

// AccessToken реализует api.TokenSource.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.access != "" {
		return s.access
	}
	return s.store.Access()
}

// Refresh обновляет пару токенов по refresh-токену из хранилища.
// Без refresh-токена возвращает false сразу, без похода в сеть.
// Неудачный обмен означает, что сессия отозвана, токены стираются.
func (s *Session) Refresh(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.refreshLocked(ctx)
}

// ForceLogout реализует api.TokenSource: вызывается конвейером запросов,
// когда сессию восстановить невозможно.
func (s *Session) ForceLogout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
}

func (s *Session) User() *model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) Unlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.unlocked
}

func (s *Session) Route() Route {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.routeLocked()
}

func (s *Session) refreshLocked(ctx context.Context) bool {
	refresh := s.store.Refresh()
	if refresh == "" {
		return false
	}

	pair, err := s.auth.RefreshTokens(ctx, refresh)
	if err != nil {
		logger.Errorf("session: refresh failed: %v", err)
		s.clearLocked()
		return false
	}

	if err := s.store.Save(pair.AccessToken, pair.RefreshToken); err != nil {
		logger.Errorf("session: save rotated tokens: %v", err)
		s.clearLocked()
		return false
	}
	s.access = pair.AccessToken
	return true
}

func (s *Session) routeLocked() Route {
	if s.user == nil {
		return RouteLogin
	}
	return DecideRoute(s.user.IsActive, s.user.HasPin, s.user.IsOnboarded, s.unlocked)
}

func (s *Session) clearLocked() {
	if err := s.store.Clear(); err != nil {
		logger.Errorf("session: clear tokens: %v", err)
	}
	s.access = ""
	s.user = nil
	s.unlocked = false
}
