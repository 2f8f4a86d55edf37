package session

// Route — экран, который должен показать клиент. Чистая функция состояния:
// никакой навигации здесь нет, переходы выполняет вызывающий слой.
type Route int

const (
	// RouteLogin — сессии нет, вход по OTP или PIN.
	RouteLogin Route = iota
	// RouteReactivation — аккаунт деактивирован, нужно восстановление.
	RouteReactivation
	// RoutePinSetup — PIN ещё не задан.
	RoutePinSetup
	// RoutePinUnlock — сессия восстановлена из хранилища, нужен PIN.
	RoutePinUnlock
	// RouteOnboarding — профиль не заполнен.
	RouteOnboarding
	// RouteHome — основной экран.
	RouteHome
)

func (r Route) String() string {
	switch r {
	case RouteLogin:
		return "login"
	case RouteReactivation:
		return "reactivation"
	case RoutePinSetup:
		return "pin-setup"
	case RoutePinUnlock:
		return "pin-unlock"
	case RouteOnboarding:
		return "onboarding"
	case RouteHome:
		return "home"
	}
	return "unknown"
}

// DecideRoute вычисляет экран по четырём флагам. Порядок правил фиксирован:
// реактивация, затем установка PIN, затем разблокировка, затем онбординг.
func DecideRoute(isActive, hasPin, isOnboarded, unlocked bool) Route {
	switch {
	case !isActive:
		return RouteReactivation
	case !hasPin:
		return RoutePinSetup
	case !unlocked:
		return RoutePinUnlock
	case !isOnboarded:
		return RouteOnboarding
	default:
		return RouteHome
	}
}
