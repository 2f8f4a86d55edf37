// Package tokenstore — защищённое хранилище пары токенов на устройстве.
// Отсутствующее значение — пустая строка, не ошибка: вызывающий код строит
// на этом ветвление "есть сессия / нет сессии".
package tokenstore

// Store хранит access и refresh токены между запусками.
type Store interface {
	// Save перезаписывает оба токена атомарно относительно чтений.
	Save(access, refresh string) error
	// Access возвращает access-токен или "".
	Access() string
	// Refresh возвращает refresh-токен или "".
	Refresh() string
	// Clear удаляет оба токена. Идемпотентна.
	Clear() error
}
