// Package push — Web Push уведомления: подписки в Postgres, отправка через VAPID.
package push

import (
	"context"
	"encoding/json"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/drox/internal/logger"
	"github.com/drox/internal/repository"
)

// Notifier отправляет Web Push по всем подпискам пользователя.
// Без VAPID-ключей методы no-op (подписки сохраняются, отправка не выполняется).
type Notifier struct {
	repo  *repository.PushRepository
	vapid *webpush.Options
}

func NewNotifier(repo *repository.PushRepository, keys *VAPIDKeys) *Notifier {
	n := &Notifier{repo: repo}
	if keys != nil && keys.PublicKey != "" && keys.PrivateKey != "" {
		n.vapid = &webpush.Options{
			Subscriber:      "drox-api",
			VAPIDPublicKey:  keys.PublicKey,
			VAPIDPrivateKey: keys.PrivateKey,
			TTL:             30,
		}
	}
	return n
}

// Enabled — настроена ли отправка.
func (n *Notifier) Enabled() bool { return n.vapid != nil }

// Notify шлёт уведомление на все подписки пользователя. Ошибки отдельных
// endpoint'ов логируются; мёртвые подписки (404/410) удаляются.
func (n *Notifier) Notify(ctx context.Context, userID, title, body string, data map[string]string) {
	if n.vapid == nil {
		return
	}
	subs, err := n.repo.ListForUser(ctx, userID)
	if err != nil {
		logger.Errorf("push notify: подписки user=%s: %v", userID, err)
		return
	}
	if len(subs) == 0 {
		return
	}
	payload, _ := json.Marshal(map[string]any{"title": title, "body": body, "data": data})
	for _, sub := range subs {
		wpSub := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
		}
		resp, err := webpush.SendNotificationWithContext(ctx, payload, wpSub, n.vapid)
		if err != nil {
			logger.Errorf("push notify user=%s: %v", userID, err)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == 410 || resp.StatusCode == 404 {
			if err := n.repo.Delete(ctx, userID, sub.Endpoint); err != nil {
				logger.Errorf("push notify: удаление мёртвой подписки: %v", err)
			}
		}
	}
}

// NotifyAsync — то же, но в фоне с собственным таймаутом (вызов из handler-а
// не должен ждать пуш-шлюз).
func (n *Notifier) NotifyAsync(userID, title, body string, data map[string]string) {
	if n.vapid == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		n.Notify(ctx, userID, title, body, data)
	}()
}
