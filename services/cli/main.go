// Терминальный клиент DROX: вход по OTP/PIN, онбординг, активности,
// бронирования и чат. Навигация — цикл по маршруту из контроллера сессии:
// DecideRoute решает, какой экран показать, эффекты выполняются здесь.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/drox/internal/client/api"
	"github.com/drox/internal/client/session"
	"github.com/drox/internal/client/tokenstore"
	"github.com/drox/internal/config"
	"github.com/drox/internal/logger"
	"github.com/drox/internal/model"
)

type app struct {
	in    *bufio.Scanner
	sess  *session.Session
	auth  *api.AuthClient
	users *api.UserClient
	acts  *api.ActivityClient
	parts *api.ParticipationClient
	chat  *api.ChatClient
	files *api.Uploader

	// phone запомнен после send-otp: нужен для login-pin после разблокировки.
	phone string
}

func main() {
	logger.SetPrefix("cli")
	cfg := config.Load()

	tokenFile := cfg.TokenFile
	if tokenFile == "" {
		tokenFile = tokenstore.DefaultPath()
	}
	store := tokenstore.NewFileStore(tokenFile)

	authClient := api.NewAuthClient(cfg.APIBaseURL)
	sess := session.New(store, authClient)
	client := api.NewClient(cfg.APIBaseURL, sess)

	a := &app{
		in:    bufio.NewScanner(os.Stdin),
		sess:  sess,
		auth:  authClient,
		users: api.NewUserClient(client),
		acts:  api.NewActivityClient(client),
		parts: api.NewParticipationClient(client),
		chat:  api.NewChatClient(client),
		files: api.NewUploader(cfg.MediaUploadURL, sess),
	}

	ctx := context.Background()
	route := a.sess.Bootstrap(ctx)
	for {
		switch route {
		case session.RouteLogin:
			route = a.loginScreen(ctx)
		case session.RouteReactivation:
			route = a.reactivationScreen(ctx)
		case session.RoutePinSetup:
			route = a.pinSetupScreen(ctx)
		case session.RoutePinUnlock:
			route = a.pinUnlockScreen(ctx)
		case session.RouteOnboarding:
			route = a.onboardingScreen(ctx)
		case session.RouteHome:
			route = a.homeScreen(ctx)
		}
	}
}

func (a *app) prompt(label string) string {
	fmt.Print(label)
	if !a.in.Scan() {
		fmt.Println()
		os.Exit(0)
	}
	return strings.TrimSpace(a.in.Text())
}

// loginScreen — вход: OTP для новых и сбросивших сессию, PIN для известных
// телефонов с установленным PIN.
func (a *app) loginScreen(ctx context.Context) session.Route {
	fmt.Println("\n=== Вход в DROX ===")
	phone := a.prompt("Телефон (+7...): ")
	if phone == "" {
		return session.RouteLogin
	}
	a.phone = phone

	exists, hasPin, err := a.auth.HasPIN(ctx, phone)
	if err != nil {
		fmt.Println("Ошибка:", err)
		return session.RouteLogin
	}
	if exists && hasPin {
		pin := a.prompt("PIN (6 цифр, пусто = вход по коду): ")
		if pin != "" {
			res, err := a.auth.LoginWithPIN(ctx, phone, pin)
			if err != nil {
				fmt.Println("Ошибка:", err)
				return session.RouteLogin
			}
			return a.login(ctx, res)
		}
	}

	if err := a.auth.SendOTP(ctx, phone); err != nil {
		fmt.Println("Ошибка:", err)
		return session.RouteLogin
	}
	fmt.Println("Код отправлен по SMS.")
	code := a.prompt("Код: ")
	res, err := a.auth.VerifyOTP(ctx, phone, code)
	if err != nil {
		fmt.Println("Ошибка:", err)
		return session.RouteLogin
	}
	return a.login(ctx, res)
}

// login передаёт результат входа контроллеру. Ошибка сохранения токенов
// отменяет вход: без хранилища сессия не переживёт перезапуск.
func (a *app) login(ctx context.Context, res *api.AuthResult) session.Route {
	route, err := a.sess.Login(ctx, res.AccessToken, res.RefreshToken, res.User)
	if err != nil {
		fmt.Println("Не удалось сохранить токены:", err)
	}
	return route
}

func (a *app) reactivationScreen(ctx context.Context) session.Route {
	fmt.Println("\nАккаунт деактивирован.")
	if a.prompt("Восстановить? (y/n): ") != "y" {
		a.users.Logout(ctx)
		return a.sess.Logout(ctx)
	}
	user, err := a.users.Reactivate(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}
	fmt.Println("Аккаунт восстановлен.")
	return a.sess.UpdateUserAndRoute(*user)
}

func (a *app) pinSetupScreen(ctx context.Context) session.Route {
	fmt.Println("\nЗадайте PIN для быстрого входа.")
	pin := a.prompt("PIN (6 цифр): ")
	if pin != a.prompt("Повторите PIN: ") {
		fmt.Println("PIN не совпадает.")
		return session.RoutePinSetup
	}
	if err := a.users.SetPIN(ctx, pin); err != nil {
		return a.fail(ctx, err)
	}
	user, err := a.users.Me(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}
	return a.sess.UpdateUserAndRoute(*user)
}

// pinUnlockScreen — сессия восстановлена из файла, но приложение заблокировано.
// PIN проверяет сервер: login-pin выдаёт свежую пару токенов.
func (a *app) pinUnlockScreen(ctx context.Context) session.Route {
	fmt.Println("\nСессия восстановлена, введите PIN.")
	phone := a.phone
	if phone == "" {
		if u := a.sess.User(); u != nil {
			phone = u.Phone
		}
	}
	pin := a.prompt("PIN (пусто = выйти из аккаунта): ")
	if pin == "" {
		a.users.Logout(ctx)
		return a.sess.Logout(ctx)
	}
	res, err := a.auth.LoginWithPIN(ctx, phone, pin)
	if err != nil {
		fmt.Println("Ошибка:", err)
		return session.RoutePinUnlock
	}
	if _, err := a.sess.Login(ctx, res.AccessToken, res.RefreshToken, res.User); err != nil {
		fmt.Println("Не удалось сохранить токены:", err)
		return session.RouteLogin
	}
	return a.sess.UnlockWithPIN()
}

func (a *app) onboardingScreen(ctx context.Context) session.Route {
	fmt.Println("\n=== Расскажите о себе ===")
	p := api.OnboardingPayload{
		UserName: a.prompt("Имя: "),
		Bio:      a.prompt("О себе: "),
		DOB:      a.prompt("Дата рождения (ГГГГ-ММ-ДД, можно пропустить): "),
	}
	if avatar := a.prompt("Путь к аватару (можно пропустить): "); avatar != "" {
		if url := a.uploadFile(ctx, avatar); url != "" {
			p.AvatarURL = url
		}
	}
	user, err := a.users.CompleteOnboarding(ctx, p)
	if err != nil {
		fmt.Println("Ошибка:", err)
		if errors.Is(err, api.ErrSessionExpired) {
			return session.RouteLogin
		}
		return session.RouteOnboarding
	}
	return a.sess.UpdateUserAndRoute(*user)
}

func (a *app) homeScreen(ctx context.Context) session.Route {
	fmt.Println("\nКоманды: list | my | create | join | cancel | status | bookings | chat | profile | edit | logout | quit")
	switch cmd := a.prompt("> "); cmd {
	case "list":
		a.listActivities(ctx, false)
	case "my":
		a.listActivities(ctx, true)
	case "create":
		a.createActivity(ctx)
	case "join":
		if id := a.prompt("ID активности: "); id != "" {
			if _, err := a.parts.Join(ctx, id); err != nil {
				return a.fail(ctx, err)
			}
			fmt.Println("Вы записаны.")
		}
	case "cancel":
		if id := a.prompt("ID активности: "); id != "" {
			if err := a.parts.Cancel(ctx, id); err != nil {
				return a.fail(ctx, err)
			}
			fmt.Println("Запись отменена.")
		}
	case "status":
		if id := a.prompt("ID активности: "); id != "" {
			joined, err := a.parts.CheckStatus(ctx, id)
			if err != nil {
				return a.fail(ctx, err)
			}
			fmt.Println("Записаны:", joined)
		}
	case "bookings":
		bookings, err := a.parts.MyBookings(ctx)
		if err != nil {
			return a.fail(ctx, err)
		}
		for _, b := range bookings {
			fmt.Printf("  %s  активность %s  с %s\n", b.Status, b.ActivityID, b.CreatedAt.Format("02.01.2006"))
		}
		if len(bookings) == 0 {
			fmt.Println("  записей нет")
		}
	case "chat":
		if id := a.prompt("ID активности: "); id != "" {
			a.chatRoom(ctx, id)
		}
	case "profile":
		user, err := a.users.Me(ctx)
		if err != nil {
			return a.fail(ctx, err)
		}
		a.sess.UpdateUserAndRoute(*user)
		fmt.Printf("  %s  %s\n  %s\n", user.Name, user.Phone, user.Bio)
	case "edit":
		a.editProfile(ctx)
	case "logout":
		a.users.Logout(ctx)
		return a.sess.Logout(ctx)
	case "quit":
		os.Exit(0)
	case "":
	default:
		fmt.Println("Неизвестная команда:", cmd)
	}
	return a.sess.Route()
}

func (a *app) listActivities(ctx context.Context, hosted bool) {
	var (
		items []*model.Activity
		err   error
	)
	if hosted {
		items, err = a.acts.Hosted(ctx)
	} else {
		items, err = a.acts.List(ctx)
	}
	if err != nil {
		fmt.Println("Ошибка:", err)
		return
	}
	for _, act := range items {
		fee := "бесплатно"
		if act.IsPaid {
			fee = fmt.Sprintf("%.0f %s", act.Fee, act.Currency)
		}
		fmt.Printf("  %s  %-30s  %s  %s\n", act.ID, act.Title, act.Location.Name, fee)
	}
	if len(items) == 0 {
		fmt.Println("  активностей нет")
	}
}

func (a *app) createActivity(ctx context.Context) {
	p := model.CreateActivityPayload{
		Title:       a.prompt("Название: "),
		Description: a.prompt("Описание: "),
		Images:      []string{},
	}
	p.Location.Name = a.prompt("Место: ")
	p.Location.Address = a.prompt("Адрес: ")
	if fee := a.prompt("Стоимость (пусто = бесплатно): "); fee != "" {
		v, err := strconv.ParseFloat(fee, 64)
		if err != nil || v <= 0 {
			fmt.Println("Стоимость должна быть числом больше нуля.")
			return
		}
		p.IsPaid = true
		p.Fee = v
		p.Payment = &model.Payment{Flow: "direct", Currency: "RUB"}
	}
	if img := a.prompt("Путь к картинке (можно пропустить): "); img != "" {
		if url := a.uploadFile(ctx, img); url != "" {
			p.Images = append(p.Images, url)
		}
	}
	act, err := a.acts.Create(ctx, p)
	if err != nil {
		fmt.Println("Ошибка:", err)
		return
	}
	fmt.Println("Создано:", act.ID)
}

func (a *app) editProfile(ctx context.Context) {
	var p api.EditProfilePayload
	if v := a.prompt("Имя (пусто = не менять): "); v != "" {
		p.Name = &v
	}
	if v := a.prompt("О себе (пусто = не менять): "); v != "" {
		p.Bio = &v
	}
	if v := a.prompt("Путь к аватару (пусто = не менять): "); v != "" {
		if url := a.uploadFile(ctx, v); url != "" {
			p.AvatarURL = &url
		}
	}
	user, err := a.users.EditProfile(ctx, p)
	if err != nil {
		fmt.Println("Ошибка:", err)
		return
	}
	a.sess.UpdateUserAndRoute(*user)
	fmt.Println("Профиль обновлён.")
}

// uploadFile загружает картинку и возвращает её URL ("" при ошибке).
// Неудачная загрузка только сообщается: созданные до неё ресурсы не откатываются.
func (a *app) uploadFile(ctx context.Context, path string) string {
	f, err := os.Open(path)
	if err != nil {
		fmt.Println("Не удалось открыть файл:", err)
		return ""
	}
	defer f.Close()
	res, err := a.files.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		fmt.Println("Загрузка не удалась:", err)
		return ""
	}
	return res.URL
}

// chatRoom — интерактивный чат комнаты активности: история, входящие в
// фоне, строки со stdin уходят в комнату, /q — выход.
func (a *app) chatRoom(ctx context.Context, activityID string) {
	history, err := a.chat.History(ctx, activityID)
	if err != nil {
		fmt.Println("Ошибка:", err)
		return
	}
	for _, m := range history {
		fmt.Printf("  [%s] %s: %s\n", m.CreatedAt.Format("15:04"), m.UserName, m.Text)
	}

	conn, err := a.chat.Dial(ctx, activityID)
	if err != nil {
		fmt.Println("Не удалось подключиться:", err)
		return
	}
	defer conn.Close()

	go func() {
		for {
			ev, err := conn.Next()
			if err != nil {
				return
			}
			switch {
			case ev.Type == "message" && ev.Message != nil:
				fmt.Printf("  [%s] %s: %s\n", ev.Message.CreatedAt.Format("15:04"), ev.Message.UserName, ev.Message.Text)
			case ev.Error != "":
				fmt.Println("  ошибка:", ev.Error)
			}
		}
	}()

	fmt.Println("Чат открыт, /q — выход.")
	for {
		text := a.prompt("")
		if text == "/q" {
			return
		}
		if text == "" {
			continue
		}
		if err := conn.Send(text); err != nil {
			fmt.Println("Отправка не удалась:", err)
			return
		}
	}
}

// fail — общий обработчик ошибок авторизованных вызовов: протухшая сессия
// уводит на экран входа, остальное показывается и оставляет текущий маршрут.
func (a *app) fail(ctx context.Context, err error) session.Route {
	if errors.Is(err, api.ErrSessionExpired) {
		fmt.Println("Сессия истекла, войдите заново.")
		return session.RouteLogin
	}
	fmt.Println("Ошибка:", err)
	return a.sess.Route()
}
