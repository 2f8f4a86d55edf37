package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drox/internal/config"
	"github.com/drox/internal/fileserver"
	"github.com/drox/internal/handler"
	"github.com/drox/internal/logger"
	"github.com/drox/internal/middleware"
	"github.com/drox/internal/push"
	"github.com/drox/internal/repository"
	"github.com/drox/internal/service"
	"github.com/drox/internal/sms"
	"github.com/drox/internal/startup"
	"github.com/drox/internal/storage"
	"github.com/drox/internal/storage/memory"
	"github.com/drox/internal/token"
	"github.com/drox/internal/ws"
	"github.com/drox/migrations"
)

func main() {
	logger.SetPrefix("api")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL and in-memory OTP store (no external deps)")
	flag.Parse()

	logger.Info("starting API service")
	cfg := config.Load()

	var embeddedDB *embeddedpostgres.EmbeddedPostgres
	if *dev {
		var err error
		embeddedDB, err = startEmbeddedPostgres(cfg)
		if err != nil {
			logger.Errorf("embedded postgres: %v", err)
			os.Exit(1)
		}
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := embeddedDB.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		logger.Errorf("parse db config: %v", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConnections())
	poolCfg.MinConns = 4

	pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second, "")
	defer pool.Close()

	runMigrations(pool)
	if *migrate && !*dev {
		return
	}
	logger.Info("database connected, migrations applied")

	// OTP-коды: Redis в обычном режиме, in-memory в -dev.
	var otpStore storage.OTPStore
	if *dev {
		otpStore = memory.New()
		logger.Info("using in-memory OTP store (-dev)")
	} else {
		otpStore = startup.ConnectRedisWithRetry(cfg.Redis.URL, 60*time.Second, "")
		logger.Info("redis connected")
	}
	defer otpStore.Close()

	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	participationRepo := repository.NewParticipationRepository(pool)
	pushRepo := repository.NewPushRepository(pool)
	msgRepo := repository.NewMessageRepository(pool)

	tokens := token.NewProvider(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	smsSender := sms.NewSender(&cfg.SMS)
	authSvc := service.NewAuthService(userRepo, sessionRepo, otpStore, tokens, smsSender)

	vapidKeys, err := push.EnsureVAPIDKeys("")
	if err != nil {
		logger.Errorf("VAPID: %v — пуши отключены", err)
		vapidKeys = nil
	}
	notifier := push.NewNotifier(pushRepo, vapidKeys)
	if !notifier.Enabled() {
		logger.Info("push-уведомления отключены (подписки сохраняются, отправка не выполняется)")
	}

	fileSvc := fileserver.New(cfg.UploadDir, cfg.MaxUploadSize, cfg.PublicBaseURL)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	hub := ws.NewHub(msgRepo, userRepo, 0)
	var hubWg sync.WaitGroup
	hubWg.Add(1)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()

	authH := handler.NewAuthHandler(authSvc)
	userH := handler.NewUserHandler(userRepo)
	activityH := handler.NewActivityHandler(activityRepo)
	participationH := handler.NewParticipationHandler(participationRepo, activityRepo, userRepo, notifier)
	fileH := handler.NewFileHandler(fileSvc)
	chatH := handler.NewChatHandler(hub, msgRepo, activityRepo, cfg.CORSAllowedOrigins)
	vapidPub := ""
	if vapidKeys != nil {
		vapidPub = vapidKeys.PublicKey
	}
	pushH := handler.NewPushHandler(pushRepo, notifier, vapidPub)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RecoverJSON)
	r.Use(middleware.RequestLog)
	r.Use(middleware.RateLimitAPI)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSAllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); w.Write([]byte("ok")) })
	r.Get("/files/{filename}", fileH.Serve)
	r.Get("/push/vapid-public", pushH.VAPIDPublic)

	// Публичные auth-маршруты (до входа).
	r.Post("/auth/send-otp", authH.SendOTP)
	r.Post("/auth/verify-otp", authH.VerifyOTP)
	r.Post("/auth/refresh", authH.Refresh)
	r.Post("/auth/has-pin", authH.HasPIN)
	r.Post("/auth/login-pin", authH.LoginWithPIN)

	// Всё остальное — только с access-токеном.
	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(tokens))
		r.Post("/auth/set-pin", authH.SetPIN)
		r.Post("/auth/logout", authH.Logout)
		r.Get("/auth/me", authH.Me) // старые клиенты; канонический — /user/me
		r.Get("/user/me", userH.Me)
		r.Patch("/user/onboarding", userH.CompleteOnboarding)
		r.Post("/user/edit-profile", userH.EditProfile)
		r.Post("/user/reactivate", userH.Reactivate)
		r.Get("/activity", activityH.List)
		r.Post("/activity", activityH.Create)
		r.Get("/activity/user/activities", activityH.Hosted)
		r.Get("/activity/{id}", activityH.Get)
		r.Delete("/activity/{id}", activityH.Delete)
		r.Get("/activity/{id}/messages", chatH.History)
		r.Get("/activity/{id}/ws", chatH.ServeWS)
		r.Post("/participation/{id}/join", participationH.Join)
		r.Delete("/participation/{id}/join", participationH.Cancel)
		r.Get("/participation/{id}/check-status", participationH.CheckStatus)
		r.Get("/participation/check-all-bookings", participationH.MyBookings)
		r.Post("/upload", fileH.Upload)
		r.Post("/push/subscribe", pushH.Subscribe)
		r.Delete("/push/subscribe", pushH.Unsubscribe)
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	hubCancel()
	hubWg.Wait()
	logger.Info("hub stopped")
	srvWg.Wait()
	logger.Info("server goroutine exited")
}

func runMigrations(pool *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := migrations.Files.ReadDir(".")
	if err != nil {
		logger.Errorf("read migrations: %v", err)
		os.Exit(1)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := migrations.Files.ReadFile(name)
		if err != nil {
			logger.Errorf("read migration %s: %v", name, err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			logger.Errorf("run migration %s: %v", name, err)
			os.Exit(1)
		}
	}
	logger.Info("migrations applied")
}

func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "drox"
		password = "drox_secret"
		database = "drox"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	cfg.Database.URL = fmt.Sprintf(
		"postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		user, password, port, database,
	)
	logger.Infof("embedded PostgreSQL running on port %d", port)
	return db, nil
}
