package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-miniapp-api/internal/auth"
	"github.com/yukikurage/collab-miniapp-api/internal/config"
	"github.com/yukikurage/collab-miniapp-api/internal/constants"
	"github.com/yukikurage/collab-miniapp-api/internal/database"
	"github.com/yukikurage/collab-miniapp-api/internal/handlers"
	"github.com/yukikurage/collab-miniapp-api/internal/logging"
	"github.com/yukikurage/collab-miniapp-api/internal/notify"
	"github.com/yukikurage/collab-miniapp-api/internal/repository"
	"github.com/yukikurage/collab-miniapp-api/internal/services"
	"github.com/yukikurage/collab-miniapp-api/internal/telegram"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger := logging.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		fatal("failed to connect to database", err)
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		fatal("failed to run migrations", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	inviteRepo := repository.NewInviteRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// Notifications
	queue, err := newQueue(ctx, cfg)
	if err != nil {
		fatal("failed to create notification queue", err)
	}
	defer queue.Close()

	sender, err := telegram.NewBotSender(cfg.TelegramAPIURL, cfg.BotToken, cfg.NotifyTimeout)
	if err != nil {
		fatal("failed to create telegram sender", err)
	}
	if !sender.IsConfigured() {
		logger.Warn("BOT_TOKEN is empty, notifications will not be delivered")
	}
	dispatcher := notify.NewDispatcher(queue, taskRepo, userRepo, settingsRepo, sender, cfg.NotifyTimeout, logger)
	worker := notify.NewWorker(queue, dispatcher, logger)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := worker.Run(ctx); err != nil {
			logger.Error("notification worker failed", "error", err)
		}
	}()

	// Services
	var suggester services.TaskSuggester
	if cfg.OpenAIAPIKey != "" {
		suggester = services.NewAIService(cfg.OpenAIAPIKey)
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	verifier := telegram.NewInitDataVerifier(cfg.BotToken, cfg.InitDataMaxAge)
	membership := services.NewMembershipService(groupRepo, userRepo)

	// Initialize Gin router
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	store, err := newSessionStore(cfg)
	if err != nil {
		fatal("failed to create session store", err)
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.JWTTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	handlers.RegisterRoutes(r, handlers.Services{
		Identity:   services.NewIdentityService(userRepo, membership, verifier, tokens),
		Membership: membership,
		Invites:    services.NewInviteService(inviteRepo, userRepo, membership, cfg.WebAppURL),
		Tasks:      services.NewTaskService(taskRepo, membership, dispatcher, suggester),
		Settings:   services.NewSettingsService(settingsRepo),
		Tokens:     tokens,
		BotAPIKey:  cfg.BotAPIKey,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server failed", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	<-workerDone
}

func newQueue(ctx context.Context, cfg *config.Config) (notify.Queue, error) {
	if cfg.NotifyQueue == "redis" && cfg.RedisAddr() != "" {
		return notify.NewRedisQueue(ctx, "redis://"+cfg.RedisAddr())
	}
	return notify.NewMemoryQueue(cfg.NotifyQueueSize), nil
}

// newSessionStore uses Redis when it is configured and signed cookies otherwise.
func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	if addr := cfg.RedisAddr(); addr != "" {
		return redisStore.NewStore(
			10,    // Redis pool size
			"tcp", // network type
			addr,
			"", // username (empty for default user)
			"", // password (empty = no password)
			[]byte(cfg.SessionSecret),
		)
	}
	return cookie.NewStore([]byte(cfg.SessionSecret)), nil
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
