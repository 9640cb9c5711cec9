package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dating-platform/internal/auth"
	"dating-platform/internal/calls"
	"dating-platform/internal/chat"
	"dating-platform/internal/config"
	"dating-platform/internal/httpapi"
	"dating-platform/internal/users"
	"dating-platform/pkg/logger"
	"dating-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	var (
		db  *sql.DB
		rdb *redis.Client
	)
	h := httpapi.Handlers{
		Auth:          authManager,
		SecureCookies: cfg.IsProduction(),
	}

	if cfg.UsesPostgres() {
		db, err = utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()

		callStore := calls.NewPostgresStore(db)
		chatRepo := chat.NewPostgresRepo(db)
		userRepo := users.NewPostgresRepo(db)
		for name, ensure := range map[string]func(context.Context) error{
			"calls": callStore.EnsureSchema,
			"chat":  chatRepo.EnsureSchema,
			"users": userRepo.EnsureSchema,
		} {
			if err := ensure(rootCtx); err != nil {
				log.Error("schema init failed", "table", name, "err", err)
				os.Exit(1)
			}
		}
		h.Calls = callStore
		h.Chat = chat.NewService(chatRepo)
		h.Users = users.NewService(userRepo)
	} else {
		log.Warn("DB_HOST not set, using in-memory stores")
		userRepo := users.NewMemoryRepo()
		if cfg.App.Env == "local" {
			userRepo.SeedSamples(time.Now())
		}
		h.Calls = calls.NewMemoryStore()
		h.Chat = chat.NewService(chat.NewMemoryRepo())
		h.Users = users.NewService(userRepo)
	}

	if cfg.UsesRedis() {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		handlers:    h,
		authMW:      auth.RequireAccessToken(authManager),
		chatLimiter: httpapi.NewRateLimiter(cfg.Chat.PollRatePerMinute, cfg.Chat.PollBurst),
		db:          db,
		rdb:         rdb,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "postgres", cfg.UsesPostgres(), "redis", cfg.UsesRedis())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
