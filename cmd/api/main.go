package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"diet-coach/internal/chat"
	"diet-coach/internal/config"
	"diet-coach/internal/db"
	apihttp "diet-coach/internal/http"
	"diet-coach/internal/realtime"
	"diet-coach/internal/repository"
	"diet-coach/internal/service"
	"diet-coach/internal/storage"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("db schema", zap.Error(err))
	}

	userRepo := repository.NewPgUserRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)
	progressRepo := repository.NewPgProgressRepository(pool)
	mealRepo := repository.NewPgMealRepository(pool)

	var (
		loginLimiter service.LoginRateLimiter
		sessionStore service.SessionStore
		redisClient  *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
			redisClient = nil
		} else {
			loginLimiter = service.NewRedisLoginRateLimiter(redisClient, 10*time.Minute, 5)
			sessionStore = service.NewRedisSessionStore(redisClient)
		}
		cancel()
	}

	notifier := newNotifier(cfg, redisClient, logger)

	blobs, err := storage.NewLocalStorage(cfg.UploadDir, cfg.UploadBaseURL, logger)
	if err != nil {
		logger.Fatal("blob storage", zap.Error(err))
	}

	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		sessionStore,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	loc := cfg.Location()
	synchronizer := chat.NewSynchronizer(logger, messageRepo, notifier, blobs, chat.Options{
		ResyncInterval: cfg.ResyncInterval(),
		MaxRetries:     cfg.ChatMaxRetries,
		RetryBackoff:   cfg.RetryBackoff(),
		MaxImageBytes:  cfg.MaxUploadBytes(),
	})
	userSvc := service.NewUserService(logger, userRepo, jwtSvc, loginLimiter)
	progressSvc := service.NewProgressService(logger, progressRepo, userRepo)
	mealSvc := service.NewMealService(logger, mealRepo, blobs, cfg.MaxUploadBytes())

	router := apihttp.NewRouter(
		logger,
		jwtSvc,
		apihttp.NewUserHandler(logger, userSvc),
		apihttp.NewChatHandler(logger, synchronizer, jwtSvc, loc, cfg.MaxUploadBytes()),
		apihttp.NewProgressHandler(logger, progressSvc, loc),
		apihttp.NewMealHandler(logger, mealSvc, loc, cfg.MaxUploadBytes()),
		blobs.BasePath(),
		cfg.UploadBaseURL,
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		// Al cancelar ctx también se cortan los streams SSE abiertos.
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("realtime", cfg.RealtimeBackend))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.LogDevelopment {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Printf("warning: zap init: %v", err)
		return zap.NewNop()
	}
	return logger
}

// newNotifier elige el feed de cambios; si el backend pedido no está disponible
// cae al notifier en memoria (válido solo para una réplica).
func newNotifier(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) realtime.Notifier {
	switch cfg.RealtimeBackend {
	case "redis":
		if redisClient != nil {
			return realtime.NewRedisNotifier(redisClient)
		}
		logger.Warn("redis realtime backend requested but redis is unavailable, using memory")
	case "nats":
		if cfg.NATSURL != "" {
			n, err := realtime.NewNATSNotifier(cfg.NATSURL)
			if err == nil {
				return n
			}
			logger.Warn("nats connect failed, using memory", zap.Error(err))
		} else {
			logger.Warn("nats realtime backend requested without NATS_URL, using memory")
		}
	case "", "memory":
	default:
		logger.Warn("unknown realtime backend, using memory", zap.String("backend", cfg.RealtimeBackend))
	}
	return realtime.NewMemoryNotifier()
}
