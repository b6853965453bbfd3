package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"diet-coach/internal/chat"
	"diet-coach/internal/config"
	"diet-coach/internal/db"
	"diet-coach/internal/domain"
	"diet-coach/internal/realtime"
	"diet-coach/internal/repository"
	"diet-coach/internal/service"
	"diet-coach/internal/storage"
)

// app arma las mismas piezas que la API, pero contra la base directamente.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client
	nats   *realtime.NATSNotifier

	users *service.UserService
	chat  *chat.Synchronizer
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger := zap.NewExample()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := db.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db schema: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, pool: pool}

	notifier := a.newNotifier()

	blobs, err := storage.NewLocalStorage(cfg.UploadDir, cfg.UploadBaseURL, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	userRepo := repository.NewPgUserRepository(pool)
	// Los tokens no salen del proceso; sin secreto configurado basta uno efímero.
	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
	}
	jwtSvc := service.NewJWTService(secret, time.Hour, 24*time.Hour)
	a.users = service.NewUserService(logger, userRepo, jwtSvc, nil)
	a.chat = chat.NewSynchronizer(logger, repository.NewPgMessageRepository(pool), notifier, blobs, chat.Options{
		ResyncInterval: cfg.ResyncInterval(),
		MaxRetries:     cfg.ChatMaxRetries,
		RetryBackoff:   cfg.RetryBackoff(),
		MaxImageBytes:  cfg.MaxUploadBytes(),
	})
	return a, nil
}

// newNotifier elige el feed de cambios igual que la API. Con memory, watch solo
// ve envíos de otros procesos en el resync.
func (a *app) newNotifier() realtime.Notifier {
	switch a.cfg.RealtimeBackend {
	case "redis":
		if a.cfg.RedisAddr != "" {
			a.redis = redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr, Password: a.cfg.RedisPassword, DB: a.cfg.RedisDB})
			return realtime.NewRedisNotifier(a.redis)
		}
		a.logger.Warn("redis realtime backend requested without REDIS_ADDR, using memory")
	case "nats":
		if a.cfg.NATSURL != "" {
			n, err := realtime.NewNATSNotifier(a.cfg.NATSURL)
			if err == nil {
				a.nats = n
				return n
			}
			a.logger.Warn("nats connect failed, using memory", zap.Error(err))
		} else {
			a.logger.Warn("nats realtime backend requested without NATS_URL, using memory")
		}
	case "", "memory":
	default:
		a.logger.Warn("unknown realtime backend, using memory", zap.String("backend", a.cfg.RealtimeBackend))
	}
	return realtime.NewMemoryNotifier()
}

// login abre una sesión con las credenciales de los flags globales.
func (a *app) login(ctx context.Context, email, password string) (*domain.Session, error) {
	result, err := a.users.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return result.Session, nil
}

func (a *app) Close() {
	if a.nats != nil {
		a.nats.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.pool.Close()
	_ = a.logger.Sync()
}
