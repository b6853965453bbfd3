package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore guarda las sesiones vivas: session id -> jti del refresh token vigente.
// Revocar la sesión invalida tanto el access como el refresh token.
type SessionStore interface {
	Store(sessionID, refreshID string, ttl time.Duration) error
	Lookup(sessionID string) (string, bool, error)
	Revoke(sessionID string) error
}

type sessionEntry struct {
	refreshID string
	expiresAt time.Time
}

type memorySessionStore struct {
	mu    sync.Mutex
	items map[string]sessionEntry
}

func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{
		items: make(map[string]sessionEntry),
	}
}

func (s *memorySessionStore) Store(sessionID, refreshID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	s.items[sessionID] = sessionEntry{refreshID: refreshID, expiresAt: time.Now().UTC().Add(ttl)}
	return nil
}

func (s *memorySessionStore) Lookup(sessionID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[sessionID]
	if !ok {
		return "", false, nil
	}
	if time.Now().UTC().After(entry.expiresAt) {
		delete(s.items, sessionID)
		return "", false, nil
	}
	return entry.refreshID, true, nil
}

func (s *memorySessionStore) Revoke(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, sessionID)
	return nil
}

type redisKVClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisSessionStore struct {
	client redisKVClient
	prefix string
}

func NewRedisSessionStore(client *redis.Client) SessionStore {
	if client == nil {
		return nil
	}
	return &redisSessionStore{
		client: client,
		prefix: "auth:session:",
	}
}

func (s *redisSessionStore) Store(sessionID, refreshID string, ttl time.Duration) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, s.prefix+sessionID, refreshID, ttl).Err()
}

func (s *redisSessionStore) Lookup(sessionID string) (string, bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	refreshID, err := s.client.Get(ctx, s.prefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return refreshID, true, nil
}

func (s *redisSessionStore) Revoke(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return s.client.Del(ctx, s.prefix+sessionID).Err()
}
