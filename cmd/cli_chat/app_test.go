package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"diet-coach/internal/config"
	"diet-coach/internal/realtime"
)

func newObservedApp(cfg *config.Config) (*app, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.WarnLevel)
	return &app{cfg: cfg, logger: zap.New(core)}, logs
}

func TestNewNotifier_FallsBackWithWarning(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		message string
	}{
		{"redis without addr", config.Config{RealtimeBackend: "redis"}, "redis realtime backend requested without REDIS_ADDR, using memory"},
		{"nats without url", config.Config{RealtimeBackend: "nats"}, "nats realtime backend requested without NATS_URL, using memory"},
		{"unknown backend", config.Config{RealtimeBackend: "kafka"}, "unknown realtime backend, using memory"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			a, logs := newObservedApp(&cfg)

			n := a.newNotifier()
			assert.IsType(t, &realtime.MemoryNotifier{}, n)
			require.Equal(t, 1, logs.Len())
			assert.Equal(t, tc.message, logs.All()[0].Message)
			assert.Nil(t, a.redis)
			assert.Nil(t, a.nats)
		})
	}
}

func TestNewNotifier_MemoryIsSilent(t *testing.T) {
	a, logs := newObservedApp(&config.Config{RealtimeBackend: "memory"})
	assert.IsType(t, &realtime.MemoryNotifier{}, a.newNotifier())
	assert.Zero(t, logs.Len())
}

func TestNewNotifier_RedisWithAddr(t *testing.T) {
	a, logs := newObservedApp(&config.Config{RealtimeBackend: "redis", RedisAddr: "127.0.0.1:6379"})
	n := a.newNotifier()
	defer a.redis.Close()

	assert.IsType(t, &realtime.RedisNotifier{}, n)
	assert.NotNil(t, a.redis)
	assert.Zero(t, logs.Len())
}
