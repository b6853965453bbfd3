package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort       string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL    string `env:"DATABASE_URL,required"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
	Timezone       string `env:"TIMEZONE" envDefault:"Local"`

	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	NATSURL       string `env:"NATS_URL"`

	// RealtimeBackend elige el feed de cambios: memory, redis o nats.
	RealtimeBackend string `env:"REALTIME_BACKEND" envDefault:"memory"`

	UploadDir     string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	UploadBaseURL string `env:"UPLOAD_BASE_URL" envDefault:"/uploads"`
	MaxUploadMB   int    `env:"MAX_UPLOAD_MB" envDefault:"10"`

	ChatResyncSeconds  int `env:"CHAT_RESYNC_SECONDS" envDefault:"30"`
	ChatMaxRetries     int `env:"CHAT_MAX_RETRIES" envDefault:"5"`
	ChatRetryBackoffMS int `env:"CHAT_RETRY_BACKOFF_MS" envDefault:"500"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Location resuelve la zona horaria usada para fechas "locales" (agrupado, progreso diario).
func (c *Config) Location() *time.Location {
	if c == nil || c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(c.MaxUploadMB) << 20
}

func (c *Config) ResyncInterval() time.Duration {
	if c.ChatResyncSeconds <= 0 {
		return 0
	}
	return time.Duration(c.ChatResyncSeconds) * time.Second
}

func (c *Config) RetryBackoff() time.Duration {
	if c.ChatRetryBackoffMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.ChatRetryBackoffMS) * time.Millisecond
}
