package config

// Redis backs the rate limiter, the response cache and optionally the token
// revocation set. If the server cannot be reached at startup NewRedisClient
// returns nil and callers degrade by disabling those features.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds connection settings. Addr wins over Host/Port when set.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     string `env:"REDIS_PORT" envDefault:"6379"`
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	TLS      bool   `env:"REDIS_TLS" envDefault:"false"`
}

// Address resolves the host:port to dial.
func (r RedisConfig) Address() string {
	if r.Addr != "" {
		return r.Addr
	}
	return r.Host + ":" + r.Port
}

// NewRedisClient dials Redis and pings it with a short timeout. The returned
// client is nil if a connection cannot be established.
func NewRedisClient(ctx context.Context, cfg RedisConfig, log zerolog.Logger) *redis.Client {
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Address(),
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Address()).Msg("redis unavailable, rate limiting and caching disabled")
		_ = client.Close()
		return nil
	}
	log.Info().Str("addr", cfg.Address()).Msg("redis connected")
	return client
}
