package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/account-service/internal/config"
)

// NewRateLimit returns a fixed-window limiter backed by Redis. Each key gets
// cfg.Limit requests per cfg.Window. With no Redis client the middleware is
// a pass-through, and Redis errors let the request through.
func NewRateLimit(cfg config.RateLimitConfig, rdb redis.Cmdable, log zerolog.Logger) echo.MiddlewareFunc {
	return rateLimit(cfg, rdb, log, time.Now)
}

func rateLimit(cfg config.RateLimitConfig, rdb redis.Cmdable, log zerolog.Logger, now func() time.Time) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	window := cfg.Window
	if window < time.Second {
		window = time.Second
	}
	limit := max(cfg.Limit, 1)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			t := now()
			start := t.Truncate(window)
			reset := start.Add(window)
			key := buildRateKey(cfg, c) + ":" + strconv.FormatInt(start.Unix(), 10)

			ctx := c.Request().Context()
			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				log.Warn().Err(err).Msg("rate limit check failed")
				return next(c)
			}
			if n == 1 {
				if err := rdb.Expire(ctx, key, window).Err(); err != nil {
					log.Warn().Err(err).Msg("rate limit expire failed")
				}
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(max(int64(limit)-n, 0), 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}

			if n > int64(limit) {
				retry := int(reset.Sub(t).Round(time.Second) / time.Second)
				h.Set("Retry-After", strconv.Itoa(max(retry, 1)))
				log.Info().Str("route", c.Path()).Str("ip", c.RealIP()).Msg("rate limit exceeded")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := userID(c)
	route := c.Request().Method + " " + c.Path()

	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", uid)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", uid)
	case "user_route":
		parts = append(parts, "user", uid, "route", route)
	case "ip_user_route":
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	default: // ip_route
		parts = append(parts, "ip", ip, "route", route)
	}
	return strings.Join(parts, ":")
}
