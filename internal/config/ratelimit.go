package config

import "time"

// RateLimitConfig controls the fixed-window limiter applied to the auth
// routes. Limit requests are allowed per Window for each key; the key is
// built from the client IP and the route according to KeyStrategy.
type RateLimitConfig struct {
	Enabled     bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Limit       int           `env:"RATE_LIMIT" envDefault:"10"`
	Window      time.Duration `env:"RATE_LIMIT_PER" envDefault:"60s"`
	KeyStrategy string        `env:"RATE_LIMIT_KEY_STRATEGY" envDefault:"ip_route"`
	Prefix      string        `env:"RATE_LIMIT_PREFIX" envDefault:"rl"`
	Debug       bool          `env:"RATE_LIMIT_DEBUG" envDefault:"false"`
}

// normalize clamps values that would make the limiter useless.
func (r *RateLimitConfig) normalize() {
	if r.Limit < 1 {
		r.Limit = 1
	}
	if r.Window < time.Second {
		r.Window = time.Second
	}
	if r.Prefix == "" {
		r.Prefix = "rl"
	}
}
