package shopify

import "golang.org/x/time/rate"

// RateLimitConfig holds the outbound request budget for one shop.
type RateLimitConfig struct {
	// RPS is the sustained request rate.
	RPS float64
	// Burst is the bucket size.
	Burst int
}

// DefaultRateLimitConfig matches the REST Admin API leaky bucket for
// standard plans: 40 request bucket, 2 requests per second leak rate.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:   2,
		Burst: 40,
	}
}

// NewLimiter builds a token bucket limiter from the config. Zero values fall
// back to DefaultRateLimitConfig.
func (c RateLimitConfig) NewLimiter() *rate.Limiter {
	def := DefaultRateLimitConfig()
	if c.RPS <= 0 {
		c.RPS = def.RPS
	}
	if c.Burst <= 0 {
		c.Burst = def.Burst
	}
	return rate.NewLimiter(rate.Limit(c.RPS), c.Burst)
}
