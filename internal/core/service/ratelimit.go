package service

import (
	"golang.org/x/time/rate"

	"github.com/yndnr/respkv/pkg/cmap"
)

// RateLimiterRegistry holds one token bucket per client address.
type RateLimiterRegistry struct {
	limit    rate.Limit
	burst    int
	limiters *cmap.Map[string, *rate.Limiter]
}

// NewRateLimiterRegistry allows perSecond commands per client, with a burst
// of the same size. perSecond <= 0 disables limiting.
func NewRateLimiterRegistry(perSecond int) *RateLimiterRegistry {
	return &RateLimiterRegistry{
		limit:    rate.Limit(perSecond),
		burst:    perSecond,
		limiters: cmap.New[string, *rate.Limiter](),
	}
}

// Enabled reports whether limiting is active.
func (r *RateLimiterRegistry) Enabled() bool {
	return r != nil && r.burst > 0
}

// Allow consumes one token for client and reports whether it was available.
func (r *RateLimiterRegistry) Allow(client string) bool {
	if !r.Enabled() {
		return true
	}
	limiter, _ := r.limiters.GetOrSet(client, rate.NewLimiter(r.limit, r.burst))
	return limiter.Allow()
}

// Len returns the number of tracked clients.
func (r *RateLimiterRegistry) Len() int {
	if !r.Enabled() {
		return 0
	}
	return r.limiters.Count()
}
