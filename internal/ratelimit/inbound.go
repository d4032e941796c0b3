package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/smallbiznis/bookline/internal/config"
)

const keyInboundPhone = "inbound:phone:%s"

const (
	defaultInboundRate  = 1.0
	defaultInboundBurst = 5
)

// InboundLimiter throttles webhook traffic per sender phone. A nil limiter
// allows everything, so deployments without Redis keep working.
type InboundLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewInboundLimiter(cfg config.Config) *InboundLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})

	return &InboundLimiter{
		bucket: NewTokenBucket(client),
		rate:   defaultInboundRate,
		burst:  defaultInboundBurst,
	}
}

func (l *InboundLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *InboundLimiter) AllowPhone(ctx context.Context, phone string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyInboundPhone, phone), l.rate, l.burst)
}
