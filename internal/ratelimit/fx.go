package ratelimit

import (
	"strings"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/brightclass/insight/internal/config"
)

var Module = fx.Module("rate.limit",
	fx.Provide(provideRedisClient),
	fx.Provide(NewTokenBucket),
	fx.Provide(NewLocker),
	fx.Provide(NewEventIngestLimiter),
)

// provideRedisClient returns nil when no redis address is configured;
// the limiter and job lock both tolerate that.
func provideRedisClient(cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}
