package ratelimit

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/partnerpay/settlo/internal/actorctx"
	"github.com/partnerpay/settlo/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewLocker),
	fx.Provide(NewTokenBucket),
	fx.Provide(NewResolveLimiter),
)

// NewRedisClient returns nil when the limiter is disabled; consumers degrade
// to database-level locking.
func NewRedisClient(cfg config.Config, log *zap.Logger) *redis.Client {
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RedisAddr == "" {
		return nil
	}
	log.Info("rate limit redis enabled", zap.String("addr", cfg.RateLimit.RedisAddr))
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	})
}

// ResolveLimiter throttles the pricing resolve endpoint per acting entity.
type ResolveLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
	log    *zap.Logger
}

func NewResolveLimiter(cfg config.Config, bucket *TokenBucket, log *zap.Logger) *ResolveLimiter {
	if bucket == nil {
		return nil
	}
	return &ResolveLimiter{
		bucket: bucket,
		rate:   cfg.RateLimit.ResolveRate,
		burst:  cfg.RateLimit.ResolveBurst,
		log:    log.Named("ratelimit"),
	}
}

// Middleware fails open on limiter errors; pricing availability outranks
// throttling accuracy.
func (rl *ResolveLimiter) Middleware() gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		key := "settlo:resolve:anonymous"
		if actorID, _, ok := actorctx.ActorFromContext(c.Request.Context()); ok {
			key = "settlo:resolve:" + actorID.String()
		}

		res, err := rl.bucket.Allow(c.Request.Context(), key, rl.rate, rl.burst)
		if err != nil {
			rl.log.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			retry := res.RetryAfter
			if retry < time.Second {
				retry = time.Second
			}
			c.Header("Retry-After", retry.Truncate(time.Second).String())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate_limited",
			})
			return
		}
		c.Next()
	}
}
