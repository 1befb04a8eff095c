package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/yungbote/cookgpt-backend/internal/http/response"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

const rateLimitPrefix = "cookgpt:ratelimit"

// RateLimitConfig limits requests per client IP. Rate uses the limiter
// format, e.g. "10-M" for ten per minute.
type RateLimitConfig struct {
	Rate  string
	Redis goredis.UniversalClient
}

// NewRateLimitStore keeps counters in Redis when a client is given and in
// process memory otherwise.
func NewRateLimitStore(client goredis.UniversalClient, log *logger.Logger) limiter.Store {
	if client != nil {
		store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: rateLimitPrefix})
		if err == nil {
			return store
		}
		log.Warn("Redis rate limit store unavailable, using memory", "error", err)
	}
	return memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: rateLimitPrefix})
}

// RateLimit returns a middleware enforcing cfg.Rate per client IP.
func RateLimit(cfg RateLimitConfig, log *logger.Logger) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		return nil, err
	}
	lim := limiter.New(NewRateLimitStore(cfg.Redis, log), rate)
	return mgin.NewMiddleware(lim,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			response.RespondError(c, http.StatusTooManyRequests, "rate_limited", errors.New("Too many requests, try again later"))
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			log.Warn("Rate limiter failed, letting request through", "error", err)
			c.Next()
		}),
	), nil
}
