package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/chatbubbles/internal/cache"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiter 按用户在固定窗口内限制后台写操作次数，limit<=0 表示不限制。
type RateLimiter struct {
	counter cache.Counter
	limit   int
	window  time.Duration
	logger  *zap.Logger
}

// NewRateLimiter 构造 RateLimiter
func NewRateLimiter(counter cache.Counter, limit int, window time.Duration, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{counter: counter, limit: limit, window: window, logger: logger}
}

// Allow 记录一次请求并返回是否仍在限额内，计数失败时放行。
func (l *RateLimiter) Allow(c *gin.Context, subject string) bool {
	if l == nil || l.counter == nil || l.limit <= 0 {
		return true
	}
	key := fmt.Sprintf("ratelimit:%s", subject)
	count, err := l.counter.Incr(c.Request.Context(), key, l.window)
	if err != nil {
		l.logger.Warn("rate limit counter failed", zap.String("key", key), zap.Error(err))
		return true
	}
	return count <= int64(l.limit)
}

// Middleware 对已登录用户限流，超限返回 429。
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c, rateLimitSubject(c)) {
			c.Header("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			respondError(c, http.StatusTooManyRequests, "操作过于频繁，请稍后再试")
			c.Abort()
			return
		}
		c.Next()
	}
}

func rateLimitSubject(c *gin.Context) string {
	if userID := sessions.Default(c).Get(sessionUserIDKey); userID != nil {
		return fmt.Sprintf("user:%v", userID)
	}
	return "ip:" + c.ClientIP()
}
