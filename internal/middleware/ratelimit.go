package middleware

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter 令牌桶限流器，桶容量为每秒速率的两倍，初始只装满一半
type RateLimiter struct {
	lim *rate.Limiter
	now func() time.Time
}

// NewRateLimiter 创建限流器
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	return newRateLimiterAt(requestsPerSecond, time.Now())
}

func newRateLimiterAt(requestsPerSecond float64, start time.Time) *RateLimiter {
	burst := int(math.Ceil(requestsPerSecond * 2)) // 允许突发流量
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	if initial := int(requestsPerSecond); initial > 0 && initial < burst {
		lim.AllowN(start, burst-initial)
	}
	return &RateLimiter{lim: lim, now: time.Now}
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow() bool {
	return rl.lim.AllowN(rl.now(), 1)
}

// RateLimit 限流中间件
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   true,
				"code":    "RATE_LIMITED",
				"message": "请求过于频繁，请稍后重试",
			})
			return
		}
		c.Next()
	}
}
