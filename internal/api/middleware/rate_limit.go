package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Tahatra21/solarhub-sub000/pkg/redis"
	"github.com/Tahatra21/solarhub-sub000/pkg/response"
)

// RateLimitOptions 限流参数
type RateLimitOptions struct {
	Limit  int           // Redis 滑动窗口内允许的最大请求数
	Window time.Duration // 滑动窗口时长
	RPS    float64       // Redis 不可用时进程内令牌桶速率
	Burst  int
}

// RateLimit 基于 Redis 滑动窗口的速率限制中间件
// rdb 为 nil 或 Redis 出错时降级为按 IP 的进程内令牌桶
func RateLimit(rdb *redis.Client, opts RateLimitOptions) gin.HandlerFunc {
	local := newIPLimiter(opts.RPS, opts.Burst)

	return func(c *gin.Context) {
		allowed := true
		useLocal := rdb == nil

		if !useLocal {
			key := fmt.Sprintf("rate_limit:%s:%s", c.ClientIP(), c.FullPath())
			ok, err := rdb.CheckRateLimit(c.Request.Context(), key, opts.Limit, opts.Window)
			if err != nil {
				useLocal = true
			} else {
				allowed = ok
			}
		}
		if useLocal {
			allowed = local.allow(c.ClientIP())
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}

// ipLimiter 按客户端 IP 划分的令牌桶；rps <= 0 时不限流
type ipLimiter struct {
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newIPLimiter(rps float64, burst int) *ipLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ipLimiter{rps: rate.Limit(rps), burst: burst, limiters: make(map[string]*rate.Limiter)}
}

func (l *ipLimiter) allow(ip string) bool {
	if l.rps <= 0 {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[ip]
	if !ok {
		// 登录接口的来源 IP 数量有限，超过上限时整体重置
		if len(l.limiters) >= 10000 {
			l.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[ip] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
