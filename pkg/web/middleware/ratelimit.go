package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/atmquant/atmquant/pkg/logger"
	"github.com/atmquant/atmquant/pkg/web/errors"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// RequestsPerSecond 每秒请求数，0 表示不限流
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	// Burst 突发容量
	Burst int `mapstructure:"burst" validate:"gte=0"`
	// SkipPaths 跳过的路径，如 /healthz
	SkipPaths []string `mapstructure:"skip_paths"`
	// WaitMode 等待模式（true=等待，false=拒绝）
	WaitMode bool `mapstructure:"wait_mode"`
	// WaitTimeout 等待超时
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
}

// Enabled 是否开启限流
func (c RateLimitConfig) Enabled() bool {
	return c.RequestsPerSecond > 0
}

// RateLimiter 全局令牌桶
type RateLimiter struct {
	cfg     RateLimitConfig
	limiter *rate.Limiter
	logger  logger.Logger
}

// NewRateLimiter 创建限流器
func NewRateLimiter(l logger.Logger, cfg RateLimitConfig) *RateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = max(1, int(cfg.RequestsPerSecond))
	}
	return &RateLimiter{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		logger:  logger.OrNoop(l),
	}
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

// Wait 等待直到允许请求
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// RateLimit 限流中间件
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	skipPaths := make(map[string]struct{}, len(limiter.cfg.SkipPaths))
	for _, path := range limiter.cfg.SkipPaths {
		skipPaths[path] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if _, skip := skipPaths[path]; skip {
			c.Next()
			return
		}

		if limiter.cfg.WaitMode {
			ctx := c.Request.Context()
			if limiter.cfg.WaitTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, limiter.cfg.WaitTimeout)
				defer cancel()
			}

			if err := limiter.Wait(ctx); err != nil {
				limiter.logger.Warn("rate limit wait timeout", "path", path, "error", err)
				abortWithRateLimitError(c)
				return
			}
		} else if !limiter.Allow() {
			limiter.logger.Warn("rate limit exceeded", "path", path, "ip", c.ClientIP())
			abortWithRateLimitError(c)
			return
		}

		c.Next()
	}
}

func abortWithRateLimitError(c *gin.Context) {
	c.Header("Retry-After", strconv.Itoa(1))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"code":    errors.CodeRateLimited,
		"message": "too many requests",
		"data":    nil,
	})
}
