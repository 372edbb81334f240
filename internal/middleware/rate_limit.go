package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/KartikLabhshetwar/oneurl/constant"
	"github.com/KartikLabhshetwar/oneurl/internal/repository"
	"github.com/KartikLabhshetwar/oneurl/response"
)

// RateLimit 固定窗口限流中间件，按客户端 IP + 层级计数。
// api 层级挂在公开的打点路由上，strict 层级挂在昂贵的外部抓取路由上。
// 被拒绝的请求返回 429 并带 Retry-After，让正常客户端知道要退避。
func RateLimit(tier string) gin.HandlerFunc {
	maxKey := "rate_limit." + tier + ".max"
	windowKey := "rate_limit." + tier + ".window_seconds"

	return func(c *gin.Context) {
		max := viper.GetInt64(maxKey)
		windowSeconds := viper.GetInt(windowKey)
		if max <= 0 || windowSeconds <= 0 {
			// 未配置时不限流
			c.Next()
			return
		}
		window := time.Duration(windowSeconds) * time.Second

		key := constant.GetRateLimitKey(tier, c.ClientIP())
		n, err := repository.Counters.Incr(key, window)
		if err != nil {
			// 计数器故障时放行，限流是保护手段不是功能本身
			zap.L().Warn("rate limit counter failed",
				zap.String("tier", tier),
				zap.String("client_ip", c.ClientIP()),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if n > max {
			c.Header("Retry-After", strconv.Itoa(windowSeconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Error("Too many requests, please retry later"))
			return
		}

		c.Next()
	}
}
