package constant

import (
	"fmt"
)

// 常量定义
const (
	BasePrefix = "oneurl:"
	Separator  = ":"
)

// Redis 键模板
const (
	IdempotencyKey = BasePrefix + "idem" + Separator + "%s"                  // oneurl:idem:<fingerprint>
	RateLimitKey   = BasePrefix + "rl" + Separator + "%s" + Separator + "%s" // oneurl:rl:<tier>:<client>
)

// 限流层级
const (
	RateLimitTierAPI    = "api"
	RateLimitTierStrict = "strict"
)

// GetIdempotencyKey 生成点击去重 key
func GetIdempotencyKey(fingerprint string) string {
	return fmt.Sprintf(IdempotencyKey, fingerprint)
}

// GetRateLimitKey 生成限流计数器 key（格式：oneurl:rl:<tier>:<client>）
func GetRateLimitKey(tier, client string) string {
	return fmt.Sprintf(RateLimitKey, tier, client)
}
