package auth

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"

	"github.com/KartikLabhshetwar/oneurl/internal/apperrors"
)

// ContextUserKey 认证成功后写入 gin.Context 的用户 ID key
const ContextUserKey = "auth.userID"

// ParseToken 校验会话 JWT 并返回 subject（用户 ID）。
// 签发由外部身份服务完成，这里只做验签，属于系统边界。
func ParseToken(tokenString string) (string, error) {
	secret := viper.GetString("auth.jwt_secret")

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid session token")
	}
	return claims.Subject, nil
}

// RequireAuth 会话校验中间件
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(401, gin.H{"error": "Unauthorized"})
			return
		}

		userID, err := ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(ContextUserKey, userID)
		c.Next()
	}
}

// UserID 从上下文取认证用户 ID
func UserID(c *gin.Context) (string, error) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return "", apperrors.UnauthorizedError("Unauthorized")
	}
	id, _ := v.(string)
	if id == "" {
		return "", apperrors.UnauthorizedError("Unauthorized")
	}
	return id, nil
}
