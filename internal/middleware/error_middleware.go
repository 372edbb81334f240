package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KartikLabhshetwar/oneurl/internal/apperrors"
	"github.com/KartikLabhshetwar/oneurl/internal/i18n"
	"github.com/KartikLabhshetwar/oneurl/response"
)

// GlobalErrorMiddleware 全局错误中间件
func GlobalErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// 如果有错误发生
		if len(c.Errors) > 0 {
			for _, err := range c.Errors {
				var appErr *apperrors.AppError
				if errors.As(err.Err, &appErr) {
					// 词表里有对应 key 的消息（如校验器返回的 error.* key）翻译后返回，
					// 普通文案原样透传
					message := i18n.T(c.Request.Context(), appErr.Message, nil)
					c.AbortWithStatusJSON(appErr.Code, response.Error(message))
					return
				}
			}

			// 默认处理未定义的错误
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error("系统内部错误"))
			return
		}
	}
}
