package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KartikLabhshetwar/oneurl/internal/apperrors"
	"github.com/KartikLabhshetwar/oneurl/internal/dto"
	"github.com/KartikLabhshetwar/oneurl/internal/service"
)

// TrackClickHandler 公开打点接口（POST /api/track）。
// 响应形态固定：成功 {success,tracked,reason,idempotencyKey}；
// 链接缺失/停用 404；重试耗尽 503 并带 retry 标记。
func TrackClickHandler(c *gin.Context) {
	var req dto.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zap.L().Warn("Request body binding failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		_ = c.Error(apperrors.InvalidRequestError("Missing linkId"))
		return
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	requestURL := scheme + "://" + c.Request.Host + c.Request.RequestURI

	fact := service.DeriveClickFact(req, c.Request.Header, requestURL)

	resp, err := service.TrackClick(c.Request.Context(), fact)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == http.StatusServiceUnavailable {
			// 重试耗尽：明确告诉客户端可以稍后再试，绝不静默吞掉
			c.JSON(http.StatusServiceUnavailable, dto.TrackFailureResponse{
				Success: false,
				Error:   appErr.Message,
				Retry:   true,
			})
			return
		}
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
