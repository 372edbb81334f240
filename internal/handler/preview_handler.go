package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KartikLabhshetwar/oneurl/internal/apperrors"
	"github.com/KartikLabhshetwar/oneurl/internal/preview"
	"github.com/KartikLabhshetwar/oneurl/pkg/utils"
)

// PreviewFetcher 同步预览接口使用的抓取器，main 中注入
var PreviewFetcher *preview.Fetcher

// GetPreviewHandler 同步抓取页面元数据（GET /api/preview?url=），onboarding 预览用。
// 挂在 strict 限流层级后面。抓取失败降级为全空 payload，不向调用方抛错。
func GetPreviewHandler(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		_ = c.Error(apperrors.InvalidRequestError("URL parameter is required"))
		return
	}

	validURL, err := utils.NormalizeURL(rawURL)
	if err != nil {
		_ = c.Error(apperrors.InvalidRequestError("Invalid URL format"))
		return
	}

	meta, err := PreviewFetcher.Fetch(c.Request.Context(), validURL)
	if err != nil {
		zap.L().Info("同步预览抓取失败",
			zap.String("url", validURL),
			zap.Error(err),
		)
		c.JSON(http.StatusOK, gin.H{
			"title":       nil,
			"description": nil,
			"image":       nil,
			"url":         validURL,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"title":       nullable(meta.Title),
		"description": nullable(meta.Description),
		"image":       nullable(meta.ImageURL),
		"url":         validURL,
	})
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
