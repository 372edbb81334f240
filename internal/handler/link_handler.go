package handler

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/KartikLabhshetwar/oneurl/internal/apperrors"
	"github.com/KartikLabhshetwar/oneurl/internal/auth"
	"github.com/KartikLabhshetwar/oneurl/internal/dto"
	"github.com/KartikLabhshetwar/oneurl/internal/model"
	"github.com/KartikLabhshetwar/oneurl/internal/service"
	"github.com/KartikLabhshetwar/oneurl/response"
)

// ListLinksHandler 链接列表（GET /api/links）
func ListLinksHandler(c *gin.Context) {
	userID, err := auth.UserID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	profile, err := service.GetProfileByUserID(userID)
	if err != nil {
		// 还没建 profile 返回空列表
		c.JSON(http.StatusOK, response.OK([]model.Link{}, "success"))
		return
	}

	links, err := service.GetLinksByProfile(profile.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response.OK(links, "success"))
}

// CreateLinkHandler 创建链接（POST /api/links）。
// 兼容单条创建和 onboarding 整组替换（links 数组优先）。
// 预览富化在后台执行，响应先行返回。
func CreateLinkHandler(c *gin.Context) {
	userID, err := auth.UserID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req dto.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// 检查错误是否为 ValidationErrors 类型
		if validationErrs, ok := err.(validator.ValidationErrors); ok && len(req.Links) == 0 {
			for _, e := range validationErrs {
				// 通过反射获取字段的 msg 标签值
				field, ok := reflect.TypeOf(req.LinkInput).FieldByName(e.Field())
				if !ok {
					continue
				}
				if customMsg := field.Tag.Get("msg"); customMsg != "" {
					_ = c.Error(apperrors.InvalidRequestError(customMsg))
					return
				}
			}
		}
		if len(req.Links) == 0 {
			zap.L().Warn("Request body binding failed",
				zap.Error(err),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
			)
			_ = c.Error(apperrors.InvalidRequestErrorDefault())
			return
		}
	}

	profile, err := service.GetOrCreateProfile(userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if len(req.Links) > 0 {
		links, err := service.ReplaceLinks(profile.ID, req.Links)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, response.OK(links, "Links replaced"))
		return
	}

	link, err := service.CreateLink(profile.ID, req.LinkInput)
	if err != nil {
		zap.L().Warn("Link creation failed",
			zap.Error(err),
			zap.String("url", req.URL),
		)
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response.OK(link, "Link created"))
}

// UpdateLinkHandler 部分更新链接（PATCH /api/links/:id）
func UpdateLinkHandler(c *gin.Context) {
	userID, err := auth.UserID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	linkID := c.Param("id")
	if linkID == "" {
		_ = c.Error(apperrors.InvalidRequestError("无效的链接 ID"))
		return
	}

	var req dto.UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zap.L().Warn("Request body binding failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		_ = c.Error(apperrors.InvalidRequestErrorDefault())
		return
	}

	profile, err := service.GetProfileByUserID(userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := service.UpdateLink(profile.ID, linkID, req); err != nil {
		zap.L().Warn("Link update failed",
			zap.Error(err),
			zap.String("link_id", linkID),
		)
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response.OK(struct{}{}, "Link updated"))
}

// DeleteLinkHandler 删除链接（DELETE /api/links/:id）
func DeleteLinkHandler(c *gin.Context) {
	userID, err := auth.UserID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	profile, err := service.GetProfileByUserID(userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := service.DeleteLink(profile.ID, c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response.OK(struct{}{}, "Link deleted"))
}

// ReorderLinksHandler 重排序（POST /api/links/reorder）
func ReorderLinksHandler(c *gin.Context) {
	userID, err := auth.UserID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req dto.ReorderLinksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.InvalidRequestError("linkIds is required"))
		return
	}

	profile, err := service.GetProfileByUserID(userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := service.ReorderLinks(profile.ID, req.LinkIDs); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response.OK(struct{}{}, "Links reordered"))
}
