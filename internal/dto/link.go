package dto

import (
	"github.com/gin-gonic/gin"

	"github.com/KartikLabhshetwar/oneurl/pkg/utils"
)

// LinkInput 单条链接的创建参数
type LinkInput struct {
	Title string  `json:"title" binding:"required,max=800" msg:"Title is required and must be at most 800 characters"`
	URL   string  `json:"url" binding:"required,url" msg:"Invalid URL format"`
	Icon  *string `json:"icon"`
}

// CreateLinkRequest 创建链接的请求体。
// 兼容两种形态：单条链接，或 onboarding 阶段整组替换（links 数组优先）。
type CreateLinkRequest struct {
	LinkInput
	Links []LinkInput `json:"links"`
}

// Validate 自定义验证逻辑
func (r *LinkInput) Validate() error {
	if err := utils.ValidateLinkTitle(r.Title); err != nil {
		return gin.Error{
			Err:  err,
			Type: gin.ErrorTypeBind,
		}
	}

	if err := utils.ValidateTargetURL(r.URL); err != nil {
		return gin.Error{
			Err:  err,
			Type: gin.ErrorTypeBind,
		}
	}

	return nil
}

// UpdateLinkRequest 部分更新链接的请求体，nil 字段不更新
type UpdateLinkRequest struct {
	Title    *string `json:"title"`
	URL      *string `json:"url"`
	Icon     *string `json:"icon"`
	Position *int    `json:"position"`
	IsActive *bool   `json:"isActive"`
}

// ReorderLinksRequest 重排序请求体
type ReorderLinksRequest struct {
	LinkIDs []string `json:"linkIds" binding:"required" msg:"linkIds is required"`
}
