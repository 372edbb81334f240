package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KartikLabhshetwar/oneurl/internal/apperrors"
	"github.com/KartikLabhshetwar/oneurl/internal/auth"
	"github.com/KartikLabhshetwar/oneurl/internal/dto"
	"github.com/KartikLabhshetwar/oneurl/internal/service"
	"github.com/KartikLabhshetwar/oneurl/response"
)

// GetProfileHandler 获取个人主页（GET /api/profile）
func GetProfileHandler(c *gin.Context) {
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

	resp := dto.ProfileResponse{
		Name:        profile.Name,
		Bio:         profile.Bio,
		Username:    profile.Username,
		Title:       profile.Title,
		Theme:       profile.Theme,
		CalLink:     profile.CalLink,
		AvatarURL:   profile.AvatarURL,
		IsPublished: profile.IsPublished,
	}
	c.JSON(http.StatusOK, response.OK(resp, "success"))
}

// UpdateProfileHandler 更新个人主页（PATCH /api/profile）
func UpdateProfileHandler(c *gin.Context) {
	userID, err := auth.UserID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zap.L().Warn("Request body binding failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		_ = c.Error(apperrors.InvalidRequestErrorDefault())
		return
	}

	if err := service.UpdateProfile(userID, req); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response.OK(struct{}{}, "Profile updated"))
}

// PublishProfileHandler 上线/下线主页（POST /api/profile/publish）
func PublishProfileHandler(c *gin.Context) {
	userID, err := auth.UserID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req struct {
		Published bool `json:"published"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.InvalidRequestErrorDefault())
		return
	}

	if err := service.PublishProfile(userID, req.Published); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response.OK(struct{}{}, "Profile publish state updated"))
}

// UploadAvatarHandler 上传头像（POST /api/profile/avatar，multipart 表单字段 file）
func UploadAvatarHandler(c *gin.Context) {
	userID, err := auth.UserID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		_ = c.Error(apperrors.InvalidRequestError("Missing avatar file"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		_ = c.Error(apperrors.SystemErrorDefault())
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	avatarURL, err := service.UploadAvatar(c.Request.Context(), userID, contentType, file, fileHeader.Size)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response.OK(gin.H{"avatarUrl": avatarURL}, "Avatar uploaded"))
}
