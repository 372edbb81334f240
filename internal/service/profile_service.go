package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KartikLabhshetwar/oneurl/internal/apperrors"
	"github.com/KartikLabhshetwar/oneurl/internal/dto"
	"github.com/KartikLabhshetwar/oneurl/internal/model"
	"github.com/KartikLabhshetwar/oneurl/internal/repository"
	"github.com/KartikLabhshetwar/oneurl/internal/storage"
	"github.com/KartikLabhshetwar/oneurl/pkg/logging"
	"github.com/KartikLabhshetwar/oneurl/pkg/utils"
)

// GetProfileByUserID 按用户 ID 查 profile
func GetProfileByUserID(userID string) (*model.Profile, error) {
	var profile model.Profile
	if err := repository.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundError("Profile not found")
		}
		return nil, apperrors.SystemError("查询 profile 失败: " + err.Error())
	}
	return &profile, nil
}

// GetOrCreateProfile 首次写操作时惰性创建 profile
func GetOrCreateProfile(userID string) (*model.Profile, error) {
	var profile model.Profile
	err := repository.DB.Where("user_id = ?", userID).First(&profile).Error
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.SystemError("查询 profile 失败: " + err.Error())
	}

	profile = model.Profile{UserID: userID}
	if err := repository.DB.Create(&profile).Error; err != nil {
		logging.Logger.Error("创建 profile 失败", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}
	return &profile, nil
}

// UpdateProfile 部分更新 profile 字段
func UpdateProfile(userID string, req dto.UpdateProfileRequest) error {
	profile, err := GetOrCreateProfile(userID)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if req.Username != nil {
		username := strings.ToLower(*req.Username)
		if err := utils.ValidateUsername(username); err != nil {
			return apperrors.InvalidRequestError(err.Error())
		}
		var count int64
		if err := repository.DB.Model(&model.Profile{}).
			Where("username = ? AND id <> ?", username, profile.ID).
			Count(&count).Error; err != nil {
			return apperrors.SystemError("查询用户名失败: " + err.Error())
		}
		if count > 0 {
			return apperrors.BusinessError(http.StatusConflict, "Username already taken")
		}
		updates["username"] = username
	}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Theme != nil {
		updates["theme"] = *req.Theme
	}
	if req.CalLink != nil {
		updates["cal_link"] = *req.CalLink
	}
	if len(updates) == 0 {
		return nil
	}

	if err := repository.DB.Model(profile).Updates(updates).Error; err != nil {
		logging.Logger.Error("更新 profile 失败", zap.String("user_id", userID), zap.Error(err))
		return apperrors.SystemErrorDefault()
	}
	return nil
}

// PublishProfile 上线/下线个人主页
func PublishProfile(userID string, published bool) error {
	profile, err := GetOrCreateProfile(userID)
	if err != nil {
		return err
	}
	if err := repository.DB.Model(profile).Update("is_published", published).Error; err != nil {
		return apperrors.SystemError("更新发布状态失败: " + err.Error())
	}
	return nil
}

// UploadAvatar 上传头像到对象存储并回写 avatar_url，旧头像 best-effort 清理
func UploadAvatar(ctx context.Context, userID, contentType string, body io.Reader, size int64) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", apperrors.InvalidRequestError("Avatar must be an image")
	}

	profile, err := GetOrCreateProfile(userID)
	if err != nil {
		return "", err
	}

	// 纳秒时间戳保证连续上传不会覆盖同一个 key
	key := fmt.Sprintf("avatar-%s-%d", profile.ID, time.Now().UnixNano())
	avatarURL, err := storage.Storage.Upload(ctx, key, contentType, body, size)
	if err != nil {
		logging.Logger.Error("头像上传失败", zap.String("user_id", userID), zap.Error(err))
		return "", apperrors.SystemError("Avatar upload failed")
	}

	oldURL := profile.AvatarURL
	if err := repository.DB.Model(profile).Update("avatar_url", avatarURL).Error; err != nil {
		return "", apperrors.SystemError("更新头像失败: " + err.Error())
	}

	if oldURL != nil && *oldURL != "" {
		parts := strings.Split(strings.TrimRight(*oldURL, "/"), "/")
		oldKey := parts[len(parts)-1]
		if strings.HasPrefix(oldKey, "avatar-") {
			if err := storage.Storage.Delete(ctx, oldKey); err != nil {
				logging.Logger.Warn("删除旧头像失败", zap.String("object_key", oldKey), zap.Error(err))
			}
		}
	}

	return avatarURL, nil
}
