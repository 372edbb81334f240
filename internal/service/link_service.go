package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KartikLabhshetwar/oneurl/internal/apperrors"
	"github.com/KartikLabhshetwar/oneurl/internal/dto"
	"github.com/KartikLabhshetwar/oneurl/internal/model"
	"github.com/KartikLabhshetwar/oneurl/internal/preview"
	"github.com/KartikLabhshetwar/oneurl/internal/repository"
	"github.com/KartikLabhshetwar/oneurl/internal/storage"
	"github.com/KartikLabhshetwar/oneurl/pkg/logging"
)

// PreviewPool 后台预览流水线，main 中注入；为 nil 时跳过预览富化
var PreviewPool *preview.Pool

// GetLinksByProfile 按展示顺序返回某个 profile 的全部链接
func GetLinksByProfile(profileID string) ([]model.Link, error) {
	var links []model.Link
	if err := repository.DB.
		Where("profile_id = ?", profileID).
		Order("position ASC, created_at ASC").
		Find(&links).Error; err != nil {
		return nil, apperrors.SystemError("查询链接列表失败: " + err.Error())
	}
	return links, nil
}

// CreateLink 创建单条链接并触发异步预览富化。
// 创建请求立即返回，预览字段之后由流水线回填（最终一致）。
func CreateLink(profileID string, in dto.LinkInput) (*model.Link, error) {
	if err := in.Validate(); err != nil {
		return nil, apperrors.InvalidRequestError(err.Error())
	}

	var maxPosition int
	row := repository.DB.Model(&model.Link{}).
		Where("profile_id = ?", profileID).
		Select("COALESCE(MAX(position), -1)").
		Row()
	if err := row.Scan(&maxPosition); err != nil {
		maxPosition = -1
	}

	link := &model.Link{
		ProfileID: profileID,
		Title:     in.Title,
		URL:       in.URL,
		Icon:      in.Icon,
		Position:  maxPosition + 1,
		IsActive:  true,
	}
	if err := repository.DB.Create(link).Error; err != nil {
		logging.Logger.Error("创建链接失败", zap.String("profile_id", profileID), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}

	enqueuePreview(link)
	return link, nil
}

// ReplaceLinks onboarding 阶段整组替换：删掉旧链接，按数组顺序重建
func ReplaceLinks(profileID string, inputs []dto.LinkInput) ([]model.Link, error) {
	for i := range inputs {
		if err := inputs[i].Validate(); err != nil {
			return nil, apperrors.InvalidRequestError(err.Error())
		}
	}

	var created []model.Link
	err := repository.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("profile_id = ?", profileID).Delete(&model.Link{}).Error; err != nil {
			return err
		}
		for i, in := range inputs {
			link := model.Link{
				ProfileID: profileID,
				Title:     in.Title,
				URL:       in.URL,
				Icon:      in.Icon,
				Position:  i,
				IsActive:  true,
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
			created = append(created, link)
		}
		return nil
	})
	if err != nil {
		logging.Logger.Error("批量替换链接失败", zap.String("profile_id", profileID), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}

	for i := range created {
		enqueuePreview(&created[i])
	}
	return created, nil
}

// UpdateLink 部分更新链接（归属校验先行）。
// 预览字段不在这里更新，它们只属于后台镜像流水线。
func UpdateLink(profileID, linkID string, req dto.UpdateLinkRequest) error {
	var link model.Link
	if err := repository.DB.Where("id = ? AND profile_id = ?", linkID, profileID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFoundError("Link not found")
		}
		return apperrors.SystemError("查询链接失败: " + err.Error())
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.URL != nil {
		updates["url"] = *req.URL
	}
	if req.Icon != nil {
		updates["icon"] = *req.Icon
	}
	if req.Position != nil {
		updates["position"] = *req.Position
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return nil // 无需更新
	}

	if err := repository.DB.Model(&link).Updates(updates).Error; err != nil {
		logging.Logger.Error("更新链接失败", zap.String("link_id", linkID), zap.Error(err))
		return apperrors.SystemErrorDefault()
	}
	return nil
}

// DeleteLink 删除链接，连带清理已转存的预览图（best-effort）
func DeleteLink(profileID, linkID string) error {
	var link model.Link
	if err := repository.DB.Where("id = ? AND profile_id = ?", linkID, profileID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFoundError("Link not found")
		}
		return apperrors.SystemError("查询链接失败: " + err.Error())
	}

	if err := repository.DB.Delete(&link).Error; err != nil {
		logging.Logger.Error("删除链接失败", zap.String("link_id", linkID), zap.Error(err))
		return apperrors.SystemErrorDefault()
	}

	if link.PreviewImageURL != nil && storage.Storage != nil {
		if key := preview.ObjectKeyFromURL(*link.PreviewImageURL); key != "" {
			if err := storage.Storage.Delete(context.Background(), key); err != nil {
				logging.Logger.Warn("删除预览图失败",
					zap.String("link_id", linkID),
					zap.String("object_key", key),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// ReorderLinks 按给定顺序重排，ID 集合必须全部属于该 profile
func ReorderLinks(profileID string, linkIDs []string) error {
	var links []model.Link
	if err := repository.DB.Select("id").Where("profile_id = ?", profileID).Find(&links).Error; err != nil {
		return apperrors.SystemError("查询链接列表失败: " + err.Error())
	}

	owned := make(map[string]bool, len(links))
	for _, l := range links {
		owned[l.ID] = true
	}
	for _, id := range linkIDs {
		if !owned[id] {
			return apperrors.InvalidRequestError("Invalid link IDs provided")
		}
	}

	err := repository.DB.Transaction(func(tx *gorm.DB) error {
		for i, id := range linkIDs {
			if err := tx.Model(&model.Link{}).
				Where("id = ?", id).
				Update("position", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logging.Logger.Error("重排链接失败", zap.String("profile_id", profileID), zap.Error(err))
		return apperrors.SystemErrorDefault()
	}
	return nil
}

// enqueuePreview 无 icon 的链接才走预览富化：带 icon 的是社交/品牌图标，跳过
func enqueuePreview(link *model.Link) {
	if PreviewPool == nil {
		return
	}
	if link.Icon != nil && *link.Icon != "" {
		return
	}
	PreviewPool.Enqueue(preview.Job{LinkID: link.ID, URL: link.URL})
}
