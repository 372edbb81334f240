package service

import (
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/KartikLabhshetwar/oneurl/internal/model"
	"github.com/KartikLabhshetwar/oneurl/internal/repository"
	"github.com/KartikLabhshetwar/oneurl/pkg/logging"
)

// PurgeExpiredClickEvents 数据保留策略：删除超过保留期的点击事件。
// cron 定时触发，retention_days <= 0 表示永久保留。
func PurgeExpiredClickEvents() error {
	retentionDays := viper.GetInt("tracking.retention_days")
	if retentionDays <= 0 {
		return nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	res := repository.DB.Where("clicked_at < ?", cutoff).Delete(&model.ClickEvent{})
	if res.Error != nil {
		logging.Logger.Error("清理过期点击事件失败",
			zap.Time("cutoff", cutoff),
			zap.Error(res.Error),
		)
		return res.Error
	}

	if res.RowsAffected > 0 {
		logging.Logger.Info("清理过期点击事件完成",
			zap.Time("cutoff", cutoff),
			zap.Int64("deleted", res.RowsAffected),
		)
	}
	return nil
}
