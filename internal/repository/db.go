package repository

import (
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/KartikLabhshetwar/oneurl/internal/model"
	"github.com/KartikLabhshetwar/oneurl/pkg/logging"
)

var DB *gorm.DB

func InitDB(logger *zap.Logger, atomicLogLevel zap.AtomicLevel) {
	dsn := viper.GetString("db.dsn")
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logging.NewGormLogger(logger, logging.ToGormLogLevel(atomicLogLevel.Level())), // 注入 logger 并转换级别
		TranslateError: true,
	})
	if err != nil {
		logging.Logger.Fatal("Failed to connect database", zap.Error(err))
	}

	if err := Migrate(db); err != nil {
		logging.Logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	DB = db
}

// Migrate 执行自动迁移（测试环境复用）
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Profile{}, &model.Link{}, &model.ClickEvent{})
}
