package service

import (
	"testing"

	"github.com/spf13/viper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/KartikLabhshetwar/oneurl/internal/model"
	"github.com/KartikLabhshetwar/oneurl/internal/repository"
	"github.com/KartikLabhshetwar/oneurl/internal/storage"
	"github.com/KartikLabhshetwar/oneurl/pkg/logging"
)

// initTestEnv 搭建与 main.go 等价的测试环境：
// 内存 SQLite 代替 MySQL，内存实现代替 Redis 存储
func initTestEnv(t *testing.T) {
	t.Helper()

	logging.InitTestLogger()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// 单连接，保证 :memory: 始终指向同一个库
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := repository.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	repository.DB = db
	repository.Idempotency = repository.NewMemoryIdempotencyStore()
	repository.Counters = repository.NewMemoryCounterStore()
	storage.Storage = storage.NewMemoryStorage("http://storage.test/oneurl")
	PreviewPool = nil

	viper.Set("tracking.idempotency_window_seconds", 60)
	viper.Set("tracking.max_retries", 3)
	viper.Set("tracking.retention_days", 30)
}

func mustCreate(t *testing.T, value interface{}) {
	t.Helper()
	if err := repository.DB.Create(value).Error; err != nil {
		t.Fatalf("Failed to create fixture %T: %v", value, err)
	}
}

func newProfile(t *testing.T, userID, username string) *model.Profile {
	t.Helper()
	p := &model.Profile{UserID: userID, Username: &username}
	mustCreate(t, p)
	return p
}

func newLink(t *testing.T, profileID, title string, position int, active bool) *model.Link {
	t.Helper()
	l := &model.Link{
		ProfileID: profileID,
		Title:     title,
		URL:       "https://example.com/" + title,
		Position:  position,
		IsActive:  true,
	}
	mustCreate(t, l)
	// 默认值字段的零值在 Create 时会被跳过，停用状态单独更新
	if !active {
		if err := repository.DB.Model(l).Update("is_active", false).Error; err != nil {
			t.Fatalf("Failed to deactivate fixture link: %v", err)
		}
		l.IsActive = false
	}
	return l
}
