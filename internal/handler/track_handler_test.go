package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/KartikLabhshetwar/oneurl/internal/middleware"
	"github.com/KartikLabhshetwar/oneurl/internal/model"
	"github.com/KartikLabhshetwar/oneurl/internal/repository"
	"github.com/KartikLabhshetwar/oneurl/pkg/logging"
)

// setupTrackRouter 搭建与 main.go 等价的打点路由：全局错误中间件 + 处理器
func setupTrackRouter(t *testing.T) (*gin.Engine, *model.Link) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logging.InitTestLogger()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
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

	viper.Set("tracking.idempotency_window_seconds", 60)
	viper.Set("tracking.max_retries", 3)

	username := "alice"
	profile := &model.Profile{UserID: "user-1", Username: &username}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("Failed to create profile: %v", err)
	}
	link := &model.Link{ProfileID: profile.ID, Title: "blog", URL: "https://example.com", IsActive: true}
	if err := db.Create(link).Error; err != nil {
		t.Fatalf("Failed to create link: %v", err)
	}

	r := gin.New()
	r.Use(middleware.GlobalErrorMiddleware())
	r.POST("/api/track", TrackClickHandler)
	return r, link
}

func postTrack(r *gin.Engine, body string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/track", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func TestTrackEndpointSuccess(t *testing.T) {
	r, link := setupTrackRouter(t)

	w := postTrack(r, `{"linkId":"`+link.ID+`"}`, map[string]string{
		"User-Agent":      "test-agent",
		"X-Forwarded-For": "203.0.113.9, 10.0.0.1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["success"] != true || body["tracked"] != true {
		t.Errorf("body = %v", body)
	}
	if key, _ := body["idempotencyKey"].(string); key == "" {
		t.Error("idempotencyKey missing from tracked response")
	}

	var count int64
	repository.DB.Model(&model.ClickEvent{}).Count(&count)
	if count != 1 {
		t.Errorf("events = %d, want 1", count)
	}
}

func TestTrackEndpointDuplicate(t *testing.T) {
	r, link := setupTrackRouter(t)
	payload := `{"linkId":"` + link.ID + `","clientId":"client-abc"}`

	first := postTrack(r, payload, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}

	second := postTrack(r, payload, nil)
	if second.Code != http.StatusOK {
		t.Fatalf("second status = %d", second.Code)
	}
	body := decodeBody(t, second)
	if body["success"] != true || body["tracked"] != false || body["reason"] != "duplicate" {
		t.Errorf("duplicate body = %v", body)
	}
	if body["idempotencyKey"] != "client-abc" {
		t.Errorf("idempotencyKey = %v", body["idempotencyKey"])
	}

	var count int64
	repository.DB.Model(&model.ClickEvent{}).Count(&count)
	if count != 1 {
		t.Errorf("events = %d, want 1", count)
	}
}

func TestTrackEndpointDoNotTrack(t *testing.T) {
	r, link := setupTrackRouter(t)

	w := postTrack(r, `{"linkId":"`+link.ID+`"}`, map[string]string{"DNT": "1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["success"] != true || body["tracked"] != false || body["reason"] != "do_not_track" {
		t.Errorf("DNT body = %v", body)
	}
	if _, ok := body["idempotencyKey"]; ok {
		t.Error("DNT response should not carry an idempotencyKey")
	}

	var count int64
	repository.DB.Model(&model.ClickEvent{}).Count(&count)
	if count != 0 {
		t.Errorf("events = %d, want 0 under DNT", count)
	}
}

func TestTrackEndpointMissingLinkID(t *testing.T) {
	r, _ := setupTrackRouter(t)

	w := postTrack(r, `{}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestTrackEndpointUnknownLink(t *testing.T) {
	r, _ := setupTrackRouter(t)

	w := postTrack(r, `{"linkId":"no-such-link"}`, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
