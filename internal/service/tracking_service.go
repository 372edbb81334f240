package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KartikLabhshetwar/oneurl/internal/apperrors"
	"github.com/KartikLabhshetwar/oneurl/internal/dto"
	"github.com/KartikLabhshetwar/oneurl/internal/model"
	"github.com/KartikLabhshetwar/oneurl/internal/repository"
	"github.com/KartikLabhshetwar/oneurl/pkg/logging"
)

// 打点结果的 reason 取值
const (
	ReasonDoNotTrack = "do_not_track"
	ReasonDuplicate  = "duplicate"
)

// 去重 key 列的上限（click_events.idempotency_key）
const maxIdempotencyKeyLen = 128

// ClickFact 一次点击的全部已解析事实，进入记录器前已经和 HTTP 层解耦
type ClickFact struct {
	LinkID     string
	ClientID   string // 客户端显式去重 ID，存在时优先于派生指纹
	DoNotTrack bool
	IPAddress  *string
	UserAgent  *string
	Referrer   *string
	Country    *string
	Headers    map[string]string
	RequestURL string
}

// DeriveClickFact 从请求头解析点击属性。
// IP 取 X-Forwarded-For 链的第一跳，退化到 X-Real-IP，再退化为空；
// 国家码来自边缘代理注入的受信头；其余只保留白名单内的请求头。
func DeriveClickFact(req dto.TrackRequest, header http.Header, requestURL string) ClickFact {
	fact := ClickFact{
		LinkID:     req.LinkID,
		ClientID:   req.ClientID,
		DoNotTrack: header.Get("DNT") == "1",
		RequestURL: requestURL,
		Headers:    map[string]string{},
	}

	fact.RequestURL = truncate(fact.RequestURL, 2048)

	if xff := header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			fact.IPAddress = &first
		}
	}
	if fact.IPAddress == nil {
		if realIP := header.Get("X-Real-IP"); realIP != "" {
			fact.IPAddress = &realIP
		}
	}

	if ua := truncate(header.Get("User-Agent"), 500); ua != "" {
		fact.UserAgent = &ua
	}
	if ref := truncate(header.Get("Referer"), 500); ref != "" {
		fact.Referrer = &ref
	}

	// 国家码来自代理注入的头，依然是外部输入，按 ISO alpha-2 截断
	if country := truncate(header.Get("CF-IPCountry"), 2); country != "" {
		fact.Country = &country
	} else if country := truncate(header.Get("X-Vercel-IP-Country"), 2); country != "" {
		fact.Country = &country
	}

	// 只记录白名单内的请求头，值截断后再入快照
	for _, name := range []string{"Accept-Language", "Accept-Encoding"} {
		if v := truncate(header.Get(name), 256); v != "" {
			fact.Headers[strings.ToLower(name)] = v
		}
	}

	return fact
}

// TrackClick 点击接入流水线：
//  1. 解析目标链接，不存在或停用直接 404，无任何副作用
//  2. DNT 在指纹计算之前短路，opt-out 的访问不留任何痕迹
//  3. 计算去重指纹（显式 clientId 优先）
//  4. 委托记录器带重试落库
func TrackClick(ctx context.Context, fact ClickFact) (*dto.TrackResponse, error) {
	// 超长 clientId 属于畸形输入，直接 400，绝不进重试循环
	if len(fact.ClientID) > maxIdempotencyKeyLen {
		return nil, apperrors.InvalidRequestError("clientId must be at most 128 characters")
	}

	var link model.Link
	if err := repository.DB.Where("id = ? AND is_active = ?", fact.LinkID, true).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundError("Link not found or inactive")
		}
		logging.Logger.Error("查询链接失败", zap.String("link_id", fact.LinkID), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}

	if fact.DoNotTrack {
		return &dto.TrackResponse{
			Success: true,
			Tracked: false,
			Reason:  ReasonDoNotTrack,
		}, nil
	}

	window := idempotencyWindow()
	key := fact.ClientID
	if key == "" {
		key = deriveFingerprint(fact, window)
	}

	return recordClickWithRetry(ctx, fact, key, window)
}

// deriveFingerprint 由 {linkId, IP, UA, 粗粒度时间桶} 派生确定性指纹，
// 让页面 double-fire 这类快速重复提交收敛为一个事件
func deriveFingerprint(fact ClickFact, window time.Duration) string {
	bucket := time.Now().Unix() / int64(window/time.Second)

	var ip, ua string
	if fact.IPAddress != nil {
		ip = *fact.IPAddress
	}
	if fact.UserAgent != nil {
		ua = *fact.UserAgent
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d", fact.LinkID, ip, ua, bucket)))
	return hex.EncodeToString(sum[:])[:32]
}

// recordClickWithRetry 点击记录器。占位和事件插入是一对两步写，
// 插入失败时释放占位做补偿，保证不会出现“报告已打点但没有事件”的状态。
func recordClickWithRetry(ctx context.Context, fact ClickFact, key string, window time.Duration) (*dto.TrackResponse, error) {
	maxAttempts := viper.GetInt("tracking.max_retries")
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := 50 * time.Millisecond

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(backoff)
			backoff *= 2
		}

		ok, err := repository.Idempotency.Reserve(key, window)
		if err != nil {
			logging.Logger.Warn("去重占位失败",
				zap.String("idempotency_key", key),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			return &dto.TrackResponse{
				Success:        true,
				Tracked:        false,
				Reason:         ReasonDuplicate,
				IdempotencyKey: key,
			}, nil
		}

		headersJSON, _ := json.Marshal(fact.Headers)
		event := model.ClickEvent{
			LinkID:         fact.LinkID,
			ClickedAt:      time.Now().UTC(),
			IPAddress:      fact.IPAddress,
			UserAgent:      fact.UserAgent,
			Referrer:       fact.Referrer,
			Country:        fact.Country,
			Headers:        string(headersJSON),
			RequestURL:     fact.RequestURL,
			IdempotencyKey: key,
		}

		err = repository.DB.WithContext(ctx).Create(&event).Error
		if err == nil {
			return &dto.TrackResponse{
				Success:        true,
				Tracked:        true,
				IdempotencyKey: key,
			}, nil
		}

		// 唯一索引兜底：并发下另一请求先落库，视为重复而不是失败
		if isDuplicateKeyError(err) {
			return &dto.TrackResponse{
				Success:        true,
				Tracked:        false,
				Reason:         ReasonDuplicate,
				IdempotencyKey: key,
			}, nil
		}

		// 补偿：释放占位，否则窗口内会留下没有事件的假“已打点”
		if relErr := repository.Idempotency.Release(key); relErr != nil {
			logging.Logger.Warn("释放去重占位失败，等待其自然过期",
				zap.String("idempotency_key", key),
				zap.Error(relErr),
			)
		}

		// 链接中途被删除属于非瞬时失败，不重试
		var count int64
		if cErr := repository.DB.Model(&model.Link{}).
			Where("id = ? AND is_active = ?", fact.LinkID, true).
			Count(&count).Error; cErr == nil && count == 0 {
			return nil, apperrors.NotFoundError("Link not found or inactive")
		}

		logging.Logger.Warn("点击事件落库失败",
			zap.String("link_id", fact.LinkID),
			zap.String("idempotency_key", key),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	return nil, apperrors.ServiceUnavailableError("Tracking temporarily unavailable")
}

func idempotencyWindow() time.Duration {
	seconds := viper.GetInt("tracking.idempotency_window_seconds")
	if seconds <= 0 {
		seconds = 60
	}
	return time.Duration(seconds) * time.Second
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}

// truncate 按字节上限截断，回退到 rune 边界，不产生非法 UTF-8
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
