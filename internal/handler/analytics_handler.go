package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KartikLabhshetwar/oneurl/internal/apperrors"
	"github.com/KartikLabhshetwar/oneurl/internal/auth"
	"github.com/KartikLabhshetwar/oneurl/internal/dto"
	"github.com/KartikLabhshetwar/oneurl/internal/service"
)

// GetAnalyticsHandler 聚合统计（GET /api/analytics?linkId=&startDate=&endDate=&dense=）。
// 带 linkId 返回 LinkStats，否则返回 ProfileStats，形态一致。
func GetAnalyticsHandler(c *gin.Context) {
	userID, err := auth.UserID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	profile, err := service.GetProfileByUserID(userID)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == http.StatusNotFound {
			// 还没建 profile 的用户返回空统计，不是错误
			c.JSON(http.StatusOK, dto.Stats{TopLinks: []dto.TopLink{}, ClicksOverTime: []dto.TimeBucket{}})
			return
		}
		_ = c.Error(err)
		return
	}

	start, err := parseDateBound(c.Query("startDate"), false)
	if err != nil {
		_ = c.Error(apperrors.InvalidRequestError("Invalid startDate"))
		return
	}
	end, err := parseDateBound(c.Query("endDate"), true)
	if err != nil {
		_ = c.Error(apperrors.InvalidRequestError("Invalid endDate"))
		return
	}
	dense := c.Query("dense") == "true"

	var stats *dto.Stats
	if linkID := c.Query("linkId"); linkID != "" {
		stats, err = service.GetLinkStats(profile.ID, linkID, start, end, dense)
	} else {
		stats, err = service.GetProfileStats(profile.ID, start, end, dense)
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetLinkCountsHandler 列表页轻量接口（GET /api/analytics/links），返回 {counts: {linkId: n}}
func GetLinkCountsHandler(c *gin.Context) {
	userID, err := auth.UserID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	profile, err := service.GetProfileByUserID(userID)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == http.StatusNotFound {
			c.JSON(http.StatusOK, dto.LinkCountsResponse{Counts: map[string]int64{}})
			return
		}
		_ = c.Error(err)
		return
	}

	links, err := service.GetLinksByProfile(profile.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	linkIDs := make([]string, 0, len(links))
	for _, l := range links {
		linkIDs = append(linkIDs, l.ID)
	}

	counts, err := service.GetLinksClickCounts(linkIDs)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.LinkCountsResponse{Counts: counts})
}

// parseDateBound 解析日期参数，支持 YYYY-MM-DD 和 RFC3339。
// endOfDay 为 true 时日期形式的边界取当天末尾（包含边界）。
func parseDateBound(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
