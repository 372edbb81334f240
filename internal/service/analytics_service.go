package service

import (
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/KartikLabhshetwar/oneurl/internal/apperrors"
	"github.com/KartikLabhshetwar/oneurl/internal/dto"
	"github.com/KartikLabhshetwar/oneurl/internal/model"
	"github.com/KartikLabhshetwar/oneurl/internal/repository"
)

// 聚合引擎只读，绝不改写 ClickEvent 或 Link

type linkCount struct {
	LinkID string
	Count  int64
}

type dayCount struct {
	Day   string
	Count int64
}

// GetProfileStats 计算某个 profile 全部链接的聚合视图。
// start/end 省略时默认全量窗口。
func GetProfileStats(profileID string, start, end *time.Time, dense bool) (*dto.Stats, error) {
	var links []model.Link
	if err := repository.DB.Where("profile_id = ?", profileID).Find(&links).Error; err != nil {
		return nil, apperrors.SystemError("查询链接列表失败: " + err.Error())
	}
	return aggregate(links, start, end, dense)
}

// GetLinkStats 计算单条链接的聚合视图，先做归属校验再聚合：
// 请求别人的链接一律 404，不泄露存在性
func GetLinkStats(profileID, linkID string, start, end *time.Time, dense bool) (*dto.Stats, error) {
	var link model.Link
	err := repository.DB.Where("id = ? AND profile_id = ?", linkID, profileID).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundError("Link not found")
		}
		return nil, apperrors.SystemError("查询链接失败: " + err.Error())
	}
	return aggregate([]model.Link{link}, start, end, dense)
}

// GetLinksClickCounts 链接 ID 到点击总数的映射，不做时间窗口（列表页轻量变体）
func GetLinksClickCounts(linkIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(linkIDs))
	for _, id := range linkIDs {
		counts[id] = 0
	}
	if len(linkIDs) == 0 {
		return counts, nil
	}

	var rows []linkCount
	err := repository.DB.Model(&model.ClickEvent{}).
		Select("link_id AS link_id, COUNT(*) AS count").
		Where("link_id IN ?", linkIDs).
		Group("link_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.SystemError("统计点击数失败: " + err.Error())
	}

	for _, row := range rows {
		counts[row.LinkID] = row.Count
	}
	return counts, nil
}

func aggregate(links []model.Link, start, end *time.Time, dense bool) (*dto.Stats, error) {
	stats := &dto.Stats{
		TopLinks:       []dto.TopLink{},
		ClicksOverTime: []dto.TimeBucket{},
	}
	if len(links) == 0 {
		return stats, nil
	}

	linkIDs := make([]string, 0, len(links))
	byID := make(map[string]model.Link, len(links))
	for _, l := range links {
		linkIDs = append(linkIDs, l.ID)
		byID[l.ID] = l
	}

	scoped := func() *gorm.DB {
		q := repository.DB.Model(&model.ClickEvent{}).Where("link_id IN ?", linkIDs)
		if start != nil {
			q = q.Where("clicked_at >= ?", start.UTC())
		}
		if end != nil {
			q = q.Where("clicked_at <= ?", end.UTC())
		}
		return q
	}

	if err := scoped().Count(&stats.TotalClicks).Error; err != nil {
		return nil, apperrors.SystemError("统计总点击数失败: " + err.Error())
	}

	// 排名：点击量降序，平局按 position 升序再按 id 升序，保证稳定确定的顺序。
	// 排序在 Go 里合并完成，避免依赖各数据库的排序语义差异。
	var perLink []linkCount
	if err := scoped().
		Select("link_id AS link_id, COUNT(*) AS count").
		Group("link_id").
		Scan(&perLink).Error; err != nil {
		return nil, apperrors.SystemError("统计链接排名失败: " + err.Error())
	}

	for _, row := range perLink {
		link, ok := byID[row.LinkID]
		if !ok {
			continue
		}
		stats.TopLinks = append(stats.TopLinks, dto.TopLink{
			LinkID:     row.LinkID,
			Title:      link.Title,
			ClickCount: row.Count,
		})
	}
	sort.SliceStable(stats.TopLinks, func(i, j int) bool {
		a, b := stats.TopLinks[i], stats.TopLinks[j]
		if a.ClickCount != b.ClickCount {
			return a.ClickCount > b.ClickCount
		}
		pa, pb := byID[a.LinkID].Position, byID[b.LinkID].Position
		if pa != pb {
			return pa < pb
		}
		return a.LinkID < b.LinkID
	})

	// 按 UTC 自然日分桶，默认稀疏：没有点击的日子不出现
	var perDay []dayCount
	if err := scoped().
		Select("DATE(clicked_at) AS day, COUNT(*) AS count").
		Group("DATE(clicked_at)").
		Order("day ASC").
		Scan(&perDay).Error; err != nil {
		return nil, apperrors.SystemError("统计按日点击数失败: " + err.Error())
	}

	for _, row := range perDay {
		stats.ClicksOverTime = append(stats.ClicksOverTime, dto.TimeBucket{
			Date:  normalizeDay(row.Day),
			Count: row.Count,
		})
	}

	if dense {
		stats.ClicksOverTime = fillDays(stats.ClicksOverTime, start, end)
	}

	return stats, nil
}

// normalizeDay 统一 DATE() 的返回格式为 YYYY-MM-DD（MySQL 可能带时间部分）
func normalizeDay(day string) string {
	if len(day) > 10 {
		return day[:10]
	}
	return day
}

// fillDays 补齐窗口内没有点击的日子（count=0），调用方显式要求稠密序列时使用。
// 窗口边界取显式的 start/end，缺失时退化到稀疏数据的首尾日；
// 既没有数据也没有显式边界时无从补齐，原样返回。
func fillDays(sparse []dto.TimeBucket, start, end *time.Time) []dto.TimeBucket {
	counts := make(map[string]int64, len(sparse))
	for _, b := range sparse {
		counts[b.Date] = b.Count
	}

	var first, last time.Time
	if len(sparse) > 0 {
		f, errF := time.Parse("2006-01-02", sparse[0].Date)
		l, errL := time.Parse("2006-01-02", sparse[len(sparse)-1].Date)
		if errF != nil || errL != nil {
			return sparse
		}
		first, last = f, l
	}
	if start != nil {
		first = start.UTC().Truncate(24 * time.Hour)
	}
	if end != nil {
		last = end.UTC().Truncate(24 * time.Hour)
	}
	if first.IsZero() || last.IsZero() || first.After(last) {
		return sparse
	}

	dense := make([]dto.TimeBucket, 0, len(sparse))
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		date := d.Format("2006-01-02")
		dense = append(dense, dto.TimeBucket{Date: date, Count: counts[date]})
	}
	return dense
}
