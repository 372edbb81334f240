package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/KartikLabhshetwar/oneurl/internal/model"
)

var clickSeq int

func newClick(t *testing.T, linkID string, clickedAt time.Time) {
	t.Helper()
	clickSeq++
	mustCreate(t, &model.ClickEvent{
		LinkID:         linkID,
		ClickedAt:      clickedAt.UTC(),
		IdempotencyKey: fmt.Sprintf("test-click-%d", clickSeq),
	})
}

func day(t *testing.T, date string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		t.Fatalf("bad date %q: %v", date, err)
	}
	return d
}

func TestProfileStats(t *testing.T) {
	initTestEnv(t)
	profile := newProfile(t, "user-1", "alice")
	blog := newLink(t, profile.ID, "blog", 0, true)
	shop := newLink(t, profile.ID, "shop", 1, true)

	// blog: 3 次点击分布在两天；shop: 2 次点击在同一天
	newClick(t, blog.ID, day(t, "2026-08-01").Add(10*time.Hour))
	newClick(t, blog.ID, day(t, "2026-08-01").Add(11*time.Hour))
	newClick(t, blog.ID, day(t, "2026-08-03").Add(9*time.Hour))
	newClick(t, shop.ID, day(t, "2026-08-03").Add(12*time.Hour))
	newClick(t, shop.ID, day(t, "2026-08-03").Add(13*time.Hour))

	stats, err := GetProfileStats(profile.ID, nil, nil, false)
	if err != nil {
		t.Fatalf("GetProfileStats failed: %v", err)
	}

	if stats.TotalClicks != 5 {
		t.Errorf("totalClicks = %d, want 5", stats.TotalClicks)
	}

	if len(stats.TopLinks) != 2 {
		t.Fatalf("topLinks len = %d, want 2", len(stats.TopLinks))
	}
	if stats.TopLinks[0].LinkID != blog.ID || stats.TopLinks[0].ClickCount != 3 {
		t.Errorf("topLinks[0] = %+v, want blog with 3", stats.TopLinks[0])
	}
	if stats.TopLinks[1].LinkID != shop.ID || stats.TopLinks[1].ClickCount != 2 {
		t.Errorf("topLinks[1] = %+v, want shop with 2", stats.TopLinks[1])
	}

	// sum(topLinks) == totalClicks（每个点击都属于某条被排名的链接）
	var sum int64
	for _, tl := range stats.TopLinks {
		sum += tl.ClickCount
	}
	if sum != stats.TotalClicks {
		t.Errorf("sum(topLinks) = %d, totalClicks = %d", sum, stats.TotalClicks)
	}

	// 稀疏分桶：8-02 没有点击，不出现；顺序按时间升序
	if len(stats.ClicksOverTime) != 2 {
		t.Fatalf("clicksOverTime len = %d, want 2 (sparse)", len(stats.ClicksOverTime))
	}
	if stats.ClicksOverTime[0].Date != "2026-08-01" || stats.ClicksOverTime[0].Count != 2 {
		t.Errorf("bucket[0] = %+v", stats.ClicksOverTime[0])
	}
	if stats.ClicksOverTime[1].Date != "2026-08-03" || stats.ClicksOverTime[1].Count != 3 {
		t.Errorf("bucket[1] = %+v", stats.ClicksOverTime[1])
	}

	// 分桶求和等于窗口内总点击
	var bucketSum int64
	for _, b := range stats.ClicksOverTime {
		bucketSum += b.Count
	}
	if bucketSum != stats.TotalClicks {
		t.Errorf("sum(buckets) = %d, totalClicks = %d", bucketSum, stats.TotalClicks)
	}
}

func TestProfileStatsTieBreakByPosition(t *testing.T) {
	initTestEnv(t)
	profile := newProfile(t, "user-1", "alice")
	second := newLink(t, profile.ID, "second", 1, true)
	first := newLink(t, profile.ID, "first", 0, true)

	ts := day(t, "2026-08-10").Add(8 * time.Hour)
	newClick(t, second.ID, ts)
	newClick(t, first.ID, ts.Add(time.Minute))

	stats, err := GetProfileStats(profile.ID, nil, nil, false)
	if err != nil {
		t.Fatalf("GetProfileStats failed: %v", err)
	}
	if len(stats.TopLinks) != 2 {
		t.Fatalf("topLinks len = %d, want 2", len(stats.TopLinks))
	}
	// 点击数相同，position 小的排前面
	if stats.TopLinks[0].LinkID != first.ID {
		t.Errorf("tie break should favor lower position, got %+v", stats.TopLinks)
	}
}

func TestProfileStatsWindow(t *testing.T) {
	initTestEnv(t)
	profile := newProfile(t, "user-1", "alice")
	link := newLink(t, profile.ID, "blog", 0, true)

	newClick(t, link.ID, day(t, "2026-08-01").Add(10*time.Hour))
	newClick(t, link.ID, day(t, "2026-08-05").Add(10*time.Hour))
	newClick(t, link.ID, day(t, "2026-08-09").Add(10*time.Hour))

	start := day(t, "2026-08-03")
	end := day(t, "2026-08-07").Add(24*time.Hour - time.Second)
	stats, err := GetProfileStats(profile.ID, &start, &end, false)
	if err != nil {
		t.Fatalf("GetProfileStats failed: %v", err)
	}
	if stats.TotalClicks != 1 {
		t.Errorf("windowed totalClicks = %d, want 1", stats.TotalClicks)
	}
	if len(stats.ClicksOverTime) != 1 || stats.ClicksOverTime[0].Date != "2026-08-05" {
		t.Errorf("windowed buckets = %+v", stats.ClicksOverTime)
	}
}

func TestProfileStatsDenseSeries(t *testing.T) {
	initTestEnv(t)
	profile := newProfile(t, "user-1", "alice")
	link := newLink(t, profile.ID, "blog", 0, true)

	newClick(t, link.ID, day(t, "2026-08-01").Add(10*time.Hour))
	newClick(t, link.ID, day(t, "2026-08-04").Add(10*time.Hour))

	stats, err := GetProfileStats(profile.ID, nil, nil, true)
	if err != nil {
		t.Fatalf("GetProfileStats failed: %v", err)
	}
	if len(stats.ClicksOverTime) != 4 {
		t.Fatalf("dense buckets len = %d, want 4", len(stats.ClicksOverTime))
	}
	for i, want := range []struct {
		date  string
		count int64
	}{
		{"2026-08-01", 1},
		{"2026-08-02", 0},
		{"2026-08-03", 0},
		{"2026-08-04", 1},
	} {
		got := stats.ClicksOverTime[i]
		if got.Date != want.date || got.Count != want.count {
			t.Errorf("dense bucket[%d] = %+v, want %+v", i, got, want)
		}
	}
}

func TestProfileStatsDenseEmptyWindow(t *testing.T) {
	initTestEnv(t)
	profile := newProfile(t, "user-1", "alice")
	newLink(t, profile.ID, "blog", 0, true)

	// 窗口内没有任何点击：显式边界下稠密序列依然要补满零值
	start := day(t, "2026-08-01")
	end := day(t, "2026-08-03")
	stats, err := GetProfileStats(profile.ID, &start, &end, true)
	if err != nil {
		t.Fatalf("GetProfileStats failed: %v", err)
	}
	if stats.TotalClicks != 0 {
		t.Errorf("totalClicks = %d, want 0", stats.TotalClicks)
	}
	if len(stats.ClicksOverTime) != 3 {
		t.Fatalf("dense buckets len = %d, want 3", len(stats.ClicksOverTime))
	}
	for i, want := range []string{"2026-08-01", "2026-08-02", "2026-08-03"} {
		got := stats.ClicksOverTime[i]
		if got.Date != want || got.Count != 0 {
			t.Errorf("bucket[%d] = %+v, want {%s 0}", i, got, want)
		}
	}
}

func TestLinkStatsOwnership(t *testing.T) {
	initTestEnv(t)
	owner := newProfile(t, "user-1", "alice")
	other := newProfile(t, "user-2", "bob")
	link := newLink(t, owner.ID, "blog", 0, true)
	newClick(t, link.ID, day(t, "2026-08-01").Add(10*time.Hour))

	// 归属校验先于聚合：别人的链接一律 404
	_, err := GetLinkStats(other.ID, link.ID, nil, nil, false)
	assertNotFound(t, err)

	stats, err := GetLinkStats(owner.ID, link.ID, nil, nil, false)
	if err != nil {
		t.Fatalf("owner GetLinkStats failed: %v", err)
	}
	if stats.TotalClicks != 1 {
		t.Errorf("totalClicks = %d, want 1", stats.TotalClicks)
	}
}

func TestLinksClickCounts(t *testing.T) {
	initTestEnv(t)
	profile := newProfile(t, "user-1", "alice")
	blog := newLink(t, profile.ID, "blog", 0, true)
	quiet := newLink(t, profile.ID, "quiet", 1, true)

	newClick(t, blog.ID, day(t, "2026-08-01").Add(10*time.Hour))
	newClick(t, blog.ID, day(t, "2026-08-02").Add(10*time.Hour))

	counts, err := GetLinksClickCounts([]string{blog.ID, quiet.ID})
	if err != nil {
		t.Fatalf("GetLinksClickCounts failed: %v", err)
	}
	if counts[blog.ID] != 2 {
		t.Errorf("blog count = %d, want 2", counts[blog.ID])
	}
	if got, ok := counts[quiet.ID]; !ok || got != 0 {
		t.Errorf("quiet count = %d (present=%v), want explicit 0", got, ok)
	}
}

func TestPurgeExpiredClickEvents(t *testing.T) {
	initTestEnv(t)
	profile := newProfile(t, "user-1", "alice")
	link := newLink(t, profile.ID, "blog", 0, true)

	newClick(t, link.ID, time.Now().UTC().AddDate(0, 0, -40))
	newClick(t, link.ID, time.Now().UTC().AddDate(0, 0, -1))

	if err := PurgeExpiredClickEvents(); err != nil {
		t.Fatalf("PurgeExpiredClickEvents failed: %v", err)
	}
	if n := countEvents(t); n != 1 {
		t.Errorf("events after purge = %d, want 1", n)
	}
}
