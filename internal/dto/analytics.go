package dto

// TopLink 窗口内按点击量排名的一条链接
type TopLink struct {
	LinkID     string `json:"linkId"`
	Title      string `json:"title"`
	ClickCount int64  `json:"clickCount"`
}

// TimeBucket 一个 UTC 自然日的点击计数
type TimeBucket struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int64  `json:"count"`
}

// Stats 聚合视图，ProfileStats 和 LinkStats 共用同一形态
type Stats struct {
	TotalClicks    int64        `json:"totalClicks"`
	TopLinks       []TopLink    `json:"topLinks"`
	ClicksOverTime []TimeBucket `json:"clicksOverTime"`
}

// LinkCountsResponse 链接 ID 到点击总数的映射（列表页轻量接口）
type LinkCountsResponse struct {
	Counts map[string]int64 `json:"counts"`
}
