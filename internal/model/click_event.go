package model

import "time"

// ClickEvent 一次访客点击的不可变事实，只插入，不更新
type ClickEvent struct {
	BaseModel
	LinkID    string    `gorm:"index;size:36;not null" json:"linkId"`
	ClickedAt time.Time `gorm:"index" json:"clickedAt"`
	IPAddress *string   `gorm:"size:45" json:"ipAddress"` // IPv6 最长 45
	UserAgent *string   `gorm:"size:500" json:"userAgent"`
	Referrer  *string   `gorm:"size:500" json:"referrer"`
	Country   *string   `gorm:"size:2" json:"country"` // ISO 3166-1 alpha-2
	// 白名单请求头的 JSON 快照（accept-language / accept-encoding）
	Headers    string `gorm:"size:1024" json:"headers"`
	RequestURL string `gorm:"size:2048" json:"requestUrl"`
	// 去重指纹，唯一索引是并发下 exactly-once 的最终保障
	IdempotencyKey string `gorm:"uniqueIndex;size:128;not null" json:"idempotencyKey"`
}
