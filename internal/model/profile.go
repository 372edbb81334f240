package model

type Profile struct {
	BaseModel
	UserID      string  `gorm:"uniqueIndex;size:64;not null" json:"userId"`
	// 惰性创建的 profile 还没有用户名，用 NULL 避免空串撞唯一索引
	Username    *string `gorm:"uniqueIndex;size:20" json:"username"`
	Name        string  `gorm:"size:100" json:"name"`
	Bio         string  `gorm:"size:500" json:"bio"`
	Title       string  `gorm:"size:100" json:"title"`
	Theme       string  `gorm:"size:32;default:default" json:"theme"`
	CalLink     *string `gorm:"size:200" json:"calLink"`
	AvatarURL   *string `gorm:"size:2048" json:"avatarUrl"`
	IsPublished bool    `gorm:"default:false" json:"isPublished"`
}
