package model

type Link struct {
	BaseModel
	ProfileID string  `gorm:"index;size:36;not null" json:"profileId"`
	Title     string  `gorm:"size:800;not null" json:"title"`
	URL       string  `gorm:"size:2048;not null" json:"url"`
	Icon      *string `gorm:"size:64" json:"icon"`
	Position  int     `gorm:"default:0" json:"position"`
	IsActive  bool    `gorm:"default:true" json:"isActive"`
	// 预览字段只由后台镜像流水线写入
	PreviewImageURL    *string `gorm:"size:2048" json:"previewImageUrl"`
	PreviewDescription *string `gorm:"size:500" json:"previewDescription"`
}
