package dto

// UpdateProfileRequest 部分更新个人主页的请求体，nil 字段不更新
type UpdateProfileRequest struct {
	Name     *string `json:"name"`
	Bio      *string `json:"bio"`
	Username *string `json:"username"`
	Title    *string `json:"title"`
	Theme    *string `json:"theme"`
	CalLink  *string `json:"calLink"`
}

// ProfileResponse 个人主页响应
type ProfileResponse struct {
	Name        string  `json:"name"`
	Bio         string  `json:"bio"`
	Username    *string `json:"username"`
	Title       string  `json:"title"`
	Theme       string  `json:"theme"`
	CalLink     *string `json:"calLink"`
	AvatarURL   *string `json:"avatarUrl"`
	IsPublished bool    `json:"isPublished"`
}
