package dto

// TrackRequest 公开打点接口的请求体
type TrackRequest struct {
	LinkID   string `json:"linkId" binding:"required" msg:"linkId is required"`
	ClientID string `json:"clientId"` // 可选的客户端显式去重 ID
}

// TrackResponse 打点接口的响应
type TrackResponse struct {
	Success        bool   `json:"success"`
	Tracked        bool   `json:"tracked"`
	Reason         string `json:"reason,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// TrackFailureResponse 重试耗尽时的响应，retry 提示客户端稍后再试
type TrackFailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Retry   bool   `json:"retry"`
}
