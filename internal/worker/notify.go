package worker

import "fmt"

// 统一的 WebSocket 消息协议（通过 Redis Pub/Sub 转发给前端）。
// 注意：这里的字段名与前端解析保持一致。
type PreviewNotifyMessage struct {
	Status        string `json:"status"`
	ResumeID      uint   `json:"resume_id"`
	CorrelationID string `json:"correlation_id"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
	PreviewURL    string `json:"preview_url,omitempty"`
}

// UserNotifyChannel 返回指定用户的通知频道名。
// worker 侧发布和 WebSocket 侧订阅都必须用它，避免频道名漂移。
func UserNotifyChannel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}
