package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypePreviewGenerate = "preview:generate"
)

// PreviewGeneratePayload 描述生成简历缩略图所需的最小信息。
type PreviewGeneratePayload struct {
	ResumeID      uint   `json:"resume_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewPreviewGenerateTask 构造一个新的简历缩略图生成任务。
func NewPreviewGenerateTask(id uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PreviewGeneratePayload{
		ResumeID:      id,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePreviewGenerate, payload), nil
}
