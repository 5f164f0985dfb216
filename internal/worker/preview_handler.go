package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cvforge/internal/database"
	"cvforge/internal/errcode"
	"cvforge/internal/render"
	"cvforge/internal/storage"
	"cvforge/internal/tasks"
)

const (
	previewQuality    = 80
	previewRenderTTL  = 90 * time.Second
	previewPresignTTL = 7 * 24 * time.Hour
)

// PreviewTaskHandler 负责消费简历缩略图生成任务。
type PreviewTaskHandler struct {
	db          *gorm.DB
	storage     *storage.Client
	redisClient *redis.Client
	generator   render.Generator
	logger      *slog.Logger
}

// NewPreviewTaskHandler 创建任务处理器。
func NewPreviewTaskHandler(
	db *gorm.DB,
	storageClient *storage.Client,
	redisClient *redis.Client,
	generator render.Generator,
	logger *slog.Logger,
) *PreviewTaskHandler {
	return &PreviewTaskHandler{
		db:          db,
		storage:     storageClient,
		redisClient: redisClient,
		generator:   generator,
		logger:      logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *PreviewTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.PreviewGeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("resume_id", int(payload.ResumeID)),
	)
	log.Info("Starting resume preview generation task...")

	var rec database.Resume
	if err := h.db.WithContext(ctx).First(&rec, payload.ResumeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("resume not found, skipping task")
			return nil
		}
		log.Error("query resume failed", slog.Any("error", err))
		return err
	}

	log = log.With(slog.Uint64("user_id", uint64(rec.UserID)))

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}

		notify := PreviewNotifyMessage{
			Status:        "error",
			ResumeID:      rec.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.publishNotify(ctx, rec.UserID, notify); err != nil {
			log.Error("publish preview error notification failed", slog.Any("error", err))
		}
	}()

	data, err := rec.DecodeContent()
	if err != nil {
		log.Error("decode resume content failed", slog.Any("error", err))
		return err
	}

	photoURI := h.inlinePhoto(ctx, log, data.PersonalInfo.PhotoKey)

	htmlContent, err := render.BuildHTML(&data, rec.TemplateID, rec.DecodeCustomization(), photoURI)
	if err != nil {
		log.Error("build resume html failed", slog.Any("error", err))
		return err
	}

	renderCtx, cancel := context.WithTimeout(ctx, previewRenderTTL)
	defer cancel()

	previewBytes, err := h.generator.CapturePreview(renderCtx, htmlContent, previewQuality)
	if err != nil {
		log.Error("capture preview screenshot failed", slog.Any("error", err))
		return err
	}

	objectName := fmt.Sprintf("thumbnails/resume/%d/preview.jpg", rec.ID)
	if _, err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(previewBytes), int64(len(previewBytes)), "image/jpeg"); err != nil {
		log.Error("upload preview image failed", slog.Any("error", err))
		return err
	}

	presignedURL, err := h.storage.GeneratePresignedURL(ctx, objectName, previewPresignTTL)
	if err != nil {
		log.Error("generate preview presigned url failed", slog.Any("error", err))
		return err
	}

	if err := h.db.WithContext(ctx).Model(&rec).Updates(map[string]any{
		"preview_image_url":  presignedURL,
		"preview_object_key": objectName,
	}).Error; err != nil {
		log.Error("update resume preview url failed", slog.Any("error", err))
		return err
	}

	notify := PreviewNotifyMessage{
		Status:        "completed",
		ResumeID:      rec.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
		PreviewURL:    presignedURL,
	}
	if err := h.publishNotify(ctx, rec.UserID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("Resume preview generation completed.")
	return nil
}

// inlinePhoto 读取头像对象并编码为 data URI。头像缺失只降级，不中断任务。
func (h *PreviewTaskHandler) inlinePhoto(ctx context.Context, log *slog.Logger, photoKey string) string {
	photoKey = strings.TrimSpace(photoKey)
	if photoKey == "" {
		return ""
	}

	obj, err := h.storage.GetObject(ctx, photoKey)
	if err != nil {
		log.Warn("load resume photo failed, rendering without it", slog.String("photo_key", photoKey), slog.Any("error", err))
		return ""
	}
	defer func() {
		_ = obj.Close()
	}()

	photoBytes, err := io.ReadAll(obj)
	if err != nil {
		log.Warn("read resume photo failed, rendering without it", slog.String("photo_key", photoKey), slog.Any("error", err))
		return ""
	}
	return render.PhotoDataURI(photoBytes)
}

func (h *PreviewTaskHandler) publishNotify(ctx context.Context, userID uint, notify PreviewNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := UserNotifyChannel(userID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
