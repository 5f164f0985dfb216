package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cvforge/internal/api/middleware"
	"cvforge/internal/database"
	"cvforge/internal/editor"
	"cvforge/internal/render"
	"cvforge/internal/resume"
	"cvforge/internal/storage"
	"cvforge/internal/tasks"
)

// ResumeHandler 负责处理与简历相关的 API 请求。
type ResumeHandler struct {
	db          *gorm.DB
	asynqClient *asynq.Client
	storage     *storage.Client
	sessions    *editor.Manager
	maxResumes  int
}

// NewResumeHandler 构造 ResumeHandler。
func NewResumeHandler(db *gorm.DB, asynqClient *asynq.Client, storageClient *storage.Client, sessions *editor.Manager, maxResumes int) *ResumeHandler {
	return &ResumeHandler{
		db:          db,
		asynqClient: asynqClient,
		storage:     storageClient,
		sessions:    sessions,
		maxResumes:  maxResumes,
	}
}

var errInvalidResumeID = errors.New("invalid resume id")

type createResumeRequest struct {
	Title   string      `json:"title" binding:"required"`
	Content resume.Data `json:"content" binding:"required"`
}

type resumeListItem struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug,omitempty"`
	IsPublic        bool      `json:"is_public"`
	TemplateID      string    `json:"template_id"`
	PreviewImageURL string    `json:"preview_image_url,omitempty"`
	DownloadCount   int64     `json:"download_count"`
	CreatedAt       time.Time `json:"created_at"`
}

type historyInfo struct {
	CanUndo bool `json:"can_undo"`
	CanRedo bool `json:"can_redo"`
	Length  int  `json:"length"`
	Index   int  `json:"index"`
}

type resumeResponse struct {
	ID              uint                  `json:"id"`
	Title           string                `json:"title"`
	Content         resume.Data           `json:"content"`
	Slug            string                `json:"slug,omitempty"`
	IsPublic        bool                  `json:"is_public"`
	TemplateID      string                `json:"template_id"`
	Customization   resume.Customization  `json:"customization"`
	PreviewImageURL string                `json:"preview_image_url,omitempty"`
	DownloadCount   int64                 `json:"download_count"`
	History         *historyInfo          `json:"history,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// CreateResume 保存一份新的简历，超过限额则提示升级。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	var req createResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()

	var count int64
	if err := h.db.WithContext(ctx).
		Model(&database.Resume{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		Internal(c, "failed to count resumes")
		return
	}

	if h.maxResumes > 0 && count >= int64(h.maxResumes) {
		Forbidden(c, "resume limit reached")
		return
	}

	content, err := json.Marshal(req.Content)
	if err != nil {
		BadRequest(c, "invalid resume content")
		return
	}

	rec := database.Resume{
		Title:      req.Title,
		Content:    datatypes.JSON(content),
		UserID:     userID,
		TemplateID: render.DefaultTemplateID,
	}

	if err := h.db.WithContext(ctx).Create(&rec).Error; err != nil {
		Internal(c, "failed to create resume")
		return
	}

	if err := h.setActiveResumeID(ctx, userID, &rec.ID); err != nil {
		Internal(c, "failed to mark active resume")
		return
	}

	h.enqueuePreview(c, rec.ID)
	c.JSON(http.StatusCreated, h.newResumeResponse(rec, nil))
}

// GetLatestResume 返回用户当前活动的简历，没有任何简历时返回入门模板。
func (h *ResumeHandler) GetLatestResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	rec, err := h.findActiveOrLatestResume(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, resumeResponse{
				Title:         defaultResumeTitle,
				Content:       starterResumeData(),
				TemplateID:    render.DefaultTemplateID,
				Customization: resume.DefaultCustomization(),
			})
			return
		}
		Internal(c, "failed to query latest resume")
		return
	}

	c.JSON(http.StatusOK, h.newResumeResponse(*rec, h.sessionFor(rec)))
}

// ListResumes 列出用户全部简历。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var resumes []database.Resume
	if err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&resumes).Error; err != nil {
		Internal(c, "failed to list resumes")
		return
	}

	items := make([]resumeListItem, 0, len(resumes))
	for _, r := range resumes {
		items = append(items, resumeListItem{
			ID:              r.ID,
			Title:           r.Title,
			Slug:            r.Slug,
			IsPublic:        r.IsPublic,
			TemplateID:      r.TemplateID,
			PreviewImageURL: r.PreviewImageURL,
			DownloadCount:   r.DownloadCount,
			CreatedAt:       r.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, items)
}

// GetResume 返回指定 ID 的简历并标记为当前正在编辑。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	rec, err := getResumeForUser(c.Request.Context(), h.db, c.Param("id"), userID)
	if err != nil {
		replyResumeLookupError(c, err)
		return
	}

	if err := h.setActiveResumeID(c.Request.Context(), userID, &rec.ID); err != nil {
		Internal(c, "failed to mark active resume")
		return
	}

	c.JSON(http.StatusOK, h.newResumeResponse(*rec, h.sessionFor(rec)))
}

type updateResumeRequest struct {
	Title   string      `json:"title" binding:"required"`
	Content resume.Data `json:"content" binding:"required"`
}

// UpdateResume 覆盖指定简历内容，并把快照推入编辑历史。
func (h *ResumeHandler) UpdateResume(c *gin.Context) {
	var req updateResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	rec, err := getResumeForUser(c.Request.Context(), h.db, c.Param("id"), userID)
	if err != nil {
		replyResumeLookupError(c, err)
		return
	}

	session, err := h.acquireSession(rec)
	if err != nil {
		Internal(c, "failed to open edit session")
		return
	}
	session.Apply(req.Content)

	content, err := json.Marshal(req.Content)
	if err != nil {
		BadRequest(c, "invalid resume content")
		return
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Model(rec).Updates(map[string]any{
		"title":   req.Title,
		"content": datatypes.JSON(content),
	}).Error; err != nil {
		Internal(c, "failed to update resume")
		return
	}

	if err := h.db.WithContext(ctx).First(rec, rec.ID).Error; err != nil {
		Internal(c, "failed to reload resume")
		return
	}

	if err := h.setActiveResumeID(ctx, userID, &rec.ID); err != nil {
		Internal(c, "failed to mark active resume")
		return
	}

	h.enqueuePreview(c, rec.ID)
	c.JSON(http.StatusOK, h.newResumeResponse(*rec, session))
}

// UndoResume 回退一步编辑历史并落库。
func (h *ResumeHandler) UndoResume(c *gin.Context) {
	h.stepHistory(c, (*editor.Session).Undo, "nothing to undo")
}

// RedoResume 前进一步编辑历史并落库。
func (h *ResumeHandler) RedoResume(c *gin.Context) {
	h.stepHistory(c, (*editor.Session).Redo, "nothing to redo")
}

func (h *ResumeHandler) stepHistory(c *gin.Context, step func(*editor.Session) (resume.Data, bool), emptyMsg string) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	rec, err := getResumeForUser(c.Request.Context(), h.db, c.Param("id"), userID)
	if err != nil {
		replyResumeLookupError(c, err)
		return
	}

	session, err := h.acquireSession(rec)
	if err != nil {
		Internal(c, "failed to open edit session")
		return
	}

	snapshot, ok := step(session)
	if !ok {
		Conflict(c, emptyMsg)
		return
	}

	content, err := json.Marshal(snapshot)
	if err != nil {
		Internal(c, "failed to encode snapshot")
		return
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Model(rec).
		Update("content", datatypes.JSON(content)).Error; err != nil {
		Internal(c, "failed to persist snapshot")
		return
	}

	if err := h.db.WithContext(ctx).First(rec, rec.ID).Error; err != nil {
		Internal(c, "failed to reload resume")
		return
	}

	h.enqueuePreview(c, rec.ID)
	c.JSON(http.StatusOK, h.newResumeResponse(*rec, session))
}

// GetHistory 返回编辑历史的可用性信息。
func (h *ResumeHandler) GetHistory(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	rec, err := getResumeForUser(c.Request.Context(), h.db, c.Param("id"), userID)
	if err != nil {
		replyResumeLookupError(c, err)
		return
	}

	session, err := h.acquireSession(rec)
	if err != nil {
		Internal(c, "failed to open edit session")
		return
	}

	canUndo, canRedo, length, index := session.Info()
	c.JSON(http.StatusOK, historyInfo{
		CanUndo: canUndo,
		CanRedo: canRedo,
		Length:  length,
		Index:   index,
	})
}

type publishResumeRequest struct {
	Slug          string                `json:"slug" binding:"required"`
	TemplateID    string                `json:"template_id"`
	Customization *resume.Customization `json:"customization"`
}

// PublishResume 设置 Slug 并开放公共访问。
func (h *ResumeHandler) PublishResume(c *gin.Context) {
	var req publishResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if !isValidSlug(slug) {
		BadRequest(c, "slug may only contain lowercase letters, digits and hyphens")
		return
	}

	templateID := req.TemplateID
	if templateID == "" {
		templateID = render.DefaultTemplateID
	}
	if _, ok := render.LookupTemplate(templateID); !ok {
		BadRequest(c, "unknown template")
		return
	}

	rec, err := getResumeForUser(c.Request.Context(), h.db, c.Param("id"), userID)
	if err != nil {
		replyResumeLookupError(c, err)
		return
	}

	ctx := c.Request.Context()

	// Slug 在同一用户的简历内必须唯一，公开 URL 由 username+slug 定位。
	var clash int64
	if err := h.db.WithContext(ctx).
		Model(&database.Resume{}).
		Where("user_id = ? AND slug = ? AND id <> ?", userID, slug, rec.ID).
		Count(&clash).Error; err != nil {
		Internal(c, "failed to check slug")
		return
	}
	if clash > 0 {
		Conflict(c, "slug already in use")
		return
	}

	updates := map[string]any{
		"slug":        slug,
		"is_public":   true,
		"template_id": templateID,
	}
	if req.Customization != nil {
		encoded, err := json.Marshal(req.Customization)
		if err != nil {
			BadRequest(c, "invalid customization")
			return
		}
		updates["customization"] = datatypes.JSON(encoded)
	}

	if err := h.db.WithContext(ctx).Model(rec).Updates(updates).Error; err != nil {
		Internal(c, "failed to publish resume")
		return
	}

	if err := h.db.WithContext(ctx).First(rec, rec.ID).Error; err != nil {
		Internal(c, "failed to reload resume")
		return
	}

	h.enqueuePreview(c, rec.ID)
	c.JSON(http.StatusOK, h.newResumeResponse(*rec, h.sessionFor(rec)))
}

// UnpublishResume 关闭公共访问，Slug 保留以便再次发布。
func (h *ResumeHandler) UnpublishResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	rec, err := getResumeForUser(c.Request.Context(), h.db, c.Param("id"), userID)
	if err != nil {
		replyResumeLookupError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Model(rec).
		Update("is_public", false).Error; err != nil {
		Internal(c, "failed to unpublish resume")
		return
	}

	if err := h.db.WithContext(ctx).First(rec, rec.ID).Error; err != nil {
		Internal(c, "failed to reload resume")
		return
	}

	c.JSON(http.StatusOK, h.newResumeResponse(*rec, h.sessionFor(rec)))
}

// DeleteResume 删除指定简历，连同缩略图与编辑会话，并回落到最近一份。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	rec, err := getResumeForUser(c.Request.Context(), h.db, c.Param("id"), userID)
	if err != nil {
		replyResumeLookupError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Delete(&database.Resume{}, rec.ID).Error; err != nil {
		Internal(c, "failed to delete resume")
		return
	}

	h.sessions.Drop(rec.ID)

	// 缩略图清理失败不影响删除结果。
	logger := middleware.LoggerFromContext(c)
	prefix := "thumbnails/resume/" + strconv.FormatUint(uint64(rec.ID), 10) + "/"
	if err := h.storage.DeletePrefix(ctx, prefix); err != nil {
		logger.Warn("delete resume thumbnails failed", "error", err)
	}

	if err := h.assignLatestResumeAsActive(ctx, userID); err != nil {
		Internal(c, "failed to update active resume")
		return
	}

	c.Status(http.StatusNoContent)
}

func replyResumeLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidResumeID):
		BadRequest(c, "invalid resume id")
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "resume not found")
	default:
		Internal(c, "failed to query resume")
	}
}

func (h *ResumeHandler) acquireSession(rec *database.Resume) (*editor.Session, error) {
	return h.sessions.Acquire(rec.ID, rec.DecodeContent)
}

// sessionFor 返回会话（失败时为 nil），仅用于补充响应里的历史信息。
func (h *ResumeHandler) sessionFor(rec *database.Resume) *editor.Session {
	session, err := h.acquireSession(rec)
	if err != nil {
		return nil
	}
	return session
}

func (h *ResumeHandler) enqueuePreview(c *gin.Context, resumeID uint) {
	logger := middleware.LoggerFromContext(c)
	task, err := tasks.NewPreviewGenerateTask(resumeID, middleware.GetCorrelationID(c))
	if err != nil {
		logger.Warn("create preview task failed", "error", err)
		return
	}
	if _, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(5)); err != nil {
		logger.Warn("enqueue preview task failed", "error", err)
	}
}

func (h *ResumeHandler) setActiveResumeID(ctx context.Context, userID uint, resumeID *uint) error {
	var value any
	if resumeID != nil {
		value = *resumeID
	}
	return h.db.WithContext(ctx).Model(&database.User{}).
		Where("id = ?", userID).
		Update("active_resume_id", value).Error
}

func (h *ResumeHandler) assignLatestResumeAsActive(ctx context.Context, userID uint) error {
	var rec database.Resume
	err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		First(&rec).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return h.setActiveResumeID(ctx, userID, nil)
	case err != nil:
		return err
	default:
		return h.setActiveResumeID(ctx, userID, &rec.ID)
	}
}

func (h *ResumeHandler) findActiveOrLatestResume(ctx context.Context, userID uint) (*database.Resume, error) {
	var user database.User
	if err := h.db.WithContext(ctx).
		Select("id", "active_resume_id").
		First(&user, userID).Error; err != nil {
		return nil, err
	}

	if user.ActiveResumeID != nil {
		var rec database.Resume
		if err := h.db.WithContext(ctx).
			Where("id = ? AND user_id = ?", *user.ActiveResumeID, userID).
			First(&rec).Error; err == nil {
			return &rec, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	var latest database.Resume
	err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		First(&latest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = h.setActiveResumeID(ctx, userID, nil)
		}
		return nil, err
	}

	if err := h.setActiveResumeID(ctx, userID, &latest.ID); err != nil {
		return nil, err
	}
	return &latest, nil
}

func getResumeForUser(ctx context.Context, db *gorm.DB, idParam string, userID uint) (*database.Resume, error) {
	resumeID, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil {
		return nil, errInvalidResumeID
	}

	var rec database.Resume
	if err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", uint(resumeID), userID).
		First(&rec).Error; err != nil {
		return nil, err
	}

	return &rec, nil
}

func isValidSlug(slug string) bool {
	if len(slug) < 1 || len(slug) > 128 {
		return false
	}
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return false
		}
	}
	return slug[0] != '-' && slug[len(slug)-1] != '-'
}

const defaultResumeTitle = "My First Resume"

// starterResumeData 是新用户首次打开编辑器时看到的内容。
func starterResumeData() resume.Data {
	return resume.Data{
		PersonalInfo: resume.PersonalInfo{
			FirstName: "Your",
			LastName:  "Name",
			JobTitle:  "Your Job Title",
			Email:     "hello@example.com",
			Phone:     "123-456-7890",
		},
		Skills: []resume.Skill{
			{ID: "starter-skill-1", Name: "Your first skill"},
		},
	}
}

func (h *ResumeHandler) newResumeResponse(rec database.Resume, session *editor.Session) resumeResponse {
	content, err := rec.DecodeContent()
	if err != nil {
		content = resume.Data{}
	}

	resp := resumeResponse{
		ID:              rec.ID,
		Title:           rec.Title,
		Content:         content,
		Slug:            rec.Slug,
		IsPublic:        rec.IsPublic,
		TemplateID:      rec.TemplateID,
		Customization:   rec.DecodeCustomization(),
		PreviewImageURL: rec.PreviewImageURL,
		DownloadCount:   rec.DownloadCount,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
	if session != nil {
		canUndo, canRedo, length, index := session.Info()
		resp.History = &historyInfo{CanUndo: canUndo, CanRedo: canRedo, Length: length, Index: index}
	}
	return resp
}
