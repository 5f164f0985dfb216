package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cvforge/internal/api/middleware"
	"cvforge/internal/database"
	"cvforge/internal/errcode"
	"cvforge/internal/metrics"
	"cvforge/internal/pdfcache"
	"cvforge/internal/render"
	"cvforge/internal/storage"
)

// 公开下载的错误文案；404 对"不存在"与"未公开"给同一句话，不泄露状态。
const (
	publicNotFoundMessage   = "resume not found"
	publicRateLimitMessage  = "too many requests"
	publicRenderFailMessage = "Failed to generate PDF"
	publicTimeoutMessage    = "PDF generation timed out"
)

// 统计埋点只有在访客明确同意后才记录。
const (
	consentCookieName   = "cvforge_consent"
	consentGrantedValue = "granted"
	abuseCounterPrefix  = "abuse:download:"
)

// PublicHandler 提供免登录的公开简历 PDF 下载。
type PublicHandler struct {
	db        *gorm.DB
	redis     redis.UniversalClient
	cache     *pdfcache.Cache
	generator render.Generator
	logger    *slog.Logger

	renderTimeout time.Duration
	abuseLimit    int
	abuseWindow   time.Duration

	// loadPhoto 可在测试中替换，生产环境从 MinIO 读取。
	loadPhoto func(ctx context.Context, key string) ([]byte, error)
}

// NewPublicHandler 构造公开下载处理器。
func NewPublicHandler(
	db *gorm.DB,
	redisClient redis.UniversalClient,
	cache *pdfcache.Cache,
	generator render.Generator,
	storageClient *storage.Client,
	logger *slog.Logger,
	renderTimeout time.Duration,
	abuseLimit int,
	abuseWindow time.Duration,
) *PublicHandler {
	if renderTimeout <= 0 {
		renderTimeout = 60 * time.Second
	}
	h := &PublicHandler{
		db:            db,
		redis:         redisClient,
		cache:         cache,
		generator:     generator,
		logger:        logger,
		renderTimeout: renderTimeout,
		abuseLimit:    abuseLimit,
		abuseWindow:   abuseWindow,
	}
	h.loadPhoto = func(ctx context.Context, key string) ([]byte, error) {
		if storageClient == nil || strings.TrimSpace(key) == "" {
			return nil, nil
		}
		obj, err := storageClient.GetObject(ctx, key)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = obj.Close()
		}()
		return io.ReadAll(obj)
	}
	return h
}

// Download 查找公开简历并返回 PDF 字节，命中缓存时跳过渲染。
func (h *PublicHandler) Download(c *gin.Context) {
	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	if h.exceedsAbuseThreshold(ctx, c.ClientIP()) {
		metrics.ObservePublicDownload("rate_limited")
		TooManyRequests(c, publicRateLimitMessage)
		return
	}

	rec, ok := h.lookupPublicResume(ctx, c.Param("username"), c.Param("slug"))
	if !ok {
		metrics.ObservePublicDownload("not_found")
		NotFound(c, publicNotFoundMessage)
		return
	}

	logger = logger.With(slog.Uint64("resume_id", uint64(rec.ID)))

	customization := rec.DecodeCustomization()
	cacheKey := pdfcache.MakeKey(rec.ID, rec.TemplateID, customization)

	if entry, hit := h.cache.Get(cacheKey); hit {
		metrics.ObservePDFCacheLookup("hit")
		metrics.ObservePublicDownload("ok")
		h.trackDownload(c, rec.ID)
		servePDF(c, entry.Buffer, entry.FileName, "HIT")
		return
	}
	metrics.ObservePDFCacheLookup("miss")

	data, err := rec.DecodeContent()
	if err != nil {
		logger.Error("decode public resume failed", slog.Any("error", err))
		metrics.ObservePublicDownload("error")
		Internal(c, publicRenderFailMessage)
		return
	}

	photoURI := ""
	if photoBytes, err := h.loadPhoto(ctx, data.PersonalInfo.PhotoKey); err != nil {
		logger.Warn("load resume photo failed, rendering without it", slog.Any("error", err))
	} else {
		photoURI = render.PhotoDataURI(photoBytes)
	}

	htmlContent, err := render.BuildHTML(&data, rec.TemplateID, customization, photoURI)
	if err != nil {
		logger.Error("build public resume html failed", slog.Any("error", err))
		metrics.ObservePublicDownload("error")
		Internal(c, publicRenderFailMessage)
		return
	}

	renderCtx, cancel := context.WithTimeout(ctx, h.renderTimeout)
	defer cancel()

	start := time.Now()
	pdfBytes, err := h.generator.GeneratePDF(renderCtx, htmlContent)
	metrics.ObservePDFRenderDuration(time.Since(start))
	if err != nil {
		if errors.Is(err, render.ErrTimeout) {
			logger.Error("public pdf render timed out",
				slog.Duration("timeout", h.renderTimeout),
				slog.Any("error", err))
			metrics.ObservePublicDownload("timeout")
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": publicTimeoutMessage,
				"code":  errcode.RenderTimeout,
			})
			return
		}
		logger.Error("public pdf render failed", slog.Any("error", err))
		metrics.ObservePublicDownload("error")
		Internal(c, publicRenderFailMessage)
		return
	}

	fileName := buildDownloadFileName(data.PersonalInfo.FirstName, data.PersonalInfo.LastName)
	h.cache.Set(cacheKey, pdfcache.Entry{Buffer: pdfBytes, FileName: fileName})

	metrics.ObservePublicDownload("ok")
	h.trackDownload(c, rec.ID)
	servePDF(c, pdfBytes, fileName, "MISS")
}

// lookupPublicResume 按 username+slug 查公开简历。任何失败都折叠为"未找到"。
func (h *PublicHandler) lookupPublicResume(ctx context.Context, username, slug string) (*database.Resume, bool) {
	username = strings.ToLower(strings.TrimSpace(username))
	slug = strings.ToLower(strings.TrimSpace(slug))
	if username == "" || slug == "" {
		return nil, false
	}

	var user database.User
	if err := h.db.WithContext(ctx).
		Select("id").
		Where("username = ?", username).
		First(&user).Error; err != nil {
		return nil, false
	}

	var rec database.Resume
	if err := h.db.WithContext(ctx).
		Where("user_id = ? AND slug = ? AND is_public = ?", user.ID, slug, true).
		First(&rec).Error; err != nil {
		return nil, false
	}
	return &rec, true
}

// exceedsAbuseThreshold 用 Redis 固定窗口计数识别滥用 IP。
// Redis 不可用时放行，下载能力优先于滥用防护。
func (h *PublicHandler) exceedsAbuseThreshold(ctx context.Context, ip string) bool {
	if h.redis == nil || h.abuseLimit <= 0 {
		return false
	}
	count, err := incrWithTTL(ctx, h.redis, abuseCounterPrefix+ip, h.abuseWindow)
	if err != nil {
		return false
	}
	return count > int64(h.abuseLimit)
}

// trackDownload 在访客同意的前提下异步累加下载计数。失败只记日志。
func (h *PublicHandler) trackDownload(c *gin.Context, resumeID uint) {
	if cookie, err := c.Cookie(consentCookieName); err != nil || cookie != consentGrantedValue {
		return
	}

	logger := middleware.LoggerFromContext(c)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.db.WithContext(ctx).
			Model(&database.Resume{}).
			Where("id = ?", resumeID).
			Update("download_count", gorm.Expr("download_count + 1")).Error; err != nil {
			logger.Warn("increment download count failed",
				slog.Uint64("resume_id", uint64(resumeID)),
				slog.Any("error", err))
		}
	}()
}

func servePDF(c *gin.Context, buffer []byte, fileName, cacheStatus string) {
	c.Header("X-Cache", cacheStatus)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, "application/pdf", buffer)
}

// buildDownloadFileName 由姓名拼接下载文件名。
// 每个名字段只保留 [a-zA-Z0-9-_]，其余折叠为单个下划线，
// 去掉首尾下划线并截断到 50 字符；没有可用字段时回退 Resume.pdf。
func buildDownloadFileName(nameParts ...string) string {
	cleaned := make([]string, 0, len(nameParts))
	for _, part := range nameParts {
		if s := sanitizeNamePart(part); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return "Resume.pdf"
	}
	return strings.Join(cleaned, "_") + "_Resume.pdf"
}

func sanitizeNamePart(part string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range part {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_':
			if !lastUnderscore {
				b.WriteByte('_')
			}
			lastUnderscore = true
		default:
			if !lastUnderscore {
				b.WriteByte('_')
			}
			lastUnderscore = true
		}
	}
	s := strings.Trim(b.String(), "_")
	if len(s) > 50 {
		s = strings.Trim(s[:50], "_")
	}
	return s
}
