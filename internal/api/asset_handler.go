package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cvforge/internal/database"
	"cvforge/internal/storage"
)

// AssetHandler 负责简历头像的上传与访问。
type AssetHandler struct {
	db               *gorm.DB
	storage          *storage.Client
	redis            redis.UniversalClient
	logger           *slog.Logger
	clamdAddr        string
	maxBytes         int64
	maxAssetsPerUser int
	maxUploadsPerDay int
}

// NewAssetHandler 返回 AssetHandler 实例。
func NewAssetHandler(db *gorm.DB, storageClient *storage.Client, redisClient redis.UniversalClient, logger *slog.Logger, clamdAddr string, maxBytes int64, maxAssetsPerUser, maxUploadsPerDay int) *AssetHandler {
	return &AssetHandler{
		db:               db,
		storage:          storageClient,
		redis:            redisClient,
		logger:           logger,
		clamdAddr:        clamdAddr,
		maxBytes:         maxBytes,
		maxAssetsPerUser: maxAssetsPerUser,
		maxUploadsPerDay: maxUploadsPerDay,
	}
}

// UploadPhoto 处理头像上传：限额、病毒扫描、MinIO 存储、登记资产。
func (h *AssetHandler) UploadPhoto(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}

	if h.maxBytes > 0 && file.Size > h.maxBytes {
		BadRequest(c, "file too large")
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		BadRequest(c, "only image uploads are allowed")
		return
	}

	ctx := c.Request.Context()

	if h.maxAssetsPerUser > 0 {
		var count int64
		if err := h.db.WithContext(ctx).
			Model(&database.Asset{}).
			Where("user_id = ?", userID).
			Count(&count).Error; err != nil {
			Internal(c, "failed to count assets")
			return
		}
		if count >= int64(h.maxAssetsPerUser) {
			Forbidden(c, "asset limit reached")
			return
		}
	}

	// 每日上传配额，窗口随日期键自然滚动。
	if h.maxUploadsPerDay > 0 && h.redis != nil {
		quotaKey := fmt.Sprintf("quota:upload:%d:%s", userID, time.Now().UTC().Format("20060102"))
		count, err := incrWithTTL(ctx, h.redis, quotaKey, 24*time.Hour)
		if err == nil && count > int64(h.maxUploadsPerDay) {
			TooManyRequests(c, "daily upload limit reached")
			return
		}
	}

	clamdClient := clamd.NewClamd(h.clamdAddr)

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}

	abortChan := make(chan bool)
	scanChan, err := clamdClient.ScanStream(fileReader, abortChan)
	fileReader.Close()
	if err != nil {
		h.logger.Error("scan file", slog.String("error", err.Error()))
		Internal(c, "failed to scan file")
		return
	}
	defer close(abortChan)

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			BadRequest(c, "malicious file detected")
			return
		}
	}

	fileReader, err = file.Open()
	if err != nil {
		Internal(c, "failed to reopen file")
		return
	}
	defer fileReader.Close()

	ext := photoExtension(contentType)
	objectKey := fmt.Sprintf("photos/%d/%s%s", userID, uuid.NewString(), ext)

	if _, err := h.storage.UploadFile(ctx, objectKey, fileReader, file.Size, contentType); err != nil {
		h.logger.Error("upload file", slog.String("error", err.Error()))
		Internal(c, "failed to upload file")
		return
	}

	asset := database.Asset{
		UserID:    userID,
		ObjectKey: objectKey,
		MIMEType:  contentType,
		SizeBytes: file.Size,
	}
	if err := h.db.WithContext(ctx).Create(&asset).Error; err != nil {
		h.logger.Error("register asset", slog.String("error", err.Error()))
		Internal(c, "failed to register asset")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"objectKey": objectKey})
}

func photoExtension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// ListPhotos 列出用户上传的头像。
func (h *AssetHandler) ListPhotos(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	prefix := fmt.Sprintf("photos/%d/", userID)
	objects, err := h.storage.ListObjects(c.Request.Context(), prefix, 60)
	if err != nil {
		h.logger.Error("list photos", slog.String("error", err.Error()))
		Internal(c, "failed to list photos")
		return
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})

	items := make([]gin.H, 0, len(objects))
	for _, obj := range objects {
		url, err := h.storage.GeneratePresignedURL(c.Request.Context(), obj.Key, 10*time.Minute)
		if err != nil {
			h.logger.Error("generate photo url", slog.String("objectKey", obj.Key), slog.String("error", err.Error()))
			continue
		}
		items = append(items, gin.H{
			"objectKey":    obj.Key,
			"previewUrl":   url,
			"size":         obj.Size,
			"lastModified": obj.LastModified,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetPhotoURL 返回头像的临时预签名 URL。
func (h *AssetHandler) GetPhotoURL(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	objectKey := c.Query("key")
	if !isValidUserPhotoObjectKey(userID, objectKey) {
		Forbidden(c, "access denied")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), objectKey, 15*time.Minute)
	if err != nil {
		h.logger.Error("generate presigned url", slog.String("error", err.Error()))
		Internal(c, "failed to generate url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

func isValidUserPhotoObjectKey(userID uint, key string) bool {
	if key == "" || !utf8.ValidString(key) {
		return false
	}
	expected := fmt.Sprintf("photos/%d/", userID)
	if !strings.HasPrefix(key, expected) {
		return false
	}
	if strings.Contains(key, "..") || strings.Contains(key, "\\") || strings.Contains(key, "//") {
		return false
	}
	if len(key) > 200 {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(key))
	return strings.HasSuffix(lower, ".png") || strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") || strings.HasSuffix(lower, ".webp")
}
