package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cvforge/internal/api/middleware"
	"cvforge/internal/auth"
	"cvforge/internal/config"
	"cvforge/internal/editor"
	"cvforge/internal/pdfcache"
	"cvforge/internal/render"
	"cvforge/internal/storage"
)

// Dependencies 汇集路由层需要的外部组件。
type Dependencies struct {
	DB          *gorm.DB
	AsynqClient *asynq.Client
	AuthService *auth.Service
	RedisClient *redis.Client
	Logger      *slog.Logger
	Storage     *storage.Client
	Sessions    *editor.Manager
	PDFCache    *pdfcache.Cache
	Generator   render.Generator
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, deps Dependencies, cfg *config.Config) {
	resumeHandler := NewResumeHandler(deps.DB, deps.AsynqClient, deps.Storage, deps.Sessions, cfg.API.MaxResumes)
	scoreHandler := NewScoreHandler(deps.DB)
	authHandler := NewAuthHandler(
		deps.DB,
		deps.AuthService,
		deps.RedisClient,
		deps.Logger,
		cfg.Auth.LoginRateLimitPerHour,
		cfg.Auth.LoginLockThreshold,
		cfg.Auth.LoginLockTTL,
		cfg.API.CookieDomain,
	)
	assetHandler := NewAssetHandler(
		deps.DB,
		deps.Storage,
		deps.RedisClient,
		deps.Logger,
		cfg.Upload.ClamdAddr,
		cfg.Upload.MaxBytes,
		cfg.Upload.MaxAssetsPerUser,
		cfg.Upload.MaxUploadsPerDay,
	)
	publicHandler := NewPublicHandler(
		deps.DB,
		deps.RedisClient,
		deps.PDFCache,
		deps.Generator,
		deps.Storage,
		deps.Logger,
		cfg.PDF.RenderTimeout,
		cfg.Download.AbuseLimit,
		cfg.Download.AbuseWindow,
	)
	wsHandler := NewWsHandler(deps.RedisClient, deps.AuthService, deps.Logger, cfg.API.AllowedOrigins)

	authMiddleware := middleware.AuthMiddleware(deps.AuthService)
	passwordGate := middleware.RequirePasswordChangeCompletedMiddleware()

	router.GET("/metrics", middleware.InternalSecretMiddleware(cfg.API.InternalSecret), gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)
		v1.GET("/templates", ListTemplates)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		resumeGroup := v1.Group("/resume")
		resumeGroup.Use(authMiddleware, passwordGate)
		{
			resumeGroup.POST("", resumeHandler.CreateResume)
			resumeGroup.GET("", resumeHandler.ListResumes)
			resumeGroup.GET("/latest", resumeHandler.GetLatestResume)
			resumeGroup.GET("/:id", resumeHandler.GetResume)
			resumeGroup.PUT("/:id", resumeHandler.UpdateResume)
			resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
			resumeGroup.POST("/:id/undo", resumeHandler.UndoResume)
			resumeGroup.POST("/:id/redo", resumeHandler.RedoResume)
			resumeGroup.GET("/:id/history", resumeHandler.GetHistory)
			resumeGroup.POST("/:id/publish", resumeHandler.PublishResume)
			resumeGroup.POST("/:id/unpublish", resumeHandler.UnpublishResume)
			resumeGroup.POST("/:id/score", scoreHandler.Score)
			resumeGroup.POST("/:id/score/match", scoreHandler.Match)
		}

		assetGroup := v1.Group("/assets")
		assetGroup.Use(authMiddleware, passwordGate)
		{
			assetGroup.POST("/photos", assetHandler.UploadPhoto)
			assetGroup.GET("/photos", assetHandler.ListPhotos)
			assetGroup.GET("/photos/url", assetHandler.GetPhotoURL)
		}

		publicGroup := v1.Group("/public")
		publicGroup.Use(middleware.RateLimitMiddleware(cfg.Download.RatePerMinute, cfg.Download.Burst))
		{
			publicGroup.POST("/:username/:slug/download", publicHandler.Download)
		}
	}
}
