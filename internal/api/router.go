package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvforge/internal/api/middleware"
	"cvforge/internal/metrics"
)

// NewRouter 构建 Gin 路由引擎并挂载基础中间件。
func NewRouter(logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		metrics.GinMiddleware(),
		gin.Recovery(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}
