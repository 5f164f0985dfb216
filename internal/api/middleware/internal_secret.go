package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const internalSecretHeader = "X-Internal-Secret"

// InternalSecretMiddleware 保护只允许内网组件访问的端点（如 /metrics）。
// 密钥必须通过 Header 传递，避免 query 泄露到浏览器历史/访问日志。
func InternalSecretMiddleware(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal api secret is not configured"})
			return
		}

		token := strings.TrimSpace(c.GetHeader(internalSecretHeader))
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
