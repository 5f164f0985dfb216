package api

import "github.com/gin-gonic/gin"

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, ok := c.Get("userID")
	if !ok {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

func usernameFromContext(c *gin.Context) (string, bool) {
	value, ok := c.Get("username")
	if !ok {
		return "", false
	}
	name, ok := value.(string)
	return name, ok
}
