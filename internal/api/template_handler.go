package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cvforge/internal/render"
)

type templateItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListTemplates 返回内置模板列表，供前端发布时选择。
func ListTemplates(c *gin.Context) {
	templates := render.ListTemplates()
	items := make([]templateItem, 0, len(templates))
	for _, t := range templates {
		items = append(items, templateItem{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
		})
	}
	c.JSON(http.StatusOK, items)
}
