package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cvforge/internal/score"
)

// ScoreHandler 暴露简历评分：职位匹配、ATS 兼容性与发布就绪度。
// 评分算法是纯函数，handler 只负责取数与编排。
type ScoreHandler struct {
	db *gorm.DB
}

// NewScoreHandler 构造 ScoreHandler。
func NewScoreHandler(db *gorm.DB) *ScoreHandler {
	return &ScoreHandler{db: db}
}

type scoreRequest struct {
	JobDescription string `json:"job_description"`
}

type scoreResponse struct {
	ATS       score.ATSResult       `json:"ats"`
	Readiness score.ReadinessResult `json:"readiness"`
	Match     *score.JobAnalysis    `json:"match,omitempty"`
}

// Score 返回一份简历的完整评分。带职位描述时附带匹配分析。
func (h *ScoreHandler) Score(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	// body 可以为空：此时只算 ATS 与就绪度。
	var req scoreRequest
	_ = c.ShouldBindJSON(&req)

	rec, err := getResumeForUser(c.Request.Context(), h.db, c.Param("id"), userID)
	if err != nil {
		replyResumeLookupError(c, err)
		return
	}

	data, err := rec.DecodeContent()
	if err != nil {
		Internal(c, "failed to decode resume")
		return
	}

	resp := scoreResponse{
		ATS:       score.CalculateATSScore(&data),
		Readiness: score.AnalyzeReadiness(&data),
	}
	if req.JobDescription != "" {
		analysis := score.AnalyzeJobMatch(req.JobDescription, &data)
		resp.Match = &analysis
	}

	c.JSON(http.StatusOK, resp)
}

type matchRequest struct {
	JobDescription string `json:"job_description" binding:"required"`
}

// Match 针对一段职位描述做匹配分析。
func (h *ScoreHandler) Match(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	rec, err := getResumeForUser(c.Request.Context(), h.db, c.Param("id"), userID)
	if err != nil {
		replyResumeLookupError(c, err)
		return
	}

	data, err := rec.DecodeContent()
	if err != nil {
		Internal(c, "failed to decode resume")
		return
	}

	c.JSON(http.StatusOK, score.AnalyzeJobMatch(req.JobDescription, &data))
}
