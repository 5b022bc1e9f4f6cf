package handlers

import (
	"net/http"

	"agora/internal/middleware"
	"agora/internal/services"

	"github.com/gin-gonic/gin"
)

type AIHandler struct {
	ai *services.AIService
}

func NewAIHandler(ai *services.AIService) *AIHandler {
	return &AIHandler{ai: ai}
}

type generateRequest struct {
	Prompt  string `json:"prompt"`
	TopicID *uint  `json:"topic_id"`
}

func (h *AIHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid generate body")
		return
	}
	post, err := h.ai.GeneratePost(c.Request.Context(), middleware.CurrentActor(c), req.Prompt, req.TopicID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, postView(*post))
}

type scheduleRequest struct {
	Name    string `json:"name"`
	Cron    string `json:"cron"`
	Prompt  string `json:"prompt"`
	TopicID *uint  `json:"topic_id"`
	Enabled bool   `json:"enabled"`
}

func (h *AIHandler) ListSchedules(c *gin.Context) {
	schedules, err := h.ai.ListSchedules(c.Request.Context(), middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules})
}

// SaveSchedule creates or replaces a schedule by name.
func (h *AIHandler) SaveSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid schedule body")
		return
	}
	view, err := h.ai.SaveSchedule(c.Request.Context(), middleware.CurrentActor(c), services.ScheduleInput{
		Name:    req.Name,
		Cron:    req.Cron,
		Prompt:  req.Prompt,
		TopicID: req.TopicID,
		Enabled: req.Enabled,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AIHandler) DeleteSchedule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.ai.DeleteSchedule(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
