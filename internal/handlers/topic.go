package handlers

import (
	"net/http"

	"agora/internal/middleware"
	"agora/internal/services"

	"github.com/gin-gonic/gin"
)

// TaxonomyHandler serves topics and tags. Reads are public; writes need moderation rights.
type TaxonomyHandler struct {
	content *services.ContentService
}

func NewTaxonomyHandler(content *services.ContentService) *TaxonomyHandler {
	return &TaxonomyHandler{content: content}
}

type topicRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ExpertOnly  bool   `json:"expert_only"`
}

func (r topicRequest) input() services.TopicInput {
	return services.TopicInput{Name: r.Name, Description: r.Description, ExpertOnly: r.ExpertOnly}
}

type tagRequest struct {
	Name string `json:"name"`
}

func (h *TaxonomyHandler) ListTopics(c *gin.Context) {
	topics, err := h.content.ListTopics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics})
}

// TopicPosts lists one topic's posts, hottest first unless ?sort says otherwise.
func (h *TaxonomyHandler) TopicPosts(c *gin.Context) {
	topic, err := h.content.GetTopic(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	posts, err := h.content.ListPosts(c.Request.Context(), services.PostQuery{
		Sort:      services.PostSort(c.DefaultQuery("sort", string(services.SortHot))),
		TopicSlug: topic.Slug,
		Limit:     queryInt(c, "limit", 20),
		Offset:    queryInt(c, "offset", 0),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topic": topic, "posts": postViews(posts)})
}

func (h *TaxonomyHandler) CreateTopic(c *gin.Context) {
	var req topicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid topic body")
		return
	}
	topic, err := h.content.CreateTopic(c.Request.Context(), middleware.CurrentActor(c), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, topic)
}

func (h *TaxonomyHandler) UpdateTopic(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req topicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid topic body")
		return
	}
	topic, err := h.content.UpdateTopic(c.Request.Context(), middleware.CurrentActor(c), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, topic)
}

func (h *TaxonomyHandler) DeleteTopic(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.content.DeleteTopic(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaxonomyHandler) ListTags(c *gin.Context) {
	tags, err := h.content.ListTags(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

func (h *TaxonomyHandler) CreateTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid tag body")
		return
	}
	tag, err := h.content.CreateTag(c.Request.Context(), middleware.CurrentActor(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

func (h *TaxonomyHandler) DeleteTag(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.content.DeleteTag(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
