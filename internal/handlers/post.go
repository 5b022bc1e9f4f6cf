package handlers

import (
	"net/http"

	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/services"
	"agora/internal/utils"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	content *services.ContentService
}

func NewPostHandler(content *services.ContentService) *PostHandler {
	return &PostHandler{content: content}
}

type postRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	TopicID *uint    `json:"topic_id"`
	Tags    []string `json:"tags"`
}

func (r postRequest) input() services.PostInput {
	return services.PostInput{Title: r.Title, Content: r.Content, TopicID: r.TopicID, Tags: r.Tags}
}

type commentRequest struct {
	Content  string `json:"content"`
	ParentID *uint  `json:"parent_id"`
}

// List serves /posts?sort=hot|new|top&topic=slug&tag=name&limit=&offset=
func (h *PostHandler) List(c *gin.Context) {
	q := services.PostQuery{
		Sort:      services.PostSort(c.DefaultQuery("sort", string(services.SortHot))),
		TopicSlug: c.Query("topic"),
		Tag:       c.Query("tag"),
		Limit:     queryInt(c, "limit", 20),
		Offset:    queryInt(c, "offset", 0),
	}
	if id, ok := utils.ParseID(c.Query("user")); ok {
		q.UserID = id
	}
	posts, err := h.content.ListPosts(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": postViews(posts)})
}

func (h *PostHandler) Detail(c *gin.Context) {
	id, ok := paramID(c, "pid")
	if !ok {
		return
	}
	post, err := h.content.GetPost(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	comments, err := h.content.ListComments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": postView(*post), "comments": commentViews(comments)})
}

func (h *PostHandler) Create(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid post body")
		return
	}
	post, err := h.content.CreatePost(c.Request.Context(), middleware.CurrentActor(c), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, postView(*post))
}

func (h *PostHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "pid")
	if !ok {
		return
	}
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid post body")
		return
	}
	post, err := h.content.UpdatePost(c.Request.Context(), middleware.CurrentActor(c), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, postView(*post))
}

func (h *PostHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "pid")
	if !ok {
		return
	}
	if err := h.content.DeletePost(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PostHandler) CreateComment(c *gin.Context) {
	postID, ok := paramID(c, "pid")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid comment body")
		return
	}
	comment, err := h.content.CreateComment(c.Request.Context(), middleware.CurrentActor(c), postID,
		services.CommentInput{Content: req.Content, ParentID: req.ParentID})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, commentViews([]models.Comment{*comment})[0])
}

func (h *PostHandler) UpdateComment(c *gin.Context) {
	id, ok := paramID(c, "cid")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid comment body")
		return
	}
	comment, err := h.content.UpdateComment(c.Request.Context(), middleware.CurrentActor(c), id, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, commentViews([]models.Comment{*comment})[0])
}

func (h *PostHandler) DeleteComment(c *gin.Context) {
	id, ok := paramID(c, "cid")
	if !ok {
		return
	}
	if err := h.content.DeleteComment(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
