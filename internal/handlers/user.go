package handlers

import (
	"net/http"

	"agora/internal/middleware"
	"agora/internal/services"
	"agora/internal/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users        *services.UserService
	dashboard    *services.DashboardService
	applications *services.ApplicationService
	content      *services.ContentService
}

func NewUserHandler(users *services.UserService, dashboard *services.DashboardService, applications *services.ApplicationService, content *services.ContentService) *UserHandler {
	return &UserHandler{users: users, dashboard: dashboard, applications: applications, content: content}
}

// Dashboard returns the layered capability view for the current actor.
func (h *UserHandler) Dashboard(c *gin.Context) {
	d, err := h.dashboard.For(c.Request.Context(), middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *UserHandler) ContributorBoard(c *gin.Context) {
	board, err := h.dashboard.ContributorBoard(c.Request.Context(), middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *UserHandler) AdminBoard(c *gin.Context) {
	board, err := h.dashboard.AdminBoard(c.Request.Context(), middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *UserHandler) SuperAdminBoard(c *gin.Context) {
	board, err := h.dashboard.SuperAdminBoard(c.Request.Context(), middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *UserHandler) TrustLogs(c *gin.Context) {
	logs, err := h.dashboard.TrustLogs(c.Request.Context(), middleware.CurrentActor(c), queryInt(c, "limit", 50))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// Profile is the public page of a user: identity, trust level and recent posts.
func (h *UserHandler) Profile(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	posts, err := h.content.ListPosts(c.Request.Context(), services.PostQuery{Sort: services.SortNew, UserID: id, Limit: 20})
	if err != nil {
		respondError(c, err)
		return
	}
	level, icon := utils.TrustLevel(user.TrustScore)
	c.JSON(http.StatusOK, gin.H{
		"user":        user,
		"trust_level": level,
		"trust_icon":  icon,
		"posts":       postViews(posts),
	})
}

type applyRequest struct {
	ContributorType string `json:"contributor_type"`
	Statement       string `json:"statement"`
}

func (h *UserHandler) Apply(c *gin.Context) {
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid application body")
		return
	}
	app, err := h.applications.Submit(c.Request.Context(), middleware.CurrentActor(c), req.ContributorType, req.Statement)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *UserHandler) MyApplications(c *gin.Context) {
	apps, err := h.applications.ListMine(c.Request.Context(), middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}
