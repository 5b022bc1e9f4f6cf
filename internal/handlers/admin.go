package handlers

import (
	"context"
	"net/http"

	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/rbac"
	"agora/internal/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves the admin and superadmin dashboards. Each action is authorized by
// the service it calls, so the routes need no role checks of their own.
type AdminHandler struct {
	users        *services.UserService
	applications *services.ApplicationService
}

func NewAdminHandler(users *services.UserService, applications *services.ApplicationService) *AdminHandler {
	return &AdminHandler{users: users, applications: applications}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context(), middleware.CurrentActor(c), queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]AccountView, 0, len(users))
	for i := range users {
		views = append(views, accountView(&users[i]))
	}
	c.JSON(http.StatusOK, gin.H{"users": views})
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *AdminHandler) ChangeRole(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "role is required")
		return
	}
	user, err := h.users.ChangeRole(c.Request.Context(), middleware.CurrentActor(c), id, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accountView(user))
}

type verifyRequest struct {
	Verified bool `json:"verified"`
}

func (h *AdminHandler) SetVerified(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	user, err := h.users.SetVerified(c.Request.Context(), middleware.CurrentActor(c), id, req.Verified)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accountView(user))
}

func (h *AdminHandler) PendingApplications(c *gin.Context) {
	apps, err := h.applications.ListPending(c.Request.Context(), middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

type decisionRequest struct {
	Note string `json:"note"`
}

func (h *AdminHandler) Approve(c *gin.Context) {
	h.decide(c, h.applications.Approve)
}

func (h *AdminHandler) Reject(c *gin.Context) {
	h.decide(c, h.applications.Reject)
}

func (h *AdminHandler) decide(c *gin.Context, fn func(ctx context.Context, actor *rbac.Actor, id uint, note string) (*models.ContributorApplication, error)) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req decisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid body")
			return
		}
	}
	app, err := fn(c.Request.Context(), middleware.CurrentActor(c), id, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}
