package handlers

import (
	"html/template"

	"agora/internal/models"
	"agora/internal/utils"

	"github.com/gin-gonic/gin"
)

// paramID parses a positive numeric path parameter, writing a 400 when it is not one.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	return utils.IntOr(c.Query(name), fallback)
}

// PostView is a post with its Markdown rendered to sanitized HTML.
type PostView struct {
	models.Post
	HTML template.HTML `json:"html"`
}

func postView(p models.Post) PostView {
	return PostView{Post: p, HTML: utils.RenderMarkdown(p.Content)}
}

func postViews(posts []models.Post) []PostView {
	out := make([]PostView, 0, len(posts))
	for _, p := range posts {
		out = append(out, postView(p))
	}
	return out
}

type CommentView struct {
	models.Comment
	HTML template.HTML `json:"html"`
}

func commentViews(comments []models.Comment) []CommentView {
	out := make([]CommentView, 0, len(comments))
	for _, cm := range comments {
		out = append(out, CommentView{Comment: cm, HTML: utils.RenderMarkdown(cm.Content)})
	}
	return out
}

// AccountView is the private projection of a user, shown only to that user and admins.
type AccountView struct {
	models.User
	Email string `json:"email"`
}

func accountView(u *models.User) AccountView {
	return AccountView{User: *u, Email: u.Email}
}
