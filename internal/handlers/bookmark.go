package handlers

import (
	"net/http"

	"agora/internal/middleware"
	"agora/internal/services"

	"github.com/gin-gonic/gin"
)

type BookmarkHandler struct {
	bookmarks *services.BookmarkService
}

func NewBookmarkHandler(bookmarks *services.BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{bookmarks: bookmarks}
}

// Toggle bookmarks a post or removes the bookmark.
func (h *BookmarkHandler) Toggle(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	bookmarked, err := h.bookmarks.Toggle(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarked": bookmarked})
}

func (h *BookmarkHandler) List(c *gin.Context) {
	posts, err := h.bookmarks.List(c.Request.Context(), middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": postViews(posts)})
}
