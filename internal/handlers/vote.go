package handlers

import (
	"net/http"

	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/services"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	votes *services.VoteService
}

func NewVoteHandler(votes *services.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

type voteRequest struct {
	VoteType models.VoteType `json:"vote_type"`
}

// Vote handles POST /vote/:type/:id where type is "post" or "comment". Repeating a vote
// withdraws it; voting the other way flips it.
func (h *VoteHandler) Vote(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var target services.VoteTarget
	switch c.Param("type") {
	case "post":
		target = services.PostTarget(id)
	case "comment":
		target = services.CommentTarget(id)
	default:
		writeError(c, http.StatusBadRequest, "INVALID_VOTE_TARGET", "vote target must be post or comment")
		return
	}

	req := voteRequest{VoteType: models.VoteUp}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid vote body")
			return
		}
	}

	counters, err := h.votes.ApplyVote(c.Request.Context(), middleware.CurrentActor(c), target, req.VoteType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counters)
}
