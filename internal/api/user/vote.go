package user

import (
	"net/http"

	"github.com/ZJUSCT/MusicLeague/internal/api"
	"github.com/ZJUSCT/MusicLeague/internal/util"
	"github.com/gin-gonic/gin"
)

func (h *Handler) castVote(c *gin.Context) {
	var req struct {
		SubmissionID string `json:"submission_id" binding:"required"`
		Points       int    `json:"points"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	vote, err := h.league.CastVote(c.Request.Context(), c.Param("id"), c.GetString(api.ContextUserID), req.SubmissionID, req.Points)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, vote, "Vote recorded")
}

func (h *Handler) getMyVotes(c *gin.Context) {
	votes, err := h.league.GetVotesByMember(c.Request.Context(), c.Param("id"), c.GetString(api.ContextUserID))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, votes, "ok")
}
