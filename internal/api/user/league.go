package user

import (
	"net/http"

	"github.com/ZJUSCT/MusicLeague/internal/api"
	"github.com/ZJUSCT/MusicLeague/internal/util"
	"github.com/gin-gonic/gin"
)

func (h *Handler) createLeague(c *gin.Context) {
	var req struct {
		Name       string `json:"name" binding:"required"`
		Slug       string `json:"slug" binding:"required"`
		WebhookURL string `json:"webhook_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	l, err := h.league.CreateLeague(c.Request.Context(), c.GetString(api.ContextUserID), req.Name, req.Slug, req.WebhookURL)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, l, "League created")
}

func (h *Handler) joinLeague(c *gin.Context) {
	member, err := h.league.JoinLeague(c.Request.Context(), c.GetString(api.ContextUserID), c.Param("slug"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, member, "Joined league")
}

func (h *Handler) getLeague(c *gin.Context) {
	detail, err := h.league.GetLeague(c.Request.Context(), c.Param("slug"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, detail, "ok")
}

func (h *Handler) getLeagueLeaderboard(c *gin.Context) {
	l, err := h.league.LeagueBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	standings, err := h.league.Leaderboard(c.Request.Context(), l.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, standings, "ok")
}
