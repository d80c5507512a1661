package user

import (
	"net/http"
	"strings"

	"github.com/ZJUSCT/MusicLeague/internal/api"
	"github.com/ZJUSCT/MusicLeague/internal/database/models"
	"github.com/ZJUSCT/MusicLeague/internal/league"
	"github.com/ZJUSCT/MusicLeague/internal/util"
	"github.com/gin-gonic/gin"
)

func (h *Handler) createRound(c *gin.Context) {
	var req league.NewRound
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	l, err := h.league.LeagueBySlug(ctx, c.Param("slug"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	result, err := h.league.CreateRound(ctx, l.ID, c.GetString(api.ContextUserID), req)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, result, "Round created")
}

func (h *Handler) getLeagueRounds(c *gin.Context) {
	ctx := c.Request.Context()
	l, err := h.league.LeagueBySlug(ctx, c.Param("slug"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	rounds, err := h.league.ListRounds(ctx, l.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, rounds, "ok")
}

func (h *Handler) getRound(c *gin.Context) {
	ctx := c.Request.Context()
	round, err := h.league.GetRound(ctx, c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	subs, err := h.league.GetVisibleSubmissions(ctx, round.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, gin.H{
		"round":       round,
		"league":      round.League,
		"submissions": subs,
	}, "ok")
}

func (h *Handler) advanceRound(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	target := models.RoundStatus(strings.ToUpper(req.Status))
	result, err := h.league.AdvanceStatus(c.Request.Context(), c.Param("id"), c.GetString(api.ContextUserID), target)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, result, "Round status updated")
}

func (h *Handler) finalizeRound(c *gin.Context) {
	result, err := h.league.Finalize(c.Request.Context(), c.Param("id"), c.GetString(api.ContextUserID))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, result, "Round finalized")
}
