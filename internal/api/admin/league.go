package admin

import (
	"github.com/ZJUSCT/MusicLeague/internal/database"
	"github.com/ZJUSCT/MusicLeague/internal/league"
	"github.com/ZJUSCT/MusicLeague/internal/util"
	"github.com/gin-gonic/gin"
)

func (h *Handler) getAllLeagues(c *gin.Context) {
	leagues, err := h.league.ListLeagues(c.Request.Context())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, leagues, "ok")
}

func (h *Handler) getLeagueLeaderboard(c *gin.Context) {
	l, err := database.GetLeagueByID(h.db, c.Param("id"))
	if err != nil {
		if database.IsNotFound(err) {
			err = league.ErrNotFound
		}
		util.Fail(c, err)
		return
	}
	standings, err := h.league.Leaderboard(c.Request.Context(), l.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, gin.H{"league": l, "standings": standings}, "ok")
}
