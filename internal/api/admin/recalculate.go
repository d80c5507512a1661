package admin

import (
	"github.com/ZJUSCT/MusicLeague/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) recalculateSubmission(c *gin.Context) {
	id := c.Param("id")
	total, err := h.league.RecalculateSubmission(c.Request.Context(), id)
	if err != nil {
		util.Fail(c, err)
		return
	}

	zap.S().Infof("admin triggered score recalculation for submission %s", id)
	util.Success(c, gin.H{"submission_id": id, "total_points": total}, "Score recalculated")
}

func (h *Handler) recalculateRound(c *gin.Context) {
	id := c.Param("id")
	totals, err := h.league.RecalculateRound(c.Request.Context(), id)
	if err != nil {
		util.Fail(c, err)
		return
	}

	zap.S().Infof("admin triggered score recalculation for round %s (%d submissions)", id, len(totals))
	util.Success(c, gin.H{"round_id": id, "totals": totals}, "Scores recalculated")
}
