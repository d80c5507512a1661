package user

import (
	"errors"
	"net/http"

	"github.com/ZJUSCT/MusicLeague/internal/api"
	"github.com/ZJUSCT/MusicLeague/internal/database/models"
	"github.com/ZJUSCT/MusicLeague/internal/trackid"
	"github.com/ZJUSCT/MusicLeague/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) getRoundSubmissions(c *gin.Context) {
	views, err := h.league.GetVisibleSubmissions(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, views, "ok")
}

func (h *Handler) getMySubmission(c *gin.Context) {
	sub, err := h.league.GetMemberSubmission(c.Request.Context(), c.Param("id"), c.GetString(api.ContextUserID))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, sub, "ok")
}

func (h *Handler) submitTrack(c *gin.Context) {
	var req struct {
		Track string `json:"track" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	track, ok := h.findTrack(c, req.Track)
	if !ok {
		return
	}
	result, err := h.league.Submit(c.Request.Context(), c.Param("id"), c.GetString(api.ContextUserID), *track)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, result, "Submission recorded")
}

func (h *Handler) lookupTrack(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		util.Error(c, http.StatusBadRequest, "query parameter q is required")
		return
	}
	track, ok := h.findTrack(c, q)
	if !ok {
		return
	}
	util.Success(c, track, "ok")
}

// findTrack resolves input through the catalog and writes the error response
// itself when that fails.
func (h *Handler) findTrack(c *gin.Context, input string) (*models.Track, bool) {
	track, err := h.tracks.FindTrack(c.Request.Context(), input)
	if err == nil {
		return track, true
	}
	if errors.Is(err, trackid.ErrNotParseable) {
		util.Error(c, http.StatusBadRequest, err)
		return nil, false
	}
	zap.S().Warnw("track lookup failed", "input", input, "error", err)
	util.Error(c, http.StatusBadGateway, "track lookup failed")
	return nil, false
}
