package user

import (
	"net/http"
	"strings"

	"github.com/ZJUSCT/MusicLeague/internal/api"
	"github.com/ZJUSCT/MusicLeague/internal/database"
	"github.com/ZJUSCT/MusicLeague/internal/util"
	"github.com/gin-gonic/gin"
)

func (h *Handler) getUserProfile(c *gin.Context) {
	userID := c.GetString(api.ContextUserID)
	user, err := database.GetUserByID(h.db, userID)
	if err != nil {
		util.Error(c, http.StatusNotFound, "user not found")
		return
	}
	util.Success(c, gin.H{
		"user":           user,
		"spotify_linked": user.SpotifyRefreshToken != "",
	}, "ok")
}

func (h *Handler) updateUserProfile(c *gin.Context) {
	userID := c.GetString(api.ContextUserID)
	user, err := database.GetUserByID(h.db, userID)
	if err != nil {
		util.Error(c, http.StatusNotFound, "user not found")
		return
	}
	var reqBody struct {
		Nickname string `json:"nickname" binding:"required,max=64"`
	}
	if err := c.ShouldBindJSON(&reqBody); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	user.Nickname = strings.TrimSpace(reqBody.Nickname)
	if user.Nickname == "" {
		util.Error(c, http.StatusBadRequest, "nickname cannot be blank")
		return
	}
	if err := database.UpdateUser(h.db, user); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, user, "Profile updated")
}

func (h *Handler) getMyLeagues(c *gin.Context) {
	leagues, err := h.league.MyLeagues(c.Request.Context(), c.GetString(api.ContextUserID))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, leagues, "ok")
}
