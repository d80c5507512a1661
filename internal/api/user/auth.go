package user

import (
	"errors"
	"net/http"

	"github.com/ZJUSCT/MusicLeague/internal/auth"
	"github.com/ZJUSCT/MusicLeague/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) getAuthStatus(c *gin.Context) {
	util.Success(c, gin.H{
		"local_auth_enabled": h.cfg.Auth.Local.Enabled,
		"spotify_enabled":    h.cfg.Spotify.ClientID != "",
	}, "Auth status retrieved")
}

type localCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Nickname string `json:"nickname"`
}

func (h *Handler) localRegister(c *gin.Context) {
	var req localCredentials
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	u, err := auth.RegisterLocal(h.db, req.Username, req.Password, req.Nickname)
	if err != nil {
		util.Fail(c, err)
		return
	}

	zap.S().Infof("new local user registered: %s", u.Username)
	util.Success(c, gin.H{"id": u.ID, "username": u.Username}, "User registered successfully")
}

func (h *Handler) localLogin(c *gin.Context) {
	var req localCredentials
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	u, err := auth.AuthenticateLocal(h.db, req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrSpotifyAccount):
		util.Error(c, http.StatusUnauthorized, err)
		return
	case err != nil:
		util.Fail(c, err)
		return
	}

	token, err := auth.GenerateJWT(u.ID, h.cfg.Auth.JWT.Secret, h.cfg.Auth.JWT.ExpireHours)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, gin.H{"token": token}, "Login successful")
}
