package auth

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/ZJUSCT/MusicLeague/internal/config"
	"github.com/ZJUSCT/MusicLeague/internal/database"
	"github.com/ZJUSCT/MusicLeague/internal/database/models"
	"github.com/ZJUSCT/MusicLeague/internal/spotify"
	"github.com/ZJUSCT/MusicLeague/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const stateCookie = "musicleague_oauth_state"

// ProfileFetcher reads the Spotify profile behind a freshly exchanged token.
type ProfileFetcher interface {
	OAuth() *oauth2.Config
	Me(ctx context.Context, token *oauth2.Token) (*spotify.Profile, error)
}

type SpotifyHandler struct {
	cfg     *config.Config
	db      *gorm.DB
	spotify ProfileFetcher
}

func NewSpotifyHandler(cfg *config.Config, db *gorm.DB, client ProfileFetcher) *SpotifyHandler {
	return &SpotifyHandler{cfg: cfg, db: db, spotify: client}
}

func (h *SpotifyHandler) Login(c *gin.Context) {
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 600, "/", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusTemporaryRedirect, h.spotify.OAuth().AuthCodeURL(state, oauth2.AccessTypeOffline))
}

func (h *SpotifyHandler) Callback(c *gin.Context) {
	state, err := c.Cookie(stateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		util.Error(c, http.StatusBadRequest, "invalid oauth state")
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", c.Request.TLS != nil, true)

	if e := c.Query("error"); e != "" {
		util.Error(c, http.StatusUnauthorized, "spotify authorization denied: "+e)
		return
	}

	ctx := c.Request.Context()
	token, err := h.spotify.OAuth().Exchange(ctx, c.Query("code"))
	if err != nil {
		util.Error(c, http.StatusBadGateway, "failed to exchange token: "+err.Error())
		return
	}

	profile, err := h.spotify.Me(ctx, token)
	if err != nil {
		util.Error(c, http.StatusBadGateway, "failed to get spotify profile: "+err.Error())
		return
	}

	user, err := h.upsertUser(h.db.WithContext(ctx), profile, token)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}

	jwtToken, err := GenerateJWT(user.ID, h.cfg.Auth.JWT.Secret, h.cfg.Auth.JWT.ExpireHours)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, "failed to generate JWT")
		return
	}

	if target := h.cfg.Spotify.FrontendCallbackURL; target != "" {
		u, err := url.Parse(target)
		if err == nil {
			q := u.Query()
			q.Set("token", jwtToken)
			u.RawQuery = q.Encode()
			c.Redirect(http.StatusFound, u.String())
			return
		}
		zap.S().Warnf("invalid frontend callback url %q: %v", target, err)
	}
	util.Success(c, gin.H{"token": jwtToken}, "Login successful")
}

// upsertUser links the Spotify account to a user, creating the user on first
// login, and stores the issued tokens.
func (h *SpotifyHandler) upsertUser(db *gorm.DB, profile *spotify.Profile, token *oauth2.Token) (*models.User, error) {
	user, err := database.GetUserBySpotifyID(db, profile.ID)
	switch {
	case database.IsNotFound(err):
		spotifyID := profile.ID
		user = &models.User{
			ID:        uuid.NewString(),
			SpotifyID: &spotifyID,
			Username:  h.freeUsername(db, profile.ID),
			Nickname:  profile.DisplayName,
		}
		if user.Nickname == "" {
			user.Nickname = user.Username
		}
		if len(profile.Images) > 0 {
			user.AvatarURL = profile.Images[0].URL
		}
		if err := database.CreateUser(db, user); err != nil {
			return nil, err
		}
		zap.S().Infof("new user registered via spotify: %s", user.Username)
	case err != nil:
		return nil, err
	}

	expiry := token.Expiry
	if expiry.IsZero() {
		expiry = time.Now().Add(time.Hour)
	}
	if err := database.UpdateUserSpotifyTokens(db, user.ID, token.AccessToken, token.RefreshToken, expiry); err != nil {
		return nil, err
	}
	return user, nil
}

func (h *SpotifyHandler) freeUsername(db *gorm.DB, base string) string {
	name := base
	for i := 0; i < 5; i++ {
		if _, err := database.GetUserByUsername(db, name); database.IsNotFound(err) {
			return name
		}
		name = base + "-" + uuid.NewString()[:6]
	}
	return base + "-" + uuid.NewString()
}
