package user

import (
	"github.com/ZJUSCT/MusicLeague/internal/api"
	"github.com/ZJUSCT/MusicLeague/internal/config"
	"github.com/ZJUSCT/MusicLeague/internal/league"
	"github.com/ZJUSCT/MusicLeague/internal/pubsub"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NewUserRouter creates and configures the user Gin engine.
func NewUserRouter(
	cfg *config.Config,
	db *gorm.DB,
	svc *league.Service,
	catalog Catalog,
	broker *pubsub.Broker) *gin.Engine {

	r := gin.Default()

	r.Use(api.CORSMiddleware(cfg.CORS))

	h := NewHandler(cfg, db, svc, catalog, broker)

	v1 := r.Group("/api/v1")
	{
		// Auth
		authGroup := v1.Group("/auth")
		{
			authGroup.GET("/status", h.getAuthStatus)
			spotifyGroup := authGroup.Group("/spotify")
			spotifyGroup.GET("/login", h.spotifyAuthHandler.Login)
			spotifyGroup.GET("/callback", h.spotifyAuthHandler.Callback)

			// Local Username/Password Auth (if enabled)
			if cfg.Auth.Local.Enabled {
				localAuthGroup := authGroup.Group("/local")
				{
					localAuthGroup.POST("/register", h.localRegister)
					localAuthGroup.POST("/login", h.localLogin)
				}
			}
		}

		// Public websocket feed of league phase events (no vote counts)
		v1.GET("/ws/leagues/:slug/events", h.handleLeagueEventsWs)

		// Publicly accessible info
		v1.GET("/leagues/:slug", h.getLeague)
		v1.GET("/leagues/:slug/leaderboard", h.getLeagueLeaderboard)

		// Authenticated routes
		authed := v1.Group("/")
		authed.Use(api.AuthMiddleware(cfg.Auth.JWT.Secret))
		{
			profile := authed.Group("/user")
			{
				profile.GET("/profile", h.getUserProfile)
				profile.PATCH("/profile", h.updateUserProfile)
				profile.GET("/leagues", h.getMyLeagues)
			}

			authed.POST("/leagues", h.createLeague)
			authed.POST("/leagues/:slug/join", h.joinLeague)
			authed.POST("/leagues/:slug/rounds", h.createRound)
			authed.GET("/leagues/:slug/rounds", h.getLeagueRounds)

			rounds := authed.Group("/rounds")
			{
				rounds.GET("/:id", h.getRound)
				rounds.POST("/:id/status", h.advanceRound)
				rounds.POST("/:id/finalize", h.finalizeRound)
				rounds.GET("/:id/submissions", h.getRoundSubmissions)
				rounds.GET("/:id/submissions/mine", h.getMySubmission)
				rounds.POST("/:id/submissions", h.submitTrack)
				rounds.POST("/:id/votes", h.castVote)
				rounds.GET("/:id/votes/mine", h.getMyVotes)
			}

			authed.GET("/tracks/lookup", h.lookupTrack)
		}
	}

	return r
}
