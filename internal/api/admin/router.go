package admin

import (
	"github.com/ZJUSCT/MusicLeague/internal/api"
	"github.com/ZJUSCT/MusicLeague/internal/config"
	"github.com/ZJUSCT/MusicLeague/internal/league"
	"github.com/ZJUSCT/MusicLeague/internal/metrics"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NewAdminRouter creates and configures the admin Gin engine. It carries no
// authentication and must only be bound to an operator-facing address.
func NewAdminRouter(
	cfg *config.Config,
	db *gorm.DB,
	svc *league.Service,
	m *metrics.Metrics) *gin.Engine {

	r := gin.Default()

	r.Use(api.CORSMiddleware(cfg.CORS))

	h := NewHandler(cfg, db, svc)

	r.GET("/metrics", gin.WrapH(m.Handler()))

	v1 := r.Group("/api/v1")
	{
		leagues := v1.Group("/leagues")
		{
			leagues.GET("", h.getAllLeagues)
			leagues.GET("/:id/leaderboard", h.getLeagueLeaderboard)
		}

		// Score Management
		v1.POST("/submissions/:id/recalculate", h.recalculateSubmission)
		v1.POST("/rounds/:id/recalculate", h.recalculateRound)
	}

	return r
}
