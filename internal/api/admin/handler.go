package admin

import (
	"github.com/ZJUSCT/MusicLeague/internal/config"
	"github.com/ZJUSCT/MusicLeague/internal/league"
	"gorm.io/gorm"
)

// Handler holds all dependencies for the admin API handlers.
type Handler struct {
	cfg    *config.Config
	db     *gorm.DB
	league *league.Service
}

// NewHandler creates a new admin handler with its dependencies.
func NewHandler(
	cfg *config.Config,
	db *gorm.DB,
	svc *league.Service,
) *Handler {
	return &Handler{
		cfg:    cfg,
		db:     db,
		league: svc,
	}
}
