package user

import (
	"context"

	"github.com/ZJUSCT/MusicLeague/internal/auth"
	"github.com/ZJUSCT/MusicLeague/internal/config"
	"github.com/ZJUSCT/MusicLeague/internal/database/models"
	"github.com/ZJUSCT/MusicLeague/internal/league"
	"github.com/ZJUSCT/MusicLeague/internal/pubsub"
	"gorm.io/gorm"
)

// TrackFinder resolves a pasted track link, URI or id to catalog metadata.
type TrackFinder interface {
	FindTrack(ctx context.Context, input string) (*models.Track, error)
}

// Catalog is the Spotify surface the user API needs. *spotify.Client
// satisfies it.
type Catalog interface {
	TrackFinder
	auth.ProfileFetcher
}

// Handler holds all dependencies for the user API handlers.
type Handler struct {
	cfg                *config.Config
	db                 *gorm.DB
	league             *league.Service
	tracks             TrackFinder
	broker             *pubsub.Broker
	spotifyAuthHandler *auth.SpotifyHandler
}

func NewHandler(
	cfg *config.Config,
	db *gorm.DB,
	svc *league.Service,
	catalog Catalog,
	broker *pubsub.Broker,
) *Handler {
	return &Handler{
		cfg:                cfg,
		db:                 db,
		league:             svc,
		tracks:             catalog,
		broker:             broker,
		spotifyAuthHandler: auth.NewSpotifyHandler(cfg, db, catalog),
	}
}
