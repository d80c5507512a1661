package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZJUSCT/MusicLeague/internal/api/admin"
	"github.com/ZJUSCT/MusicLeague/internal/api/user"
	"github.com/ZJUSCT/MusicLeague/internal/config"
	"github.com/ZJUSCT/MusicLeague/internal/database"
	"github.com/ZJUSCT/MusicLeague/internal/league"
	"github.com/ZJUSCT/MusicLeague/internal/metrics"
	"github.com/ZJUSCT/MusicLeague/internal/notify"
	"github.com/ZJUSCT/MusicLeague/internal/pubsub"
	"github.com/ZJUSCT/MusicLeague/internal/spotify"

	"go.uber.org/zap"
)

var Version = "dev-build"

func main() {

	fmt.Fprintf(os.Stderr, "ZJUSCT Music League %s\n\n", Version)

	// config
	var configPath string
	flag.StringVar(&configPath, "c", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// logger
	var logger *zap.Logger
	if cfg.Logger.Level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if cfg.Auth.JWT.Secret == "" {
		zap.S().Fatal("auth.jwt.secret is not set")
	}

	// database
	db, err := database.Init(cfg.Storage)
	if err != nil {
		zap.S().Fatalf("failed to initialize database: %v", err)
	}
	zap.S().Infof("database initialized successfully (%s)", cfg.Storage.Driver)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	m := metrics.New()
	broker := pubsub.NewBroker(pubsub.DefaultHistory)

	// webhook notifications
	dispatcher := notify.NewDispatcher(cfg.Notify, broker, m)
	go dispatcher.Run(ctx)
	zap.S().Info("notification dispatcher started")

	spotifyClient := spotify.NewClient(cfg.Spotify, db)
	if cfg.Spotify.ClientID == "" {
		zap.S().Warn("spotify client id is empty, login and track lookup will fail")
	}

	svc := league.NewService(db,
		league.WithPlaylists(spotifyClient),
		league.WithNotifier(dispatcher),
		league.WithMetrics(m),
	)

	// API routers
	userEngine := user.NewUserRouter(cfg, db, svc, spotifyClient, broker)
	adminEngine := admin.NewAdminRouter(cfg, db, svc, m)

	// start servers
	go func() {
		zap.S().Infof("starting user server at %s", cfg.Listen)
		if err := userEngine.Run(cfg.Listen); err != nil {
			zap.S().Fatalf("failed to start user server: %v", err)
		}
	}()

	if cfg.Admin.Enabled {
		go func() {
			zap.S().Infof("starting admin server at %s", cfg.Admin.Listen)
			if err := adminEngine.Run(cfg.Admin.Listen); err != nil {
				zap.S().Fatalf("failed to start admin server: %v", err)
			}
		}()
	}

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.S().Info("shutting down server...")
}
