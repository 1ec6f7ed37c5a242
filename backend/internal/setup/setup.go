package setup

import (
	"github.com/clear-retro/clearretro/backend/internal/handler"
	"github.com/clear-retro/clearretro/backend/internal/service"
	"github.com/clear-retro/clearretro/backend/internal/storage/pg"
	"github.com/clear-retro/clearretro/backend/internal/ws"
	"github.com/clear-retro/clearretro/shared/config"
	"github.com/clear-retro/clearretro/shared/jwt"
	"github.com/clear-retro/clearretro/shared/logger"
	mw "github.com/clear-retro/clearretro/shared/middleware"
)

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Config         *config.Config
	Storage        *pg.Storage
	Handler        *handler.Handler
	Hub            *ws.Hub
	Sweeper        *service.Sweeper
	AuthMiddleware *mw.Auth
	Jwt            jwt.JwtService
}

// SetupDependencies initializes all dependencies required for the application.
func SetupDependencies(cfg *config.Config) (*Dependencies, error) {
	storage, err := pg.New(cfg)
	if err != nil {
		return nil, err
	}

	jwtService := jwt.New(cfg.Private.JwtKey, cfg.Public.JwtTTL)
	hub := ws.NewHub(storage, logger.Log, cfg.Public.SnapshotBuffer)

	board := service.NewBoard(storage, hub, cfg.Public.MaxColumnsPerBoard)
	card := service.NewCard(storage, hub, cfg.Public.MaxCardTextLen)
	sweeper := service.NewSweeper(storage, logger.Log, cfg.Public.CompletedBoardTTL)

	h := handler.New(board, card, cfg, jwtService, hub, storage, logger.Log)

	return &Dependencies{
		Config:         cfg,
		Storage:        storage,
		Handler:        h,
		Hub:            hub,
		Sweeper:        sweeper,
		AuthMiddleware: mw.NewAuth(jwtService),
		Jwt:            jwtService,
	}, nil
}
