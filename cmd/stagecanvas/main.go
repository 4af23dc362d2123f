package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/vbonduro/stagecanvas/internal/canvas"
	"github.com/vbonduro/stagecanvas/internal/config"
	"github.com/vbonduro/stagecanvas/internal/db"
	"github.com/vbonduro/stagecanvas/internal/logging"
	"github.com/vbonduro/stagecanvas/internal/service"
	"github.com/vbonduro/stagecanvas/internal/store"
	"github.com/vbonduro/stagecanvas/internal/web"
	"github.com/vbonduro/stagecanvas/internal/web/templates"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	policy, err := canvas.ParseOccupancyPolicy(cfg.OccupancyPolicy)
	if err != nil {
		logger.Error("invalid occupancy policy", "value", cfg.OccupancyPolicy, "error", err)
		return
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	canvasService := service.NewCanvasService(store.NewAreaStore(database), store.NewItemStore(database), policy, logger)

	if cfg.SeedLayout {
		if err := seedLayout(canvasService, cfg, logger); err != nil {
			logger.Error("failed to seed layout", "error", err)
			return
		}
	}

	server := web.NewServer(canvasService, templates.FS, logger)
	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

func seedLayout(svc *service.CanvasService, cfg *config.Config, logger *slog.Logger) error {
	layout, err := config.LoadLayout(cfg.LayoutFile)
	if err != nil {
		return err
	}
	seeded, err := svc.Seed(context.Background(), layout.Areas, layout.Items)
	if err != nil {
		return err
	}
	if !seeded {
		logger.Info("store already populated, layout not loaded")
	}
	return nil
}
