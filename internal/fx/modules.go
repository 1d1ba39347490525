package fx

import (
	"kvk-tracker/internal/cache"
	"kvk-tracker/internal/config"
	"kvk-tracker/internal/database"
	"kvk-tracker/internal/engine"
	"kvk-tracker/internal/logger"
	"kvk-tracker/internal/repository"
	"kvk-tracker/internal/server"
	"kvk-tracker/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	fx.Provide(cache.New),
	// engine
	fx.Provide(engine.New),
	// repos
	fx.Provide(repository.NewBaselineRepository),
	fx.Provide(repository.NewSnapshotRepository),
	fx.Provide(repository.NewHistoryRepository),
	fx.Provide(repository.NewSeasonRepository),
	fx.Provide(repository.NewFightPeriodRepository),
	// svc
	fx.Provide(service.NewUploadService),
	fx.Provide(service.NewLeaderboardService),
	fx.Provide(service.NewClassificationService),
	fx.Provide(service.NewContributionService),
	fx.Provide(service.NewSeasonService),
	fx.Provide(service.NewFightPeriodService),
	fx.Provide(service.NewFinalKvKService),
	// server
	fx.Provide(server.NewServer),
)
