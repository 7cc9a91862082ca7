package internal

import (
	"context"

	"github.com/capcom6/go-infra-fx/validator"
	"github.com/go-core-fx/fiberfx"
	"github.com/go-core-fx/healthfx"
	"github.com/go-core-fx/logger"
	"github.com/repodash/repodash/internal/config"
	"github.com/repodash/repodash/internal/git"
	"github.com/repodash/repodash/internal/pathstore"
	"github.com/repodash/repodash/internal/repos"
	"github.com/repodash/repodash/internal/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Run() {
	fx.New(
		// CORE MODULES
		logger.Module(),
		logger.WithFxDefaultLogger(),
		healthfx.Module(),
		fiberfx.Module(),
		validator.Module,
		//
		// APP MODULES
		config.Module(),
		server.Module(),
		pathstore.Module(),
		git.Module(),
		//
		// BUSINESS MODULES
		fx.Provide(func() healthfx.Version { return healthfx.Version{Version: "0.1.0", ReleaseID: 1} }),
		repos.Module(),
		//
		// LIFECYCLE MANAGEMENT
		fx.Invoke(func(lc fx.Lifecycle, logger *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					logger.Info("repodash starting up")
					return nil
				},
				OnStop: func(_ context.Context) error {
					logger.Info("repodash shutting down")
					return nil
				},
			})
		}),
	).Run()
}
