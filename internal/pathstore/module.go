package pathstore

import (
	"context"
	"fmt"

	"github.com/go-core-fx/logger"
	"github.com/repodash/repodash/pkg/badgerfx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"pathstore",
		logger.WithNamedLogger("pathstore"),
		fx.Provide(New),
	)
}

// New builds the Store selected by config. The badger database, when used,
// is closed with the application.
func New(config Config, lc fx.Lifecycle, logger *zap.Logger) (Store, error) {
	switch config.Driver {
	case DriverJSON, "":
		logger.Info("using json repository list", zap.String("file", config.File))
		return NewJSONStore(config.File), nil
	case DriverBadger:
		db, err := badgerfx.New(badgerfx.Config{Dir: config.DataDir}, logger)
		if err != nil {
			return nil, err
		}

		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				logger.Info("closing badger database")
				if err := db.Close(); err != nil {
					return fmt.Errorf("failed to close BadgerDB: %w", err)
				}
				return nil
			},
		})

		logger.Info("using badger repository list", zap.String("dir", config.DataDir))
		return NewBadgerStore(db), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, config.Driver)
}
