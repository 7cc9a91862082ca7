package git

import (
	"fmt"

	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"git",
		logger.WithNamedLogger("git"),
		fx.Provide(NewOpener),
	)
}

// NewOpener returns the Opener for the configured backend.
func NewOpener(config Config, logger *zap.Logger) (Opener, error) {
	switch config.Backend {
	case BackendGoGit, "":
		return NewService(config, logger), nil
	case BackendShell:
		return NewShell(config, logger), nil
	}

	return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, config.Backend)
}
