package config

import (
	"github.com/go-core-fx/fiberfx"
	"github.com/repodash/repodash/internal/git"
	"github.com/repodash/repodash/internal/pathstore"
	"github.com/repodash/repodash/internal/repos"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"config",
		fx.Provide(New),
		fx.Provide(func(cfg Config) fiberfx.Config {
			return fiberfx.Config{
				Address:     cfg.HTTP.Address,
				ProxyHeader: cfg.HTTP.ProxyHeader,
				Proxies:     cfg.HTTP.Proxies,
			}
		}),
		fx.Provide(func(cfg Config) pathstore.Config {
			return pathstore.Config{
				Driver:  pathstore.Driver(cfg.Storage.Driver),
				File:    cfg.Storage.PathsFile,
				DataDir: cfg.Storage.DataDir,
			}
		}),
		fx.Provide(func(cfg Config) git.Config {
			return git.Config{
				Backend: git.Backend(cfg.Git.Backend),
				Remote:  cfg.Git.Remote,
				Marker:  cfg.Git.Marker,
				Timeout: cfg.Git.Timeout,
			}
		}),
		fx.Provide(func(cfg Config) repos.Config {
			return repos.Config{
				Concurrency:     cfg.Repos.Concurrency,
				RefreshInterval: cfg.Repos.RefreshInterval,
				Marker:          cfg.Git.Marker,
			}
		}),
	)
}
