package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-core-fx/config"
)

type http struct {
	Address     string   `koanf:"address"`
	ProxyHeader string   `koanf:"proxy_header"`
	Proxies     []string `koanf:"proxies"`
}

type storageConfig struct {
	Driver    string `koanf:"driver"`
	PathsFile string `koanf:"paths_file"`
	DataDir   string `koanf:"data_dir"`
}

type gitConfig struct {
	Backend string        `koanf:"backend"`
	Remote  string        `koanf:"remote"`
	Marker  string        `koanf:"marker"`
	Timeout time.Duration `koanf:"timeout"`
}

type reposConfig struct {
	Concurrency     int           `koanf:"concurrency"`
	RefreshInterval time.Duration `koanf:"refresh_interval"`
}

type Config struct {
	HTTP http `koanf:"http"`

	Storage storageConfig `koanf:"storage"`
	Git     gitConfig     `koanf:"git"`
	Repos   reposConfig   `koanf:"repos"`
}

func Default() Config {
	//nolint:exhaustruct,mnd //default values
	return Config{
		HTTP: http{
			Address:     "127.0.0.1:3000",
			ProxyHeader: "X-Forwarded-For",
			Proxies:     []string{},
		},

		Storage: storageConfig{
			Driver:    "json",
			PathsFile: defaultPathsFile(),
			DataDir:   "./data",
		},

		Git: gitConfig{
			Backend: "gogit",
			Remote:  "origin",
			Marker:  ".git",
			Timeout: 2 * time.Minute,
		},

		Repos: reposConfig{
			Concurrency:     8,
			RefreshInterval: 0,
		},
	}
}

// defaultPathsFile places the repository list in the user's config dir,
// falling back to the working directory.
func defaultPathsFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(dir, "repodash", "config.json")
}

func New() (Config, error) {
	cfg := Default()

	options := []config.Option{}
	if yamlPath := os.Getenv("CONFIG_PATH"); yamlPath != "" {
		options = append(options, config.WithLocalYAML(yamlPath))
	}

	if err := config.Load(&cfg, options...); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}
